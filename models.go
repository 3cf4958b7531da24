package main

import (
	"fmt"
	"time"
)

/**************************
 ****** Source Models *****
 **************************/

// Demographics returned by the patients service. Other fields on the
// payload (names, address, phone) are ignored.
type Patient struct {
	Id        int    `json:"id"`
	BirthDate Date   `json:"birthdate"`
	Gender    string `json:"gender"`
}

type Note struct {
	PatientId int    `json:"patientId"`
	Content   string `json:"content"`
}

/**************************
 ****** API Responses *****
 **************************/

type RiskResult struct {
	PatientId int    `json:"patientId"`
	Risk      string `json:"risk,omitempty"`
	Error     string `json:"error,omitempty"`
}

/*********************************
 ****** Nested Types *************
 *********************************/

// Create custom date type
type Date struct {
	time.Time
}

/********************************
 ********** App Config **********
 ********************************/

type Config struct {
	PatientsURL string `mapstructure:"patientsUrl"`
	NotesURL    string `mapstructure:"notesUrl"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	Timeout     int    `mapstructure:"timeout"`
	Port        string `mapstructure:"port"`
}

/*******************************
 ***** Unmarshal Functions *****
 *******************************/

// Custom UnmarshalJSON for Date type
func (d *Date) UnmarshalJSON(data []byte) error {

	// Leave the zero value for null or empty dates
	dateStr := string(data)
	if dateStr == "null" || len(dateStr) < 2 {
		return nil
	}

	// Remove quotes around the date string
	dateStr = dateStr[1 : len(dateStr)-1]
	if dateStr == "" {
		return nil
	}

	// Parse string
	parsedTime, err := parseDate(dateStr)
	if err != nil {
		return fmt.Errorf("error parsing date: %v", err)
	}

	// Set parsed time to Date struct
	d.Time = parsedTime
	return nil
}
