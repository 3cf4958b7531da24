package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

var (
	configFile string = getEnv("CONFIG_FILE", "config.json")
)

// readConfig loads the optional JSON config file and applies environment
// overrides on top of it.
func readConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("json")

	// Defaults
	v.SetDefault("timeout", 30)
	v.SetDefault("port", "8000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("patientsUrl", "PATIENTS_URL")
	v.BindEnv("notesUrl", "NOTES_URL")
	v.BindEnv("username", "SERVICE_USERNAME")
	v.BindEnv("password", "SERVICE_PASSWORD")
	v.BindEnv("timeout", "TIMEOUT")
	v.BindEnv("port", "PORT")

	// Config file is optional when everything is set through the environment
	if _, err := os.Stat(configFile); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.PatientsURL == "" {
		return nil, fmt.Errorf("patientsUrl is required")
	}
	if cfg.NotesURL == "" {
		return nil, fmt.Errorf("notesUrl is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %d", cfg.Timeout)
	}

	return &cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
