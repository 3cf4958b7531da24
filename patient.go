package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.elastic.co/apm"
)

// PatientClient reads demographics from the patients service.
type PatientClient struct {
	sourceClient
}

func NewPatientClient(cfg *Config) *PatientClient {
	return &PatientClient{sourceClient: newSourceClient(cfg.PatientsURL, cfg)}
}

func (pc *PatientClient) GetPatient(ctx context.Context, id int) (Patient, error) {
	// Create span
	span, ctx := apm.StartSpan(ctx, "Get and Parse Data", "Patient")
	defer span.End()

	// Send request and read response
	resp, body, err := pc.get(ctx, fmt.Sprintf("/patients/%d", id))
	if err != nil {
		return Patient{}, fmt.Errorf("patient request failed: %w", err)
	}

	// Verify status code. The patients service answers 400 for an unknown id
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusNotFound:
		return Patient{}, fmt.Errorf("%w: patient %d (status %d)", ErrPatientNotFound, id, resp.StatusCode)
	default:
		return Patient{}, fmt.Errorf("patient request failed (%d): %s", resp.StatusCode, string(body))
	}

	// A successful response without a usable body is treated as a missing patient
	if len(body) == 0 {
		return Patient{}, fmt.Errorf("%w: empty response for patient %d", ErrPatientNotFound, id)
	}

	// Unmarshal response into struct
	var patient Patient
	if err := json.Unmarshal(body, &patient); err != nil {
		return Patient{}, fmt.Errorf("%w: error unmarshalling patient %d: %v", ErrPatientNotFound, id, err)
	}

	return patient, nil
}
