package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.elastic.co/apm"
)

// NoteClient reads practitioner notes from the notes service.
type NoteClient struct {
	sourceClient
}

func NewNoteClient(cfg *Config) *NoteClient {
	return &NoteClient{sourceClient: newSourceClient(cfg.NotesURL, cfg)}
}

func (nc *NoteClient) GetNotesByPatientID(ctx context.Context, patientID int) ([]Note, error) {
	// Create span
	span, ctx := apm.StartSpan(ctx, "Get and Parse Data", "Notes")
	defer span.End()

	// Send request and read response
	resp, body, err := nc.get(ctx, fmt.Sprintf("/notes/%d", patientID))
	if err != nil {
		return nil, fmt.Errorf("notes request failed: %w", err)
	}

	// Verify status code. The notes service answers 204 when nothing is found
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return []Note{}, nil
	default:
		return nil, fmt.Errorf("notes request failed (%d): %s", resp.StatusCode, string(body))
	}

	if len(body) == 0 {
		return []Note{}, nil
	}

	// Unmarshal response into struct
	var notes []Note
	if err := json.Unmarshal(body, &notes); err != nil {
		return nil, fmt.Errorf("error unmarshalling notes for patient %d: %v", patientID, err)
	}

	return notes, nil
}
