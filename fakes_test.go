package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type fakePatientSource struct {
	patient Patient
	err     error
	calls   atomic.Int32

	// Optional hooks to hold a lookup in flight
	entered chan struct{}
	release chan struct{}

	mu       sync.Mutex
	lastAuth string
}

func (f *fakePatientSource) GetPatient(ctx context.Context, id int) (Patient, error) {
	f.calls.Add(1)

	f.mu.Lock()
	f.lastAuth = authorizationFrom(ctx)
	f.mu.Unlock()

	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return Patient{}, ctx.Err()
		}
	}

	if f.err != nil {
		return Patient{}, f.err
	}
	p := f.patient
	p.Id = id
	return p, nil
}

func (f *fakePatientSource) auth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

type fakeNoteSource struct {
	notes []Note
	err   error
	calls atomic.Int32
}

func (f *fakeNoteSource) GetNotesByPatientID(ctx context.Context, patientID int) ([]Note, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.notes, nil
}

var testNow = time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)

func newTestService(patients PatientSource, notes NoteSource) *RiskService {
	rs := NewRiskService(patients, notes)
	rs.now = func() time.Time { return testNow }
	return rs
}

func birthdate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func notesOf(contents ...string) []Note {
	notes := make([]Note, 0, len(contents))
	for _, content := range contents {
		notes = append(notes, Note{Content: content})
	}
	return notes
}
