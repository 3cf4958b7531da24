package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.elastic.co/apm"
	"go.uber.org/zap"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrUpstream        = errors.New("service unavailable")
)

type PatientSource interface {
	GetPatient(ctx context.Context, id int) (Patient, error)
}

// NoteSource returns an empty slice, not an error, when a patient has no notes.
type NoteSource interface {
	GetNotesByPatientID(ctx context.Context, patientID int) ([]Note, error)
}

type RiskService struct {
	patients PatientSource
	notes    NoteSource
	now      func() time.Time
}

func NewRiskService(patients PatientSource, notes NoteSource) *RiskService {
	return &RiskService{
		patients: patients,
		notes:    notes,
		now:      time.Now,
	}
}

// ComputeRisk evaluates the diabetes risk for a patient. The returned error
// wraps either ErrPatientNotFound or ErrUpstream.
func (rs *RiskService) ComputeRisk(ctx context.Context, patientID int) (RiskLevel, error) {
	// Create span
	span, ctx := apm.StartSpan(ctx, "Compute Risk", "Combined")
	defer span.End()

	// Get patient demographics. Notes are only requested once the patient is known to exist
	patient, err := rs.patients.GetPatient(ctx, patientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return RiskNone, err
		}
		return RiskNone, upstreamError(err)
	}
	if patient.BirthDate.IsZero() {
		return RiskNone, fmt.Errorf("%w: patient %d has no birthdate", ErrPatientNotFound, patientID)
	}

	// Evaluate a patient's age
	age := yearsBetween(patient.BirthDate.Time, rs.now())

	// Get notes
	notes, err := rs.notes.GetNotesByPatientID(ctx, patientID)
	if err != nil {
		return RiskNone, upstreamError(err)
	}
	if len(notes) == 0 {
		zapLogger.Info("No notes found for patient", zap.Int("patientId", patientID))
		return RiskNotApplicable, nil
	}

	// Count triggers and classify
	triggerCount := countTriggers(noteContents(notes))
	risk := classifyRisk(age, patient.Gender, triggerCount)

	zapLogger.Info("Risk evaluated",
		zap.Int("patientId", patientID),
		zap.Int("age", age),
		zap.String("gender", patient.Gender),
		zap.Int("triggers", triggerCount),
		zap.Stringer("risk", risk))

	return risk, nil
}

func upstreamError(err error) error {
	if errors.Is(err, ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
