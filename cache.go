package main

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type RiskComputer interface {
	ComputeRisk(ctx context.Context, patientID int) (RiskLevel, error)
}

// RiskCache memoizes computed risk levels by patient id. Concurrent misses
// for the same id share a single computation and failures are never stored.
// Entries live until Invalidate is called; there is no expiry.
type RiskCache struct {
	computer RiskComputer
	group    singleflight.Group
	timeout  time.Duration

	mu          sync.Mutex
	entries     map[int]RiskLevel
	generations map[int]uint64
}

func NewRiskCache(computer RiskComputer) *RiskCache {
	return &RiskCache{
		computer:    computer,
		timeout:     time.Duration(globalTimeout) * time.Second,
		entries:     map[int]RiskLevel{},
		generations: map[int]uint64{},
	}
}

// GetOrCompute returns the cached risk for a patient, computing it on a miss.
// The shared computation keeps the caller's values but not its cancellation,
// so a waiter that gives up does not fail the others.
func (rc *RiskCache) GetOrCompute(ctx context.Context, patientID int) (RiskLevel, error) {
	rc.mu.Lock()
	if risk, ok := rc.entries[patientID]; ok {
		rc.mu.Unlock()
		return risk, nil
	}
	generation := rc.generations[patientID]
	rc.mu.Unlock()

	computeCtx := context.WithoutCancel(ctx)
	resultCh := rc.group.DoChan(strconv.Itoa(patientID), func() (interface{}, error) {
		return rc.compute(computeCtx, patientID, generation)
	})

	select {
	case result := <-resultCh:
		if result.Err != nil {
			return RiskNone, result.Err
		}
		return result.Val.(RiskLevel), nil
	case <-ctx.Done():
		return RiskNone, ctx.Err()
	}
}

func (rc *RiskCache) compute(ctx context.Context, patientID int, generation uint64) (RiskLevel, error) {
	// Another flight may have stored the entry since the miss
	rc.mu.Lock()
	if risk, ok := rc.entries[patientID]; ok {
		rc.mu.Unlock()
		return risk, nil
	}
	rc.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()

	risk, err := rc.computer.ComputeRisk(ctx, patientID)
	if err != nil {
		return RiskNone, err
	}

	// Skip the write if the patient was invalidated while computing
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.generations[patientID] == generation {
		rc.entries[patientID] = risk
	}
	return risk, nil
}

// Invalidate drops the cached risk for a patient. A computation already in
// flight for that patient will not be stored.
func (rc *RiskCache) Invalidate(patientID int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	delete(rc.entries, patientID)
	rc.generations[patientID]++
	rc.group.Forget(strconv.Itoa(patientID))

	zapLogger.Info("Risk removed from cache", zap.Int("patientId", patientID))
}

func (rc *RiskCache) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.entries)
}
