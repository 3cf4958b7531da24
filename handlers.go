package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type riskHandler struct {
	cache *RiskCache
}

func heartbeat(c echo.Context) error {
	// Heartbeat function to assess service status. Immediately return 200
	return c.NoContent(http.StatusOK)
}

func (h *riskHandler) getRisk(c echo.Context) error {
	// Obtains http request context
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid patient id")
	}

	risk, err := h.cache.GetOrCompute(ctx, id)
	if err != nil {
		return c.NoContent(h.errorStatus(ctx, id, err))
	}

	// Log evaluation results
	sendWebLog(ctx, id, risk, "risk level served")

	return c.String(http.StatusOK, risk.String())
}

// getRisks evaluates a list of patients in parallel, preserving request order.
func (h *riskHandler) getRisks(c echo.Context) error {
	ctx := c.Request().Context()

	ids, err := parseIds(c.QueryParam("ids"))
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	// One result slot per requested id
	results := make([]RiskResult, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)

		// Evaluate each patient asynchronously using a goroutine
		go func(i, id int) {
			defer wg.Done()

			result := RiskResult{PatientId: id}
			risk, err := h.cache.GetOrCompute(ctx, id)
			switch {
			case err == nil:
				result.Risk = risk.String()
			case errors.Is(err, ErrPatientNotFound):
				logger(ctx, err)
				result.Error = ErrPatientNotFound.Error()
			default:
				logger(ctx, err)
				result.Error = ErrUpstream.Error()
			}
			results[i] = result
		}(i, id)
	}

	// Wait for all evaluations before responding
	wg.Wait()

	return c.JSON(http.StatusOK, results)
}

// invalidateRisk is called after a patient is updated so the next read recomputes.
func (h *riskHandler) invalidateRisk(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid patient id")
	}

	h.cache.Invalidate(id)

	return c.NoContent(http.StatusNoContent)
}

func (h *riskHandler) errorStatus(ctx context.Context, id int, err error) int {
	switch {
	case ctx.Err() != nil:
		// Caller went away before the evaluation finished
		zapLogger.Info("Risk request cancelled", zap.Int("patientId", id), zap.Error(err))
		return statusClosedConnection
	case errors.Is(err, ErrPatientNotFound):
		zapLogger.Info("Patient not found", zap.Int("patientId", id), zap.Error(err))
		return http.StatusNotFound
	default:
		logger(ctx, err)
		return http.StatusServiceUnavailable
	}
}

func parseIds(param string) ([]int, error) {
	if strings.TrimSpace(param) == "" {
		return nil, errors.New("ids query parameter is required")
	}

	var ids []int
	for _, part := range strings.Split(param, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.New("invalid patient id: " + part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
