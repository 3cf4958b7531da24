package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(patients *fakePatientSource, notes *fakeNoteSource) (*echo.Echo, *RiskCache) {
	cache := NewRiskCache(newTestService(patients, notes))
	e := echo.New()
	registerRoutes(e, cache)
	return e, cache
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHeartbeat(t *testing.T) {
	e, _ := testServer(&fakePatientSource{}, &fakeNoteSource{})
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/heartbeat", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetRisk(t *testing.T) {
	t.Run("risk level as text", func(t *testing.T) {
		patients := &fakePatientSource{patient: Patient{BirthDate: birthdate(1974, time.March, 2), Gender: "M"}}
		notes := &fakeNoteSource{notes: notesOf("rechute, fumer", "vertige, ANORMALES")}
		e, cache := testServer(patients, notes)

		rec := serve(e, httptest.NewRequest(http.MethodGet, "/risks/1", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Borderline", rec.Body.String())
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("not applicable without notes", func(t *testing.T) {
		patients := &fakePatientSource{patient: Patient{BirthDate: birthdate(1974, time.March, 2), Gender: "M"}}
		e, _ := testServer(patients, &fakeNoteSource{})

		rec := serve(e, httptest.NewRequest(http.MethodGet, "/risks/1", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Not applicable", rec.Body.String())
	})

	t.Run("unknown patient", func(t *testing.T) {
		patients := &fakePatientSource{err: fmt.Errorf("%w: patient 2", ErrPatientNotFound)}
		e, cache := testServer(patients, &fakeNoteSource{})

		rec := serve(e, httptest.NewRequest(http.MethodGet, "/risks/2", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("upstream unavailable", func(t *testing.T) {
		patients := &fakePatientSource{err: errors.New("connection refused")}
		e, _ := testServer(patients, &fakeNoteSource{})

		rec := serve(e, httptest.NewRequest(http.MethodGet, "/risks/3", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		e, _ := testServer(&fakePatientSource{}, &fakeNoteSource{})

		rec := serve(e, httptest.NewRequest(http.MethodGet, "/risks/abc", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("caller went away", func(t *testing.T) {
		patients := &fakePatientSource{release: make(chan struct{})}
		defer close(patients.release)
		e, _ := testServer(patients, &fakeNoteSource{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodGet, "/risks/4", nil).WithContext(ctx)

		rec := serve(e, req)
		assert.Equal(t, statusClosedConnection, rec.Code)
	})
}

func TestGetRisks(t *testing.T) {
	t.Run("results follow request order", func(t *testing.T) {
		patients := &fakePatientSource{patient: Patient{BirthDate: birthdate(1974, time.March, 2), Gender: "M"}}
		notes := &fakeNoteSource{notes: notesOf("rechute, vertige")}
		e, cache := testServer(patients, notes)

		rec := serve(e, httptest.NewRequest(http.MethodGet, "/risks?ids=3,1,2", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var results []RiskResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
		require.Len(t, results, 3)
		for i, id := range []int{3, 1, 2} {
			assert.Equal(t, id, results[i].PatientId)
			assert.Equal(t, "Borderline", results[i].Risk)
			assert.Empty(t, results[i].Error)
		}
		assert.Equal(t, 3, cache.Len())
	})

	t.Run("per patient errors", func(t *testing.T) {
		patients := &fakePatientSource{err: fmt.Errorf("%w: patient", ErrPatientNotFound)}
		e, _ := testServer(patients, &fakeNoteSource{})

		rec := serve(e, httptest.NewRequest(http.MethodGet, "/risks?ids=7", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[{"patientId":7,"error":"patient not found"}]`, rec.Body.String())
	})

	t.Run("upstream errors", func(t *testing.T) {
		patients := &fakePatientSource{err: errors.New("timeout")}
		e, _ := testServer(patients, &fakeNoteSource{})

		rec := serve(e, httptest.NewRequest(http.MethodGet, "/risks?ids=8", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[{"patientId":8,"error":"service unavailable"}]`, rec.Body.String())
	})

	t.Run("missing ids", func(t *testing.T) {
		e, _ := testServer(&fakePatientSource{}, &fakeNoteSource{})
		rec := serve(e, httptest.NewRequest(http.MethodGet, "/risks", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		e, _ := testServer(&fakePatientSource{}, &fakeNoteSource{})
		rec := serve(e, httptest.NewRequest(http.MethodGet, "/risks?ids=1,x", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestInvalidateRisk(t *testing.T) {
	patients := &fakePatientSource{patient: Patient{BirthDate: birthdate(1974, time.March, 2), Gender: "M"}}
	notes := &fakeNoteSource{notes: notesOf("rechute")}
	e, cache := testServer(patients, notes)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/risks/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "None", rec.Body.String())

	rec = serve(e, httptest.NewRequest(http.MethodDelete, "/risks/1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, cache.Len())

	// Fresh round-trip after invalidation
	notes.notes = notesOf("rechute", "vertige")
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/risks/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Borderline", rec.Body.String())
	assert.EqualValues(t, 2, patients.calls.Load())

	rec = serve(e, httptest.NewRequest(http.MethodDelete, "/risks/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForwardAuth(t *testing.T) {
	t.Run("header reaches the sources", func(t *testing.T) {
		patients := &fakePatientSource{patient: Patient{BirthDate: birthdate(1974, time.March, 2), Gender: "M"}}
		e, _ := testServer(patients, &fakeNoteSource{})

		req := httptest.NewRequest(http.MethodGet, "/risks/1", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpzZWNyZXQ=")
		rec := serve(e, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Basic dXNlcjpzZWNyZXQ=", patients.auth())
	})

	t.Run("bearer subject is exposed", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "practitioner-1"}).SignedString([]byte("key"))
		require.NoError(t, err)

		var user interface{}
		handler := forwardAuth(func(c echo.Context) error {
			user = c.Get("user")
			assert.Equal(t, "Bearer "+signed, authorizationFrom(c.Request().Context()))
			return c.NoContent(http.StatusOK)
		})

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		c := e.NewContext(req, httptest.NewRecorder())

		require.NoError(t, handler(c))
		assert.Equal(t, "practitioner-1", user)
	})

	t.Run("opaque bearer token is still forwarded", func(t *testing.T) {
		handler := forwardAuth(func(c echo.Context) error {
			assert.Nil(t, c.Get("user"))
			assert.Equal(t, "Bearer opaque", authorizationFrom(c.Request().Context()))
			return nil
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer opaque")
		require.NoError(t, handler(echo.New().NewContext(req, httptest.NewRecorder())))
	})
}

func TestParseIds(t *testing.T) {
	ids, err := parseIds("1, 2,3")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids)

	_, err = parseIds("")
	assert.Error(t, err)

	_, err = parseIds("1,,2")
	assert.Error(t, err)
}
