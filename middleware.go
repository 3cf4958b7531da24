package main

import (
	"errors"
	"strings"
	"syscall"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	// Utilizes a non-standard nginx code
	statusClosedConnection int = 499
)

func filterError(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := c.Response()
		// Process the request
		err := next(c)
		// The below is executed after the request and subsequent middleware
		if err != nil {
			// Check for a broken pipe, modify response status, and create an error
			if errors.Is(err, syscall.EPIPE) {
				logger(c.Request().Context(), err)
				resp.Status = statusClosedConnection
				return nil
			}
		}
		return err
	}
}

// forwardAuth keeps the caller's Authorization header on the request context
// so that the patients and notes services receive the same credentials.
func forwardAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Obtains raw http request
		r := c.Request()

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			return next(c)
		}

		// Store header on request context for outbound calls
		c.SetRequest(r.WithContext(withAuthorization(r.Context(), authHeader)))

		// Bearer tokens are decoded for log context only
		if strings.HasPrefix(authHeader, "Bearer ") {
			token, err := parseToken(authHeader)
			if err != nil {
				zapLogger.Debug("Unable to decode bearer token", zap.Error(err))
				return next(c)
			}
			if sub, err := getSubject(token); err == nil {
				c.Set("user", sub)
			}
		}

		return next(c)
	}
}
