package main

import (
	"compress/gzip"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	globalTimeout int = 30
)

type contextKey string

const authorizationKey contextKey = "authorization"

// Shared transport settings for the patients and notes services
type sourceClient struct {
	Host     string
	Username string
	Password string
	Timeout  int
}

func newSourceClient(host string, cfg *Config) sourceClient {
	return sourceClient{
		Host:     strings.TrimRight(host, "/"),
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  cfg.Timeout,
	}
}

func (sc sourceClient) get(ctx context.Context, path string) (*http.Response, []byte, error) {
	// Send request
	resp, err := sendRequest(ctx, http.MethodGet, sc.Host+path, sc.headers(ctx), nil, sc.Timeout)
	if err != nil {
		return nil, nil, err
	}

	// Extract response
	body, err := readBody(resp)
	if err != nil {
		return nil, nil, err
	}

	return resp, body, nil
}

func (sc sourceClient) headers(ctx context.Context) map[string]string {
	headers := map[string]string{
		"Accept":          "application/json",
		"Accept-Encoding": "gzip",
	}

	// Forward the caller's credentials, falling back to the service account
	if auth := authorizationFrom(ctx); auth != "" {
		headers["Authorization"] = auth
	} else if sc.Username != "" {
		encoded := base64.StdEncoding.EncodeToString([]byte(sc.Username + ":" + sc.Password))
		headers["Authorization"] = "Basic " + encoded
	}

	return headers
}

func withAuthorization(ctx context.Context, authHeader string) context.Context {
	return context.WithValue(ctx, authorizationKey, authHeader)
}

func authorizationFrom(ctx context.Context) string {
	auth, _ := ctx.Value(authorizationKey).(string)
	return auth
}

func sendRequest(ctx context.Context, method, url string, headers map[string]string, body io.Reader, timeout ...int) (*http.Response, error) {
	// Get timeout value, if passed, or use the global default
	t := globalTimeout
	if len(timeout) > 0 && timeout[0] > 0 {
		t = timeout[0]
	}

	// Create new HTTP client with timeout
	client := http.Client{
		Timeout: time.Duration(t) * time.Second,
	}

	// Create a new request bound to the caller's context
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	// Set headers if provided
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	// Initiate request
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	// Initialize re-used variables
	var respBody []byte
	var err error

	// Read the body and set up a defer to close the body to avoid
	// leaking resources.
	defer resp.Body.Close()

	// Check for gzipped "Content-Encoding" header
	if resp.Header.Get("Content-Encoding") == "gzip" {
		// Decompress response body
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("error creating gzip reader: %s", err)
		}
		defer gzipReader.Close()

		// Read decompressed content
		respBody, err = io.ReadAll(gzipReader)
		if err != nil {
			return nil, fmt.Errorf("error reading decompressed data: %s", err)
		}
	} else {
		// Assume decompressed data
		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %s", err)
		}
	}
	return respBody, nil
}
