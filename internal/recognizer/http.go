package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// doGetJSON performs a GET request and unmarshals the JSON response into the result type.
func doGetJSON[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	return doRequestJSON[T](ctx, c, http.MethodGet, endpoint, nil)
}

// doPostJSON performs a POST request with a JSON body (nil for none) and unmarshals the JSON response.
func doPostJSON[T any](ctx context.Context, c *Client, endpoint string, requestBody any) (*T, error) {
	if requestBody == nil {
		return doRequestJSON[T](ctx, c, http.MethodPost, endpoint, nil)
	}
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request body: %w", err)
	}
	return doRequestJSON[T](ctx, c, http.MethodPost, endpoint, bytes.NewReader(jsonBody), withContentType("application/json"))
}

type requestOption func(*http.Request)

func withContentType(ct string) requestOption {
	return func(r *http.Request) {
		r.Header.Set("Content-Type", ct)
	}
}

// doRequestJSON is the internal helper that performs a request bounded by the
// client timeout and decodes a JSON response. Every failure before a body is
// decoded is reported as a *NetworkError.
func doRequestJSON[T any](ctx context.Context, c *Client, method, endpoint string, body io.Reader, opts ...requestOption) (*T, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.resolveURL(endpoint), body)
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: fmt.Errorf("could not create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL constructed from validated base URL via resolveURL
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: fmt.Errorf("could not send request: %w", err)}
	}
	defer resp.Body.Close()

	if !isExpectedStatus(resp.StatusCode, []int{http.StatusOK, http.StatusCreated}) {
		return nil, &NetworkError{Endpoint: endpoint, Status: resp.StatusCode, Err: errors.New(readErrorBody(resp.Body))}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: fmt.Errorf("could not read response body: %w", err)}
	}

	c.captureResponse(endpoint, respBody)

	var result T
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: fmt.Errorf("could not unmarshal response: %w", err)}
	}

	return &result, nil
}

// isExpectedStatus checks if a status code is in the list of expected statuses.
func isExpectedStatus(code int, expected []int) bool {
	return slices.Contains(expected, code)
}

// readErrorBody reads the response body for error messages.
// Returns a placeholder if reading fails (we're already in an error path).
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "(could not read error body)"
	}
	if len(body) == 0 {
		return "(empty body)"
	}
	return string(body)
}
