package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Executor sends one compiled document and returns the API's response.
// It is the single point of contact with the transport: everything above
// it is injectable and offline-testable.
//
// A non-nil Response may accompany a non-nil error: servers that reject
// a document often still return a parseable error body, and the
// correlator needs it to attribute per-record failures.
type Executor func(ctx context.Context, query string) (*Response, error)

// TransportError is a failure with no recoverable response payload: the
// request never completed, or the body was not a graph API reply.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("graph transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client executes documents against a graph API endpoint over HTTP.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewClient returns a client for the given endpoint. token, when
// non-empty, is sent as a bearer Authorization header.
func NewClient(endpoint, token string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: timeout},
	}
}

// Execute implements Executor. Whenever the body decodes as a graph
// response it is returned even on a non-2xx status, alongside the status
// error, so callers can still correlate its error list.
func (c *Client) Execute(ctx context.Context, query string) (*Response, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	var resp Response
	decodeErr := json.Unmarshal(payload, &resp)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		statusErr := fmt.Errorf("unexpected status %d", res.StatusCode)
		if decodeErr == nil && (len(resp.Errors) > 0 || len(resp.Data) > 0) {
			return &resp, statusErr
		}
		return nil, &TransportError{Err: statusErr}
	}

	if decodeErr != nil {
		return nil, &TransportError{Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	return &resp, nil
}
