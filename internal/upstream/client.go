// Package upstream talks to the sibling ops and terminal services.
//
// Every call is bounded by the client timeout and never returns an error:
// failures of any kind come back as a Result with Success false.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxBody bounds how much of a sibling response is read.
const maxBody = 1 << 20

// Result is the outcome of one sibling call.
type Result struct {
	Success bool            `json:"success"`
	Service string          `json:"service"`
	Status  int             `json:"status,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Latency time.Duration   `json:"-"`
}

// Client is a time-bounded JSON client for one sibling service.
type Client struct {
	name    string
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient returns a client for the service at baseURL. An empty baseURL
// yields a client whose calls fail immediately.
func NewClient(name, baseURL string, timeout time.Duration) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

// Name returns the service name used in results and logs.
func (c *Client) Name() string { return c.name }

// Configured reports whether the client has a base URL.
func (c *Client) Configured() bool { return c.baseURL != "" }

func (c *Client) fail(status int, err error, start time.Time) Result {
	slog.Warn("upstream call failed", "service", c.name, "status", status, "error", err)
	return Result{Service: c.name, Status: status, Error: err.Error(), Latency: time.Since(start)}
}

// Do sends a JSON request and decodes nothing: the raw body is returned in
// Data when it is valid JSON.
func (c *Client) Do(ctx context.Context, method, path string, body any) Result {
	start := time.Now()
	if !c.Configured() {
		return c.fail(0, fmt.Errorf("%s url not configured", c.name), start)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return c.fail(0, err, start)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return c.fail(0, err, start)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(0, err, start)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return c.fail(resp.StatusCode, err, start)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(data), 200)), start)
	}

	res := Result{Success: true, Service: c.name, Status: resp.StatusCode, Latency: time.Since(start)}
	if len(bytes.TrimSpace(data)) > 0 {
		if !json.Valid(data) {
			return c.fail(resp.StatusCode, fmt.Errorf("response is not JSON"), start)
		}
		res.Data = data
	}
	return res
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
