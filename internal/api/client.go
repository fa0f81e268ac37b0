// Package api is a client for the sync daemon's REST control API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Default retry policy: many attempts with a short delay. The common failure
// mode is a daemon that is still starting up, not one that is gone for good.
const (
	DefaultRetries    = 60
	DefaultRetryDelay = time.Second
)

// Client communicates with the daemon's control API.
type Client struct {
	baseURL    string
	apiKey     string
	retries    int
	retryDelay time.Duration
	httpClient *http.Client
}

// Options tunes the client's transport behavior.
type Options struct {
	Retries    int           // Attempts per call (0 = DefaultRetries)
	RetryDelay time.Duration // Fixed delay between attempts (0 = DefaultRetryDelay)
}

// NewClient creates a new control API client. All requests carry the API key
// in the X-API-Key header.
func NewClient(baseURL, apiKey string, opts Options) *Client {
	if opts.Retries == 0 {
		opts.Retries = DefaultRetries
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Config fetches the daemon's current configuration.
func (c *Client) Config(ctx context.Context) (map[string]any, error) {
	var cfg map[string]any
	if err := c.call(ctx, http.MethodGet, "/rest/config", nil, &cfg); err != nil {
		return nil, fmt.Errorf("fetch config: %w", err)
	}
	return cfg, nil
}

// SetConfig replaces the daemon's configuration.
func (c *Client) SetConfig(ctx context.Context, cfg map[string]any) error {
	if err := c.call(ctx, http.MethodPut, "/rest/config", cfg, nil); err != nil {
		return fmt.Errorf("submit config: %w", err)
	}
	return nil
}

// RestartRequired reports whether the daemon needs a restart for its active
// configuration to match the stored one.
func (c *Client) RestartRequired(ctx context.Context) (bool, error) {
	var resp struct {
		RequiresRestart bool `json:"requiresRestart"`
	}
	if err := c.call(ctx, http.MethodGet, "/rest/config/restart-required", nil, &resp); err != nil {
		return false, fmt.Errorf("query restart-required: %w", err)
	}
	return resp.RequiresRestart, nil
}

// Restart asks the daemon to restart. The call returns once the daemon has
// accepted the command; completion of the restart is not verified.
func (c *Client) Restart(ctx context.Context) error {
	if err := c.call(ctx, http.MethodPost, "/rest/system/restart", nil, nil); err != nil {
		return fmt.Errorf("trigger restart: %w", err)
	}
	return nil
}

// SystemStatus is the daemon's runtime status.
type SystemStatus struct {
	MyID      string    `json:"myID"`
	StartTime time.Time `json:"startTime"`
	Uptime    int64     `json:"uptime"`
}

// Status fetches the daemon's runtime status.
func (c *Client) Status(ctx context.Context) (*SystemStatus, error) {
	var status SystemStatus
	if err := c.call(ctx, http.MethodGet, "/rest/system/status", nil, &status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	return &status, nil
}

// SystemVersion identifies the daemon build.
type SystemVersion struct {
	Version     string `json:"version"`
	LongVersion string `json:"longVersion"`
	OS          string `json:"os"`
	Arch        string `json:"arch"`
}

// Version fetches the daemon's version information.
func (c *Client) Version(ctx context.Context) (*SystemVersion, error) {
	var version SystemVersion
	if err := c.call(ctx, http.MethodGet, "/rest/system/version", nil, &version); err != nil {
		return nil, fmt.Errorf("fetch version: %w", err)
	}
	return &version, nil
}

// call sends a request with the fixed-delay retry policy. Client errors (4xx)
// are not retried: a bad API key or malformed body stays bad.
func (c *Client) call(ctx context.Context, method, path string, body any, response any) error {
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		lastErr = c.do(ctx, method, path, body, response)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && statusErr.Code < 500 {
			return lastErr
		}

		slog.Warn("api request failed, retrying",
			"method", method,
			"path", path,
			"attempt", attempt,
			"error", lastErr,
		)
	}
	return fmt.Errorf("request failed after %d attempts: %w", c.retries, lastErr)
}

func (c *Client) do(ctx context.Context, method, path string, body any, response any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if response != nil {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// StatusError is an HTTP error response from the control API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api returned status %d", e.Code)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Code, e.Body)
}
