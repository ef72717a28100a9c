package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ringside-dev/ringside/internal/model"
)

// Status is the query lifecycle status answered by a sidecar.
type Status = model.Status

// Config configures the API client.
type Config struct {
	// BaseURL is the sidecar base URL (e.g. "http://helper1:17440").
	BaseURL string
	// HTTPClient is the HTTP client for the requests.
	// Default: http.DefaultClient.
	HTTPClient *http.Client
}

func (c *Config) defaults() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	return nil
}

// Client is a typed HTTP client for the ringside sidecar API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new sidecar API client.
func New(cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
	}, nil
}

// CoordinatorQueryRequest are the inputs of a coordinator query start.
type CoordinatorQueryRequest struct {
	CommitHash        string `json:"commit_hash"`
	Size              int    `json:"size"`
	MaxBreakdownKey   int    `json:"max_breakdown_key"`
	MaxTriggerValue   int    `json:"max_trigger_value"`
	PerUserCreditCap  int    `json:"per_user_credit_cap"`
	MaliciousSecurity bool   `json:"malicious_security"`
}

// HelperQueryRequest are the inputs of a helper query start.
type HelperQueryRequest struct {
	CommitHash        string `json:"commit_hash"`
	GateType          string `json:"gate_type"`
	StallDetection    bool   `json:"stall_detection"`
	MultiThreading    bool   `json:"multi_threading"`
	DisableMetrics    bool   `json:"disable_metrics"`
	RevealAggregation bool   `json:"reveal_aggregation"`
}

// DemoQueryRequest are the inputs of a demo-log query start.
type DemoQueryRequest struct {
	Lines          int `json:"lines"`
	RuntimeSeconds int `json:"runtime_seconds"`
}

// QueryStatus is the status payload of a query.
type QueryStatus struct {
	Status         Status     `json:"status"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	CPUPercent     float64    `json:"cpu_percent,omitempty"`
	MemoryRSSBytes uint64     `json:"memory_rss_bytes,omitempty"`
}

type startResponse struct {
	QueryID string `json:"query_id"`
}

type runningQueriesResponse struct {
	RunningQueries []string `json:"running_queries"`
}

type capacityResponse struct {
	CapacityAvailable bool `json:"capacity_available"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// StartCoordinatorQuery asks the sidecar to start a coordinator query and
// returns the accepted query ID.
func (c *Client) StartCoordinatorQuery(ctx context.Context, queryID string, req CoordinatorQueryRequest) (string, error) {
	return c.startQuery(ctx, "ipa-coordinator", queryID, req)
}

// StartHelperQuery asks the sidecar to start a helper query and returns the
// accepted query ID.
func (c *Client) StartHelperQuery(ctx context.Context, queryID string, req HelperQueryRequest) (string, error) {
	return c.startQuery(ctx, "ipa-helper", queryID, req)
}

// StartDemoQuery asks the sidecar to start a demo-log query and returns the
// accepted query ID.
func (c *Client) StartDemoQuery(ctx context.Context, queryID string, req DemoQueryRequest) (string, error) {
	return c.startQuery(ctx, "demo-log", queryID, req)
}

func (c *Client) startQuery(ctx context.Context, kind, queryID string, req any) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("could not marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/queries/%s/%s", c.baseURL, kind, queryID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", c.apiError(resp)
	}

	var sr startResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("could not decode response: %w", err)
	}

	return sr.QueryID, nil
}

// Status returns the status payload of a query. The payload is answered even
// for unknown IDs (status NOT_FOUND); errors are transport or decode
// failures only.
func (c *Client) Status(ctx context.Context, queryID string) (QueryStatus, error) {
	url := fmt.Sprintf("%s/api/v1/queries/%s/status", c.baseURL, queryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return QueryStatus{}, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return QueryStatus{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Status payloads ride on 200 and 404 alike, anything else is an error.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return QueryStatus{}, c.apiError(resp)
	}

	var qs QueryStatus
	if err := json.NewDecoder(resp.Body).Decode(&qs); err != nil {
		return QueryStatus{}, fmt.Errorf("could not decode response: %w", err)
	}
	if _, err := model.ParseStatus(string(qs.Status)); err != nil {
		return QueryStatus{}, fmt.Errorf("invalid status payload: %w", err)
	}

	return qs, nil
}

// Logs streams the reformatted log of a query. The caller owns the returned
// reader and must close it.
func (c *Client) Logs(ctx context.Context, queryID string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/api/v1/queries/%s/log", c.baseURL, queryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.apiError(resp)
	}

	return resp.Body, nil
}

// Kill asks the sidecar to stop a query immediately.
func (c *Client) Kill(ctx context.Context, queryID string) error {
	return c.signal(ctx, queryID, "kill")
}

// Finish asks the sidecar to end a query gracefully.
func (c *Client) Finish(ctx context.Context, queryID string) error {
	return c.signal(ctx, queryID, "finish")
}

func (c *Client) signal(ctx context.Context, queryID, action string) error {
	url := fmt.Sprintf("%s/api/v1/queries/%s/%s", c.baseURL, queryID, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.apiError(resp)
	}

	return nil
}

// RunningQueries returns the IDs of the queries running on the sidecar.
func (c *Client) RunningQueries(ctx context.Context) ([]string, error) {
	var rq runningQueriesResponse
	if err := c.getJSON(ctx, "/api/v1/queries", &rq); err != nil {
		return nil, err
	}
	return rq.RunningQueries, nil
}

// CapacityAvailable tells whether the sidecar can admit another query.
func (c *Client) CapacityAvailable(ctx context.Context) (bool, error) {
	var cr capacityResponse
	if err := c.getJSON(ctx, "/api/v1/capacity", &cr); err != nil {
		return false, err
	}
	return cr.CapacityAvailable, nil
}

// Healthy checks the sidecar liveness endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sidecar unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.apiError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}

	return nil
}

// apiError turns a non-OK response into an error, mapping the well known API
// error codes to the model sentinel errors.
func (c *Client) apiError(resp *http.Response) error {
	var er errorResponse
	msg := ""
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
		msg = er.Error
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusNotFound:
		sentinel = model.ErrNotFound
	case http.StatusConflict:
		sentinel = model.ErrAlreadyExists
	case http.StatusServiceUnavailable:
		sentinel = model.ErrAtCapacity
	case http.StatusForbidden:
		sentinel = model.ErrWrongRole
	case http.StatusUnprocessableEntity:
		sentinel = model.ErrNotValid
	}

	if sentinel != nil {
		if msg != "" {
			return fmt.Errorf("%s: %w", msg, sentinel)
		}
		return fmt.Errorf("status %d: %w", resp.StatusCode, sentinel)
	}
	if msg != "" {
		return fmt.Errorf("api error (status %d): %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("api error (status %d)", resp.StatusCode)
}
