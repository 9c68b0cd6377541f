// Package brightdata implements the polling adapters backed by BrightData
// dataset snapshots (LinkedIn and Indeed).
package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jonesrussell/jobsweep/internal/domain"
)

const (
	// DefaultBaseURL is the BrightData datasets API root.
	DefaultBaseURL = "https://api.brightdata.com/datasets/v3"
	// DefaultTimeout bounds trigger and progress calls.
	DefaultTimeout = 30 * time.Second
	// snapshotTimeout bounds snapshot downloads, which can be large.
	snapshotTimeout = 60 * time.Second

	minErrorStatusCode = 400
)

// ErrNoSnapshotID is returned when a trigger response carries no snapshot id.
var ErrNoSnapshotID = errors.New("snapshot id not received in the response")

// Progress is the body of a progress call.
type Progress struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type triggerResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// Client talks to the BrightData datasets API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: snapshotTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Trigger asks BrightData to build a new snapshot for datasetID and returns its id.
func (c *Client) Trigger(ctx context.Context, datasetID string, payload []map[string]any) (string, error) {
	q := url.Values{}
	q.Set("dataset_id", datasetID)
	q.Set("type", "discover_new")
	q.Set("discover_by", "keyword")

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal trigger payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/trigger?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp triggerResponse
	if doErr := c.doRequest(req, &resp); doErr != nil {
		return "", fmt.Errorf("failed to trigger snapshot: %w", doErr)
	}
	if resp.SnapshotID == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrAdapterTransport, ErrNoSnapshotID)
	}
	return resp.SnapshotID, nil
}

// Progress reports the build status of a snapshot.
func (c *Client) Progress(ctx context.Context, snapshotID string) (Progress, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/progress/"+url.PathEscape(snapshotID), http.NoBody)
	if err != nil {
		return Progress{}, fmt.Errorf("failed to create request: %w", err)
	}

	var p Progress
	if doErr := c.doRequest(req, &p); doErr != nil {
		return Progress{}, fmt.Errorf("failed to check snapshot progress: %w", doErr)
	}
	return p, nil
}

// Snapshot downloads the records of a ready snapshot.
func (c *Client) Snapshot(ctx context.Context, snapshotID string) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/snapshot/"+url.PathEscape(snapshotID)+"?format=json", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var records []map[string]any
	if doErr := c.doRequest(req, &records); doErr != nil {
		return nil, fmt.Errorf("failed to retrieve snapshot: %w", doErr)
	}
	return records, nil
}

// doRequest executes req and decodes a JSON body into result. Every failure
// is classified as an adapter transport error.
func (c *Client) doRequest(req *http.Request, result any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", domain.ErrAdapterTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %w", domain.ErrAdapterTransport, err)
	}

	if resp.StatusCode >= minErrorStatusCode {
		return fmt.Errorf("%w: API error (status %d): %s", domain.ErrAdapterTransport, resp.StatusCode, string(body))
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err = json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", domain.ErrAdapterTransport, err)
	}
	return nil
}
