package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/prodplan/internal/adapters/repository"
	"github.com/okian/prodplan/internal/domain/model"
)

// Client errors.
var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrBackpressure     = errors.New("service rejected the job: queue full")
)

// Client talks to the planning API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// jobReply mirrors the job payload of the jobs endpoints.
type jobReply struct {
	repository.Job
	Duplicate bool `json:"duplicate"`
}

type statsReply struct {
	CapacityPolicy string `json:"capacity_policy"`
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	var body map[string]string
	status, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, &body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: health check returned %d", ErrUnexpectedStatus, status)
	}
	return nil
}

// CapacityPolicy returns the regular capacity policy reported by GET /stats.
func (c *Client) CapacityPolicy(ctx context.Context) (string, error) {
	var body statsReply
	status, err := c.do(ctx, http.MethodGet, "/stats", nil, nil, &body)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: stats returned %d", ErrUnexpectedStatus, status)
	}
	return body.CapacityPolicy, nil
}

// Submit posts in to /v1/jobs under key. A 429 is reported as ErrBackpressure.
func (c *Client) Submit(ctx context.Context, key string, in model.Input) (jobReply, error) {
	var reply jobReply
	headers := map[string]string{"Idempotency-Key": key}
	status, err := c.do(ctx, http.MethodPost, "/v1/jobs", in, headers, &reply)
	if err != nil {
		return reply, err
	}
	switch status {
	case http.StatusAccepted, http.StatusOK:
		return reply, nil
	case http.StatusTooManyRequests:
		return reply, ErrBackpressure
	default:
		return reply, fmt.Errorf("%w: submit returned %d", ErrUnexpectedStatus, status)
	}
}

// Job reads GET /v1/jobs/{id}.
func (c *Client) Job(ctx context.Context, id string) (repository.Job, error) {
	var reply jobReply
	status, err := c.do(ctx, http.MethodGet, "/v1/jobs/"+id, nil, nil, &reply)
	if err != nil {
		return repository.Job{}, err
	}
	if status != http.StatusOK {
		return repository.Job{}, fmt.Errorf("%w: job %s returned %d", ErrUnexpectedStatus, id, status)
	}
	return reply.Job, nil
}

// do sends a JSON request and decodes a successful JSON reply into out.
// Callers judge the status.
func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) (int, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) > 0 && resp.StatusCode < http.StatusBadRequest {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}
