// Package daemonctl provides the HTTP client the CLI uses to talk to a
// running skald daemon.
package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"skald/internal/api"
	"skald/internal/jobs"
)

// DefaultAddress is where a locally started daemon listens unless
// configured otherwise. It matches the config default for api_bind.
const DefaultAddress = "127.0.0.1:7519"

// APIError carries the daemon's HTTP failure response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("daemon returned HTTP %d", e.StatusCode)
	}
	return e.Message
}

// Unavailable reports whether an error means no daemon is reachable at
// the configured address.
func Unavailable(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, os.ErrNotExist)
}

// Client talks to the daemon's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// NewClient builds a client for the daemon at address. A bare host:port
// is promoted to an http URL.
func NewClient(address string, opts ...Option) *Client {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		trimmed = DefaultAddress
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	c := &Client{
		baseURL: strings.TrimRight(trimmed, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns the normalized base URL the client targets.
func (c *Client) Address() string {
	return c.baseURL
}

// Submit sends a generation request and returns the acknowledgement.
func (c *Client) Submit(ctx context.Context, contentType, topic string, options json.RawMessage) (api.SubmitResponse, error) {
	payload := api.SubmitRequest{ContentType: contentType, Topic: topic, Options: options}
	var resp api.SubmitResponse
	if err := c.postJSON(ctx, "/api/v1/jobs", payload, &resp); err != nil {
		return api.SubmitResponse{}, err
	}
	return resp, nil
}

// Job fetches one job snapshot.
func (c *Client) Job(ctx context.Context, jobID string) (api.Job, error) {
	var resp api.JobResponse
	if err := c.getJSON(ctx, "/api/v1/jobs/"+jobID, &resp); err != nil {
		return api.Job{}, err
	}
	return resp.Job, nil
}

// List fetches job snapshots, optionally filtered by status and capped.
func (c *Client) List(ctx context.Context, status string, limit int) ([]api.Job, error) {
	path := "/api/v1/jobs"
	query := make([]string, 0, 2)
	if trimmed := strings.TrimSpace(status); trimmed != "" {
		query = append(query, "status="+trimmed)
	}
	if limit > 0 {
		query = append(query, "limit="+strconv.Itoa(limit))
	}
	if len(query) > 0 {
		path += "?" + strings.Join(query, "&")
	}
	var resp api.JobListResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Remove deletes one terminal job record. jobRef may be a job id or a
// topic slug.
func (c *Client) Remove(ctx context.Context, jobRef string) error {
	return c.deleteJSON(ctx, "/api/v1/jobs/"+jobRef, nil)
}

// Clear deletes job records. status narrows the sweep to "completed" or
// "failed"; empty clears everything. Returns the number removed.
func (c *Client) Clear(ctx context.Context, status string) (int64, error) {
	path := "/api/v1/jobs"
	if trimmed := strings.TrimSpace(status); trimmed != "" {
		path += "?status=" + trimmed
	}
	var resp api.ClearResponse
	if err := c.deleteJSON(ctx, path, &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

// Status fetches daemon runtime diagnostics.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var resp api.DaemonStatus
	if err := c.getJSON(ctx, "/api/v1/status", &resp); err != nil {
		return api.DaemonStatus{}, err
	}
	return resp, nil
}

// Healthy probes the liveness endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	return c.getJSON(ctx, "/healthz", nil)
}

// Download streams a completed job's primary output to destPath. An
// empty destPath uses the server-suggested filename in the current
// directory. Returns the written path and byte count.
func (c *Client) Download(ctx context.Context, jobID, destPath string) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/jobs/"+jobID+"/download", nil)
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, decodeAPIError(resp)
	}

	dest := strings.TrimSpace(destPath)
	if dest == "" {
		dest = suggestedFilename(resp.Header.Get("Content-Disposition"), jobID)
	}
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", 0, fmt.Errorf("create destination directory: %w", err)
		}
	}
	out, err := os.Create(dest)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("write %s: %w", dest, err)
	}
	return dest, written, nil
}

// WaitForTerminal polls a job until it completes or fails. onUpdate, if
// non-nil, observes every snapshot whose phase or status changed.
func (c *Client) WaitForTerminal(ctx context.Context, jobID string, interval time.Duration, onUpdate func(api.Job)) (api.Job, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastStatus, lastPhase, lastDetail string
	for {
		job, err := c.Job(ctx, jobID)
		if err != nil {
			return api.Job{}, err
		}
		if onUpdate != nil && (job.Status != lastStatus || job.Phase != lastPhase || job.PhaseDetail != lastDetail) {
			onUpdate(job)
			lastStatus, lastPhase, lastDetail = job.Status, job.Phase, job.PhaseDetail
		}
		if jobs.Status(job.Status).IsTerminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) deleteJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload api.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err == nil {
		apiErr.Message = payload.Error
	}
	return apiErr
}

func suggestedFilename(contentDisposition, jobID string) string {
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
			if name := strings.TrimSpace(params["filename"]); name != "" {
				return filepath.Base(name)
			}
		}
	}
	return jobID + ".out"
}
