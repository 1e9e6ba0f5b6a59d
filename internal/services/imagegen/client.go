package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout    = 120 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 2 * time.Second

	// minImageBytes guards against error pages served with status 200.
	minImageBytes = 1024
)

// Config captures the runtime settings for the image service.
type Config struct {
	BaseURL        string
	Model          string
	Width          int
	Height         int
	TimeoutSeconds int
}

// Client fetches rendered images over HTTP.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryAttempts  int
	retryBaseDelay time.Duration
	sleeper        func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetry overrides the retry attempt count and backoff base delay.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.retryAttempts = attempts
		}
		if baseDelay >= 0 {
			c.retryBaseDelay = baseDelay
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs an image client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			Width:          cfg.Width,
			Height:         cfg.Height,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:     &http.Client{Timeout: timeout},
		retryAttempts:  defaultRetryAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://image.pollinations.ai"
	}
	if client.cfg.Model == "" {
		client.cfg.Model = "flux"
	}
	if client.cfg.Width <= 0 {
		client.cfg.Width = 1024
	}
	if client.cfg.Height <= 0 {
		client.cfg.Height = 1024
	}
	return client
}

// Generate renders the prompt with a fixed seed and writes the image bytes
// to outputPath.
func (c *Client) Generate(ctx context.Context, prompt string, seed int64, outputPath string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return errors.New("imagegen generate: prompt required")
	}
	if outputPath == "" {
		return errors.New("imagegen generate: output path required")
	}

	endpoint, err := c.buildURL(prompt, seed)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts(); attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.retryBaseDelay*time.Duration(1<<(attempt-2))); err != nil {
				return err
			}
		}
		lastErr = c.fetchOnce(ctx, endpoint, outputPath)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return fmt.Errorf("imagegen generate: failed after %d attempts: %w", c.attempts(), lastErr)
}

func (c *Client) buildURL(prompt string, seed int64) (string, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "prompt", url.PathEscape(prompt))
	if err != nil {
		return "", fmt.Errorf("imagegen generate: build url: %w", err)
	}
	query := url.Values{}
	query.Set("width", strconv.Itoa(c.cfg.Width))
	query.Set("height", strconv.Itoa(c.cfg.Height))
	query.Set("model", c.cfg.Model)
	query.Set("seed", strconv.FormatInt(seed, 10))
	query.Set("nologo", "true")
	return endpoint + "?" + query.Encode(), nil
}

func (c *Client) fetchOnce(ctx context.Context, endpoint, outputPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("imagegen request: new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("imagegen request: http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("imagegen request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("imagegen request: read body: %w", err)
	}
	if len(data) < minImageBytes {
		return fmt.Errorf("imagegen request: response too small (%d bytes), likely an error placeholder", len(data))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("imagegen request: create output dir: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("imagegen request: write image: %w", err)
	}
	return nil
}

// HealthCheck verifies the image endpoint is reachable. The service needs
// no credentials, so reachability is the whole check.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.cfg.BaseURL, nil)
	if err != nil {
		return fmt.Errorf("imagegen health: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("imagegen health: http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("imagegen health: http %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) attempts() int {
	if c.retryAttempts <= 0 {
		return 1
	}
	return c.retryAttempts
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
