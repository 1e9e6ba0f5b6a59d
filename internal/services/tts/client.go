package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout    = 120 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 2 * time.Second

	// ElevenLabs voice settings applied to every request.
	voiceStability       = 0.5
	voiceSimilarityBoost = 0.75
)

// Config captures the runtime settings required to talk to ElevenLabs.
type Config struct {
	APIKey         string
	BaseURL        string
	ModelID        string
	TimeoutSeconds int
}

// Client wraps the ElevenLabs text-to-speech API.
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

// NewClient constructs a TTS client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			ModelID:        strings.TrimSpace(cfg.ModelID),
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
		client.cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if client.cfg.ModelID == "" {
		client.cfg.ModelID = "eleven_multilingual_v2"
	}
	return client
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize renders text with the given voice and writes the MP3 stream to
// outputPath. The parent directory must already exist.
func (c *Client) Synthesize(ctx context.Context, text, voiceID, outputPath string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("tts synthesize: text required")
	}
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return errors.New("tts synthesize: voice id required")
	}
	if outputPath == "" {
		return errors.New("tts synthesize: output path required")
	}
	if c.cfg.APIKey == "" {
		return errors.New("tts synthesize: api key required")
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1", "text-to-speech", voiceID)
	if err != nil {
		return fmt.Errorf("tts synthesize: build url: %w", err)
	}
	encoded, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: c.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       voiceStability,
			SimilarityBoost: voiceSimilarityBoost,
		},
	})
	if err != nil {
		return fmt.Errorf("tts synthesize: encode body: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts(); attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.retryBaseDelay*time.Duration(1<<(attempt-2))); err != nil {
				return err
			}
		}
		lastErr = c.synthesizeOnce(ctx, endpoint, encoded, outputPath)
		if lastErr == nil {
			return nil
		}
		if !retryable(ctx, lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("tts synthesize: failed after %d attempts: %w", c.attempts(), lastErr)
}

func (c *Client) synthesizeOnce(ctx context.Context, endpoint string, body []byte, outputPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("tts request: new request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tts request: http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("tts request: create output dir: %w", err)
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("tts request: create output: %w", err)
	}
	written, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		_ = os.Remove(outputPath)
		return fmt.Errorf("tts request: write audio: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(outputPath)
		return fmt.Errorf("tts request: close output: %w", err)
	}
	if written == 0 {
		_ = os.Remove(outputPath)
		return errors.New("tts request: empty audio response")
	}
	return nil
}

// HealthCheck verifies the API key by listing available voices.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("tts health: api key required")
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1", "voices")
	if err != nil {
		return fmt.Errorf("tts health: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("tts health: new request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tts health: http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	return nil
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("tts request: http %d: %s", e.StatusCode, e.Body)
}

func (c *Client) attempts() int {
	if c.retryAttempts <= 0 {
		return 1
	}
	return c.retryAttempts
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode >= http.StatusInternalServerError
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout() || urlErr.Temporary()
	}
	return false
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
