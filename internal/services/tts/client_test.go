package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSynthesizeWritesAudio(t *testing.T) {
	audio := []byte("ID3fake-mp3-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-123" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Fatalf("unexpected api key header %q", got)
		}
		var payload synthesisRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload.Text != "Hello world" {
			t.Fatalf("unexpected text %q", payload.Text)
		}
		if payload.ModelID != "eleven_multilingual_v2" {
			t.Fatalf("unexpected model %q", payload.ModelID)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audio)
	}))
	defer server.Close()

	out := filepath.Join(t.TempDir(), "voice_over.mp3")
	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	if err := client.Synthesize(context.Background(), "Hello world", "voice-123", out); err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != string(audio) {
		t.Fatalf("output mismatch: got %d bytes", len(data))
	}
}

func TestSynthesizeValidatesInput(t *testing.T) {
	client := NewClient(Config{APIKey: "test"})
	ctx := context.Background()
	if err := client.Synthesize(ctx, "", "voice", "/tmp/out.mp3"); err == nil {
		t.Fatal("expected error for empty text")
	}
	if err := client.Synthesize(ctx, "text", "", "/tmp/out.mp3"); err == nil {
		t.Fatal("expected error for empty voice id")
	}
	if err := client.Synthesize(ctx, "text", "voice", ""); err == nil {
		t.Fatal("expected error for empty output path")
	}
}

func TestSynthesizeRetriesOnServerError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("mp3"))
	}))
	defer server.Close()

	out := filepath.Join(t.TempDir(), "voice_over.mp3")
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL},
		WithRetry(3, 0),
		WithSleeper(func(time.Duration) {}),
	)
	if err := client.Synthesize(context.Background(), "text", "voice", out); err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestSynthesizeDoesNotRetryAuthFailure(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer server.Close()

	out := filepath.Join(t.TempDir(), "voice_over.mp3")
	client := NewClient(
		Config{APIKey: "bad", BaseURL: server.URL},
		WithRetry(3, 0),
		WithSleeper(func(time.Duration) {}),
	)
	err := client.Synthesize(context.Background(), "text", "voice", out)
	if err == nil {
		t.Fatal("expected synthesis to fail")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call for auth failure, got %d", calls)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output file, stat err %v", statErr)
	}
}

func TestSynthesizeRejectsEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	out := filepath.Join(t.TempDir(), "voice_over.mp3")
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL},
		WithRetry(1, 0),
	)
	if err := client.Synthesize(context.Background(), "text", "voice", out); err == nil {
		t.Fatal("expected error for empty audio body")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("expected empty output removed, stat err %v", statErr)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/voices" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"voices":[]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}
