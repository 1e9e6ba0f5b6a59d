package daemonctl_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"skald/internal/api"
	"skald/internal/daemonctl"
)

func newFakeDaemon(t *testing.T, mux http.Handler) *daemonctl.Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return daemonctl.NewClient(server.URL)
}

// fakeMux routes "METHOD /path" patterns like the Go 1.22+ ServeMux; the
// local toolchain predates method patterns, so dispatch is done by hand.
type fakeMux struct {
	routes map[string]http.HandlerFunc
}

func newFakeMux() *fakeMux {
	return &fakeMux{routes: make(map[string]http.HandlerFunc)}
}

func (m *fakeMux) HandleFunc(pattern string, fn http.HandlerFunc) {
	m.routes[pattern] = fn
}

func (m *fakeMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if fn, ok := m.routes[r.Method+" "+r.URL.Path]; ok {
		fn(w, r)
		return
	}
	http.NotFound(w, r)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode payload: %v", err)
	}
}

func TestClientSubmit(t *testing.T) {
	mux := newFakeMux()
	mux.HandleFunc("POST /api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		var req api.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode submit request: %v", err)
		}
		if req.ContentType != "podcast" || req.Topic != "AI Ethics" {
			t.Errorf("unexpected request %+v", req)
		}
		writeJSON(t, w, http.StatusAccepted, api.SubmitResponse{JobID: "j-1", Status: "processing"})
	})
	client := newFakeDaemon(t, mux)

	resp, err := client.Submit(context.Background(), "podcast", "AI Ethics", json.RawMessage(`{"podcast_type":"topic_based"}`))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.JobID != "j-1" || resp.Status != "processing" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestClientSubmitValidationError(t *testing.T) {
	mux := newFakeMux()
	mux.HandleFunc("POST /api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, api.ErrorResponse{Error: "validation failure: validate options: duration must be positive"})
	})
	client := newFakeDaemon(t, mux)

	_, err := client.Submit(context.Background(), "music", "Calm", json.RawMessage(`{"duration":0}`))
	var apiErr *daemonctl.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", apiErr.StatusCode)
	}
	if apiErr.Message == "" {
		t.Fatal("expected the server message to carry through")
	}
}

func TestClientListBuildsQuery(t *testing.T) {
	mux := newFakeMux()
	mux.HandleFunc("GET /api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("status"); got != "failed" {
			t.Errorf("unexpected status filter %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("unexpected limit %q", got)
		}
		writeJSON(t, w, http.StatusOK, api.JobListResponse{Jobs: []api.Job{{ID: "j-9", Status: "failed"}}})
	})
	client := newFakeDaemon(t, mux)

	listed, err := client.List(context.Background(), "failed", 5)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != "j-9" {
		t.Fatalf("unexpected jobs %+v", listed)
	}
}

func TestClientRemoveAndClear(t *testing.T) {
	mux := newFakeMux()
	mux.HandleFunc("DELETE /api/v1/jobs/j-3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, api.ClearResponse{Removed: 1})
	})
	mux.HandleFunc("DELETE /api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("status"); got != "failed" {
			t.Errorf("unexpected clear status %q", got)
		}
		writeJSON(t, w, http.StatusOK, api.ClearResponse{Removed: 4})
	})
	client := newFakeDaemon(t, mux)

	if err := client.Remove(context.Background(), "j-3"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	removed, err := client.Clear(context.Background(), "failed")
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 4 {
		t.Fatalf("expected 4 removed, got %d", removed)
	}
}

func TestClientDownloadUsesSuggestedName(t *testing.T) {
	mux := newFakeMux()
	mux.HandleFunc("GET /api/v1/jobs/j-1/download", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="content_video.mp4"`)
		_, _ = w.Write([]byte("video bytes"))
	})
	client := newFakeDaemon(t, mux)

	dir := t.TempDir()
	dest, written, err := client.Download(context.Background(), "j-1", filepath.Join(dir, "content_video.mp4"))
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if written != int64(len("video bytes")) {
		t.Fatalf("unexpected byte count %d", written)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != "video bytes" {
		t.Fatalf("unexpected contents %q", data)
	}
}

func TestClientDownloadConflict(t *testing.T) {
	mux := newFakeMux()
	mux.HandleFunc("GET /api/v1/jobs/j-2/download", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusConflict, api.ErrorResponse{Error: "job output is not ready"})
	})
	client := newFakeDaemon(t, mux)

	_, _, err := client.Download(context.Background(), "j-2", filepath.Join(t.TempDir(), "out.bin"))
	var apiErr *daemonctl.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict APIError, got %v", err)
	}
}

func TestClientWaitForTerminal(t *testing.T) {
	var calls atomic.Int64
	mux := newFakeMux()
	mux.HandleFunc("GET /api/v1/jobs/j-3", func(w http.ResponseWriter, r *http.Request) {
		job := api.Job{ID: "j-3", Status: "processing", Phase: "narration"}
		if calls.Add(1) >= 3 {
			job = api.Job{ID: "j-3", Status: "completed", PrimaryOutput: "/out/j-3/podcast_audio.mp3"}
		}
		writeJSON(t, w, http.StatusOK, api.JobResponse{Job: job})
	})
	client := newFakeDaemon(t, mux)

	var updates []string
	final, err := client.WaitForTerminal(context.Background(), "j-3", time.Millisecond, func(job api.Job) {
		updates = append(updates, job.Status+"/"+job.Phase)
	})
	if err != nil {
		t.Fatalf("WaitForTerminal: %v", err)
	}
	if final.Status != "completed" {
		t.Fatalf("unexpected final snapshot %+v", final)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 distinct updates, got %v", updates)
	}
}

func TestClientUnavailable(t *testing.T) {
	// Port from a listener that is already closed.
	server := httptest.NewServer(http.NewServeMux())
	address := server.URL
	server.Close()

	client := daemonctl.NewClient(address)
	_, err := client.Status(context.Background())
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !daemonctl.Unavailable(err) {
		t.Fatalf("expected Unavailable to match, got %v", err)
	}
}

func TestNewClientNormalizesAddress(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"127.0.0.1:7917", "http://127.0.0.1:7917"},
		{"http://localhost:9000/", "http://localhost:9000"},
		{"", "http://" + daemonctl.DefaultAddress},
	}
	for _, tc := range cases {
		if got := daemonctl.NewClient(tc.in).Address(); got != tc.want {
			t.Fatalf("NewClient(%q).Address() = %q, want %q", tc.in, got, tc.want)
		}
	}
}
