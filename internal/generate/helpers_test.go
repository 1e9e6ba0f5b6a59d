package generate_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"skald/internal/jobs"
	"skald/internal/services/llm"
	"skald/internal/textutil"
)

func newTestJob(t *testing.T, kind jobs.ContentType, topic, optionsJSON string) *jobs.Job {
	t.Helper()
	return &jobs.Job{
		ID:          "job-" + string(kind) + "-1",
		ContentType: kind,
		Topic:       topic,
		Slug:        textutil.Slugify(topic),
		Status:      jobs.StatusProcessing,
		OptionsJSON: optionsJSON,
		WorkDir:     t.TempDir(),
	}
}

func completionResponse(t *testing.T, content string) string {
	t.Helper()
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal completion: %v", err)
	}
	return string(raw)
}

// newScriptedLLM returns a client whose server answers successive requests
// with the given completion contents. A nil entry produces a 500 so failure
// paths can be scripted mid-sequence.
func newScriptedLLM(t *testing.T, contents ...*string) *llm.Client {
	t.Helper()
	var mu sync.Mutex
	call := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		index := call
		call++
		mu.Unlock()
		if index >= len(contents) || contents[index] == nil {
			http.Error(w, `{"error":{"message":"scripted failure"}}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionResponse(t, *contents[index])))
	}))
	t.Cleanup(server.Close)

	return llm.NewClient(llm.Config{
		APIKey:  "test",
		BaseURL: server.URL,
		Model:   "test-model",
	}, llm.WithHTTPClient(server.Client()), llm.WithRetryMaxAttempts(1))
}

func scripted(content string) *string {
	return &content
}
