package generate_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"skald/internal/generate"
	"skald/internal/jobs"
	"skald/internal/logging"
	"skald/internal/services"
	"skald/internal/testsupport"
)

func TestPostStageTestMode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	job := newTestJob(t, jobs.TypePost, "Go Generics", `{"style":"casual","target_audience":"developers"}`)

	handler := generate.NewPostStage(cfg, logging.NewNop())
	res, err := handler.Generate(context.Background(), job)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := filepath.Join(job.WorkDir, "post_go_generics.txt")
	if res.Output != want {
		t.Errorf("output = %q, want %q", res.Output, want)
	}
	raw, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("post not written: %v", err)
	}
	content := string(raw)
	if !strings.Contains(content, "Go Generics") || !strings.Contains(content, "casual") {
		t.Errorf("post should reflect topic and style:\n%s", content)
	}
	if !strings.Contains(content, "developers") {
		t.Errorf("post should mention the audience:\n%s", content)
	}
}

func TestPostStageProviderJSON(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTestMode(false))
	job := newTestJob(t, jobs.TypePost, "Go Generics", "")

	client := newScriptedLLM(t, scripted(`{"post":"Generics are here to stay.","hashtags":["golang","dev tools"]}`))
	handler := generate.NewPostStageWithClient(cfg, logging.NewNop(), client)
	res, err := handler.Generate(context.Background(), job)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	raw, err := os.ReadFile(res.Output)
	if err != nil {
		t.Fatalf("read post: %v", err)
	}
	want := "Generics are here to stay.\n\n#golang #dev tools"
	if string(raw) != want {
		t.Errorf("post content = %q, want %q", raw, want)
	}
}

func TestPostStageRejectsEmptyPost(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTestMode(false))
	job := newTestJob(t, jobs.TypePost, "Go Generics", "")

	client := newScriptedLLM(t, scripted(`{"post":"  ","hashtags":[]}`))
	handler := generate.NewPostStageWithClient(cfg, logging.NewNop(), client)
	_, err := handler.Generate(context.Background(), job)
	if !errors.Is(err, services.ErrStage) {
		t.Fatalf("expected stage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "no post text") {
		t.Errorf("unexpected error: %v", err)
	}
}
