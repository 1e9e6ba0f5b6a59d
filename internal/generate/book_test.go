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

func TestOutlineStageTestMode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	job := newTestJob(t, jobs.TypeBook, "The Silent City", `{"num_chapters":3}`)

	handler := generate.NewOutlineStage(cfg, logging.NewNop())
	res, err := handler.Generate(context.Background(), job)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	raw, err := os.ReadFile(res.Output)
	if err != nil {
		t.Fatalf("outline not written: %v", err)
	}
	if got := strings.Count(string(raw), "<chapter"); got != 6 {
		t.Errorf("expected 3 open + 3 close tags, got %d occurrences:\n%s", got, raw)
	}
}

func TestOutlineStageRejectsUntaggedResponse(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTestMode(false))
	job := newTestJob(t, jobs.TypeBook, "The Silent City", "")

	client := newScriptedLLM(t, scripted("Sorry, I cannot produce an outline."))
	handler := generate.NewOutlineStageWithClient(cfg, logging.NewNop(), client)
	_, err := handler.Generate(context.Background(), job)
	if !errors.Is(err, services.ErrStage) {
		t.Fatalf("expected stage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "no chapter tags") {
		t.Errorf("unexpected error: %v", err)
	}
}

func newBookJob(t *testing.T, store *jobs.Store, options string) *jobs.Job {
	t.Helper()
	job, err := store.NewJob(context.Background(), jobs.TypeBook, "The Silent City", options)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	job.Status = jobs.StatusProcessing
	job.WorkDir = t.TempDir()
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	return job
}

func TestChapterStageWritesChaptersSequentially(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTestMode(false))
	store := testsupport.MustOpenStore(t, cfg)
	job := newBookJob(t, store, `{"num_chapters":3,"genre":"mystery"}`)

	testsupport.WriteText(t, filepath.Join(job.WorkDir, "book_outline.txt"),
		"<chapter1>The Arrival</chapter1>\n<chapter2>The Search</chapter2>\n<chapter3>The Reveal</chapter3>")

	client := newScriptedLLM(t,
		scripted("Chapter one prose."),
		scripted("Chapter two prose."),
		scripted("Chapter three prose."),
	)
	handler := generate.NewChapterStageWithClient(cfg, store, logging.NewNop(), client)
	res, err := handler.Generate(context.Background(), job)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Artifacts) != 3 {
		t.Fatalf("expected 3 chapter files, got %d", len(res.Artifacts))
	}

	first, err := os.ReadFile(filepath.Join(job.WorkDir, "book_content", "chapter_01_the_arrival.txt"))
	if err != nil {
		t.Fatalf("chapter file missing: %v", err)
	}
	if string(first) != "Chapter one prose." {
		t.Errorf("chapter content = %q", first)
	}

	stored, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.PhaseDetail != "chapter 3 of 3" {
		t.Errorf("phase detail = %q, want final chapter progress", stored.PhaseDetail)
	}
}

func TestChapterStageHaltsOnFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTestMode(false))
	store := testsupport.MustOpenStore(t, cfg)
	job := newBookJob(t, store, `{"num_chapters":3}`)

	testsupport.WriteText(t, filepath.Join(job.WorkDir, "book_outline.txt"),
		"<chapter1>One</chapter1><chapter2>Two</chapter2><chapter3>Three</chapter3>")

	client := newScriptedLLM(t,
		scripted("Chapter one prose."),
		scripted("Chapter two prose."),
		nil,
	)
	handler := generate.NewChapterStageWithClient(cfg, store, logging.NewNop(), client)
	_, err := handler.Generate(context.Background(), job)
	if err == nil {
		t.Fatal("expected third chapter to fail")
	}
	if !strings.Contains(err.Error(), "chapter 3 of 3") {
		t.Errorf("error should say which chapter failed: %v", err)
	}

	dir := filepath.Join(job.WorkDir, "book_content")
	if _, statErr := os.Stat(filepath.Join(dir, "chapter_01_one.txt")); statErr != nil {
		t.Error("finished chapters should stay on disk")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "chapter_02_two.txt")); statErr != nil {
		t.Error("finished chapters should stay on disk")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("expected exactly 2 chapter files, got %d", len(entries))
	}
}

func TestBookStageCompilesChapters(t *testing.T) {
	job := newTestJob(t, jobs.TypeBook, "the silent city", "")
	dir := filepath.Join(job.WorkDir, "book_content")
	testsupport.WriteText(t, filepath.Join(dir, "chapter_02_the_search.txt"), "Second.")
	testsupport.WriteText(t, filepath.Join(dir, "chapter_01_the_arrival.txt"), "First.")

	handler := generate.NewBookStage(logging.NewNop())
	res, err := handler.Generate(context.Background(), job)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	raw, err := os.ReadFile(res.Output)
	if err != nil {
		t.Fatalf("book not written: %v", err)
	}
	book := string(raw)
	if !strings.HasPrefix(book, "The Silent City\n===============\n") {
		t.Errorf("missing title heading:\n%s", book[:80])
	}
	arrival := strings.Index(book, "Chapter 1: The Arrival")
	search := strings.Index(book, "Chapter 2: The Search")
	if arrival < 0 || search < 0 || arrival > search {
		t.Errorf("chapters missing or out of order:\n%s", book)
	}
	if strings.Index(book, "First.") > strings.Index(book, "Second.") {
		t.Errorf("chapter bodies out of order:\n%s", book)
	}
}

func TestBookStageRequiresChapters(t *testing.T) {
	job := newTestJob(t, jobs.TypeBook, "The Silent City", "")
	if err := os.MkdirAll(filepath.Join(job.WorkDir, "book_content"), 0o755); err != nil {
		t.Fatal(err)
	}

	handler := generate.NewBookStage(logging.NewNop())
	_, err := handler.Generate(context.Background(), job)
	if err == nil || !strings.Contains(err.Error(), "no chapter files") {
		t.Fatalf("expected missing chapters error, got %v", err)
	}
}
