package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"skald/internal/jobs"
	"skald/internal/logging"
	"skald/internal/services"
	"skald/internal/stage"
	"skald/internal/testsupport"
	"skald/internal/workflow"
)

// fakeStage counts Generate calls and returns a canned result. An optional
// gate blocks Generate until released so tests can observe in-flight state.
type fakeStage struct {
	name     string
	gate     chan struct{}
	generate func(job *jobs.Job) (stage.Result, error)

	mu    sync.Mutex
	calls int
}

func newFakeStage(name string) *fakeStage {
	return &fakeStage{name: name}
}

func (f *fakeStage) Name() string { return f.name }

func (f *fakeStage) Generate(_ context.Context, job *jobs.Job) (stage.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	if f.generate != nil {
		return f.generate(job)
	}
	return stage.Result{}, nil
}

func (f *fakeStage) Status() string { return "" }
func (f *fakeStage) Output() string { return "" }

func (f *fakeStage) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// writesOutput makes the fake write a real file into the job directory and
// declare it as the stage output.
func (f *fakeStage) writesOutput(filename string) *fakeStage {
	f.generate = func(job *jobs.Job) (stage.Result, error) {
		path := filepath.Join(job.WorkDir, filename)
		if err := os.WriteFile(path, []byte(f.name), 0o644); err != nil {
			return stage.Result{}, err
		}
		return stage.Result{Output: path, Artifacts: []string{path}}, nil
	}
	return f
}

func pipelineOf(handlers ...stage.Handler) workflow.PipelineFunc {
	return func(jobs.ContentType) ([]stage.Handler, error) {
		return handlers, nil
	}
}

func newManager(t *testing.T, opts ...workflow.Option) (*workflow.Manager, *jobs.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, logging.NewNop(), opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = mgr.Stop(ctx)
	})
	return mgr, store
}

func waitForTerminal(t *testing.T, store *jobs.Store, id string) *jobs.Job {
	t.Helper()
	deadline := time.After(30 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for job %s to finish", id)
		default:
		}
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if job.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLaunchMarksProcessingSynchronously(t *testing.T) {
	writer := newFakeStage("post").writesOutput("post_result.txt")
	writer.gate = make(chan struct{})
	release := sync.OnceFunc(func() { close(writer.gate) })
	mgr, store := newManager(t, workflow.WithPipelines(pipelineOf(writer)))
	t.Cleanup(release)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, jobs.TypePost, "Launch Semantics")
	if err := mgr.Launch(ctx, job); err != nil {
		t.Fatalf("Launch: %v", err)
	}

	observed, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if observed.Status != jobs.StatusProcessing {
		t.Fatalf("expected processing immediately after launch, got %s", observed.Status)
	}
	if observed.Terminal() {
		t.Fatal("fresh submission must not be terminal")
	}

	release()
	done := waitForTerminal(t, store, job.ID)
	if done.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", done.Status, done.ErrorMessage)
	}
	if done.PrimaryOutput == "" {
		t.Fatal("completed job must record a primary output")
	}
	if _, err := os.Stat(done.PrimaryOutput); err != nil {
		t.Fatalf("primary output missing from disk: %v", err)
	}
	if done.ErrorMessage != "" || done.ErrorStage != "" {
		t.Fatalf("completed job must not carry an error record, got %q/%q", done.ErrorStage, done.ErrorMessage)
	}
}

func TestStageFailureHaltsRemainingStages(t *testing.T) {
	first := newFakeStage("text").writesOutput("story_content.txt")
	failing := newFakeStage("narration")
	failing.generate = func(*jobs.Job) (stage.Result, error) {
		return stage.Result{}, services.Wrap(services.ErrStage, "narration", "synthesize narration", "voice service unavailable", nil)
	}
	never := newFakeStage("assembly")
	mgr, store := newManager(t, workflow.WithPipelines(pipelineOf(first, failing, never)))

	ctx := context.Background()
	job := testsupport.NewJob(t, store, jobs.TypeStory, "Halt On Failure")
	if err := mgr.Launch(ctx, job); err != nil {
		t.Fatalf("Launch: %v", err)
	}

	done := waitForTerminal(t, store, job.ID)
	if done.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", done.Status)
	}
	if done.ErrorStage != "narration" {
		t.Fatalf("expected failure attributed to narration, got %q", done.ErrorStage)
	}
	if want := "voice service unavailable"; !strings.Contains(done.ErrorMessage, want) {
		t.Fatalf("expected error message to contain %q, got %q", want, done.ErrorMessage)
	}
	if done.PrimaryOutput != "" {
		t.Fatalf("failed job must not record a primary output, got %q", done.PrimaryOutput)
	}
	if got := never.callCount(); got != 0 {
		t.Fatalf("stage after the failure ran %d times", got)
	}
	if got := first.callCount(); got != 1 {
		t.Fatalf("expected first stage to run once, ran %d times", got)
	}

	artifacts := done.Artifacts()
	if len(artifacts) != 1 || filepath.Base(artifacts[0]) != "story_content.txt" {
		t.Fatalf("expected earlier artifacts retained, got %v", artifacts)
	}
	if _, err := os.Stat(artifacts[0]); err != nil {
		t.Fatalf("retained artifact missing from disk: %v", err)
	}
}

func TestTerminalJobLaunchIsNoOp(t *testing.T) {
	handler := newFakeStage("post").writesOutput("post_result.txt")
	mgr, store := newManager(t, workflow.WithPipelines(pipelineOf(handler)))

	ctx := context.Background()
	job := testsupport.NewJob(t, store, jobs.TypePost, "Run Once")
	if err := mgr.Launch(ctx, job); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	done := waitForTerminal(t, store, job.ID)
	if done.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}

	if err := mgr.Launch(ctx, done); err != nil {
		t.Fatalf("relaunch returned error: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if got := handler.callCount(); got != 1 {
		t.Fatalf("terminal relaunch invoked stages: %d calls", got)
	}
	after, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !after.UpdatedAt.Equal(done.UpdatedAt) || after.Status != done.Status {
		t.Fatalf("terminal relaunch modified the record: %v -> %v", done.UpdatedAt, after.UpdatedAt)
	}
}

func TestDuplicateLaunchWhileInFlightIsIgnored(t *testing.T) {
	handler := newFakeStage("post").writesOutput("post_result.txt")
	handler.gate = make(chan struct{})
	release := sync.OnceFunc(func() { close(handler.gate) })
	mgr, store := newManager(t, workflow.WithPipelines(pipelineOf(handler)))
	t.Cleanup(release)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, jobs.TypePost, "No Double Run")
	if err := mgr.Launch(ctx, job); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if err := mgr.Launch(ctx, job); err != nil {
		t.Fatalf("duplicate Launch returned error: %v", err)
	}

	release()
	waitForTerminal(t, store, job.ID)
	if got := handler.callCount(); got != 1 {
		t.Fatalf("expected a single pipeline run, got %d", got)
	}
}

func TestMissingDeclaredOutputFailsJob(t *testing.T) {
	liar := newFakeStage("assembly")
	liar.generate = func(job *jobs.Job) (stage.Result, error) {
		return stage.Result{Output: filepath.Join(job.WorkDir, "content_video.mp4")}, nil
	}
	mgr, store := newManager(t, workflow.WithPipelines(pipelineOf(liar)))

	ctx := context.Background()
	job := testsupport.NewJob(t, store, jobs.TypeStory, "Integrity Gate")
	if err := mgr.Launch(ctx, job); err != nil {
		t.Fatalf("Launch: %v", err)
	}

	done := waitForTerminal(t, store, job.ID)
	if done.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", done.Status)
	}
	if done.ErrorMessage != "output file missing" {
		t.Fatalf("expected error message %q, got %q", "output file missing", done.ErrorMessage)
	}
	if done.ErrorStage != "assembly" {
		t.Fatalf("expected failure attributed to the final stage, got %q", done.ErrorStage)
	}
	if done.PrimaryOutput != "" {
		t.Fatalf("failed job must not record a primary output, got %q", done.PrimaryOutput)
	}
}

func TestScratchFilesRemovedAfterStage(t *testing.T) {
	var scratchPath string
	handler := newFakeStage("music")
	handler.generate = func(job *jobs.Job) (stage.Result, error) {
		out := filepath.Join(job.WorkDir, "generated_music.wav")
		scratchPath = filepath.Join(job.WorkDir, "mix_plan.txt")
		for _, p := range []string{out, scratchPath} {
			if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
				return stage.Result{}, err
			}
		}
		return stage.Result{Output: out, Artifacts: []string{out}, Scratch: []string{scratchPath}}, nil
	}
	mgr, store := newManager(t, workflow.WithPipelines(pipelineOf(handler)))

	ctx := context.Background()
	job := testsupport.NewJob(t, store, jobs.TypeMusic, "Scratch Cleanup")
	if err := mgr.Launch(ctx, job); err != nil {
		t.Fatalf("Launch: %v", err)
	}

	done := waitForTerminal(t, store, job.ID)
	if done.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", done.Status, done.ErrorMessage)
	}
	if _, err := os.Stat(scratchPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected scratch file removed, stat returned %v", err)
	}
	if _, err := os.Stat(done.PrimaryOutput); err != nil {
		t.Fatalf("primary output should survive scratch cleanup: %v", err)
	}
}

func TestLaunchRejectsInvalidOptionsBeforeStages(t *testing.T) {
	handler := newFakeStage("synthesis")
	mgr, store := newManager(t, workflow.WithPipelines(pipelineOf(handler)))

	ctx := context.Background()
	job, err := store.NewJob(ctx, jobs.TypeMusic, "Silent Track", `{"duration": 0}`)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	launchErr := mgr.Launch(ctx, job)
	if launchErr == nil {
		t.Fatal("expected validation error from Launch")
	}
	if !errors.Is(launchErr, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", launchErr)
	}
	if got := handler.callCount(); got != 0 {
		t.Fatalf("validation failure must precede stages, got %d calls", got)
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != jobs.StatusPending {
		t.Fatalf("rejected job should stay pending, got %s", stored.Status)
	}
}

func TestStopDrainsInFlightJobs(t *testing.T) {
	handler := newFakeStage("post").writesOutput("post_result.txt")
	handler.gate = make(chan struct{})
	release := sync.OnceFunc(func() { close(handler.gate) })
	mgr, store := newManager(t, workflow.WithPipelines(pipelineOf(handler)))
	t.Cleanup(release)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, jobs.TypePost, "Drain On Stop")
	if err := mgr.Launch(ctx, job); err != nil {
		t.Fatalf("Launch: %v", err)
	}

	stopDone := make(chan error, 1)
	go func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		stopDone <- mgr.Stop(stopCtx)
	}()

	select {
	case err := <-stopDone:
		t.Fatalf("Stop returned before the in-flight job finished: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	release()
	if err := <-stopDone; err != nil {
		t.Fatalf("Stop: %v", err)
	}

	done, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if done.Status != jobs.StatusCompleted {
		t.Fatalf("drained job should have completed, got %s (%s)", done.Status, done.ErrorMessage)
	}

	next := testsupport.NewJob(t, store, jobs.TypePost, "Too Late")
	if err := mgr.Launch(ctx, next); !errors.Is(err, workflow.ErrStopped) {
		t.Fatalf("expected ErrStopped after Stop, got %v", err)
	}
}

func TestStatusReportsPoolAndHealth(t *testing.T) {
	handler := newFakeStage("post").writesOutput("post_result.txt")
	handler.gate = make(chan struct{})
	release := sync.OnceFunc(func() { close(handler.gate) })

	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2))
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, logging.NewNop(), workflow.WithPipelines(pipelineOf(handler)))
	t.Cleanup(func() {
		release()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = mgr.Stop(ctx)
	})

	ctx := context.Background()
	job := testsupport.NewJob(t, store, jobs.TypePost, "Status Probe")
	if err := mgr.Launch(ctx, job); err != nil {
		t.Fatalf("Launch: %v", err)
	}

	summary := mgr.Status(ctx)
	if !summary.Running {
		t.Fatal("expected manager to report running")
	}
	if summary.Workers != 2 {
		t.Fatalf("expected 2 worker slots, got %d", summary.Workers)
	}
	if summary.InFlight != 1 {
		t.Fatalf("expected 1 in-flight job, got %d", summary.InFlight)
	}
	if got := summary.JobCounts[jobs.StatusProcessing]; got != 1 {
		t.Fatalf("expected 1 processing job in counts, got %d", got)
	}
	for _, name := range []string{"text", "images", "narration", "assembly"} {
		health, ok := summary.StageHealth[name]
		if !ok {
			t.Fatalf("expected health entry for %s, got %v", name, summary.StageHealth)
		}
		if !health.Ready {
			t.Fatalf("expected %s healthy in test mode, got %+v", name, health)
		}
	}

	release()
	waitForTerminal(t, store, job.ID)

	stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mgr.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if after := mgr.Status(ctx); after.Running {
		t.Fatal("expected manager to report stopped")
	}
}

func TestPipelineUnknownContentType(t *testing.T) {
	mgr, store := newManager(t, workflow.WithPipelines(func(jobs.ContentType) ([]stage.Handler, error) {
		return nil, fmt.Errorf("no pipeline for content type %q", "mystery")
	}))

	ctx := context.Background()
	job := testsupport.NewJob(t, store, jobs.TypePost, "Mystery")
	if err := mgr.Launch(ctx, job); err == nil {
		t.Fatal("expected pipeline construction error")
	}
}
