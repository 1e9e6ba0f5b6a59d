package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"skald/internal/config"
	"skald/internal/generate"
	"skald/internal/jobs"
	"skald/internal/logging"
	"skald/internal/services"
	"skald/internal/stage"
)

// ErrStopped is returned by Launch once Stop has been called.
var ErrStopped = errors.New("workflow manager stopped")

// integrityMessage is the exact failure reason recorded when a pipeline
// reports success but its declared output is not on disk.
const integrityMessage = "output file missing"

// Publisher receives a job snapshot after every state transition. The
// manager calls it inline, so implementations must return quickly.
type Publisher interface {
	Publish(job *jobs.Job)
}

// Manager runs submitted jobs through their content-type pipelines on a
// bounded worker pool.
type Manager struct {
	cfg       *config.Config
	store     *jobs.Store
	logger    *slog.Logger
	pipelines PipelineFunc
	publisher Publisher
	probes    []stage.HealthChecker

	slots chan struct{}

	mu       sync.Mutex
	closed   bool
	inflight map[string]struct{}
	lastErr  error

	wg sync.WaitGroup
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithPipelines overrides the pipeline factory (used in tests).
func WithPipelines(fn PipelineFunc) Option {
	return func(m *Manager) {
		if fn != nil {
			m.pipelines = fn
		}
	}
}

// WithPublisher registers a listener for job state transitions.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) {
		m.publisher = p
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *jobs.Store, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Daemon.Workers
	if workers < 1 {
		workers = 1
	}
	m := &Manager{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "workflow-manager"),
		slots:    make(chan struct{}, workers),
		inflight: make(map[string]struct{}),
		probes:   healthProbes(cfg, logger),
	}
	m.pipelines = func(kind jobs.ContentType) ([]stage.Handler, error) {
		return Pipeline(cfg, store, logger, kind)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Launch schedules a job for execution. The pending to processing
// transition happens before Launch returns, so callers observe the job as
// processing immediately; the stages themselves run on a pooled goroutine.
// Launching a terminal job is a no-op, and a job already in flight is left
// alone.
func (m *Manager) Launch(ctx context.Context, job *jobs.Job) error {
	if job == nil {
		return errors.New("launch: nil job")
	}
	if job.Terminal() {
		m.logger.Debug("ignoring launch of terminal job",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("status", string(job.Status)),
		)
		return nil
	}

	handlers, err := m.pipelines(job.ContentType)
	if err != nil {
		return err
	}
	if err := generate.ValidateOptions(job.ContentType, job.OptionsJSON); err != nil {
		return err
	}

	if strings.TrimSpace(job.WorkDir) == "" {
		job.WorkDir = m.cfg.JobDir(job.ID)
	}
	if err := os.MkdirAll(job.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create job directory: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrStopped
	}
	if _, running := m.inflight[job.ID]; running {
		m.mu.Unlock()
		m.logger.Warn("job already in flight, ignoring duplicate launch",
			logging.String(logging.FieldJobID, job.ID))
		return nil
	}
	m.inflight[job.ID] = struct{}{}
	m.mu.Unlock()

	job.Status = jobs.StatusProcessing
	job.SetPhase("", "")
	if err := m.store.Update(ctx, job); err != nil {
		m.finish(job.ID)
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.publish(job)

	// The worker owns a copy so callers can keep reading their snapshot
	// without racing the pipeline's mutations.
	runJob := *job
	m.wg.Add(1)
	go m.run(&runJob, handlers)
	return nil
}

// Stop prevents new launches and waits for in-flight jobs to finish. A
// cancelled context abandons the wait; the jobs themselves keep running
// until process exit.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes the pipeline for one job. It deliberately uses a background
// context: request contexts end with the HTTP exchange, and a started job
// runs to completion regardless of who is still watching.
func (m *Manager) run(job *jobs.Job, handlers []stage.Handler) {
	defer m.wg.Done()
	defer m.finish(job.ID)

	m.slots <- struct{}{}
	defer func() { <-m.slots }()

	ctx := services.WithJobID(context.Background(), job.ID)
	logger := m.logger.With(
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldContentType, string(job.ContentType)),
	)

	start := time.Now()
	logger.Info("job started", logging.Int("stages", len(handlers)))

	var lastOutput, lastStage string
	for _, handler := range handlers {
		lastStage = handler.Name()
		job.SetPhase(handler.Name(), "")
		m.persist(ctx, logger, job, "stage phase")

		stageLogger := logger.With(logging.String(logging.FieldStage, handler.Name()))
		stageCtx := services.WithStage(ctx, handler.Name())
		stageStart := time.Now()
		stageLogger.Info("stage started")

		result, err := handler.Generate(stageCtx, job)
		m.removeScratch(stageLogger, result.Scratch)
		if err != nil {
			m.failJob(ctx, logger, job, handler.Name(), err, time.Since(start))
			return
		}
		if err := job.AppendArtifacts(result.Artifacts...); err != nil {
			stageLogger.Warn("failed to record artifacts", logging.Error(err))
		}
		if out := strings.TrimSpace(result.Output); out != "" {
			lastOutput = out
		}
		m.persist(ctx, logger, job, "stage artifacts")
		stageLogger.Info("stage completed",
			logging.Duration("stage_duration", time.Since(stageStart)),
			logging.String("output", result.Output),
		)
	}

	if !outputOnDisk(lastOutput) {
		err := services.Wrap(services.ErrIntegrity, lastStage, "verify output", integrityMessage, nil)
		m.setLastError(err)
		job.SetFailed(lastStage, integrityMessage)
		m.persist(ctx, logger, job, "integrity failure")
		logger.Error("job failed output verification",
			logging.String(logging.FieldStage, lastStage),
			logging.String("output", lastOutput),
			logging.Error(err),
		)
		return
	}

	job.MarkCompleted(lastOutput)
	m.persist(ctx, logger, job, "job completion")
	logger.Info("job completed",
		logging.String("primary_output", lastOutput),
		logging.Duration("job_duration", time.Since(start)),
	)
}

func (m *Manager) failJob(ctx context.Context, logger *slog.Logger, job *jobs.Job, stageName string, stageErr error, elapsed time.Duration) {
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = stageName + " failed"
	}
	m.setLastError(stageErr)
	job.SetFailed(stageName, message)
	m.persist(ctx, logger, job, "job failure")
	logger.Error("job failed",
		logging.String(logging.FieldStage, stageName),
		logging.String("error_message", message),
		logging.Duration("job_duration", elapsed),
	)
}

// persist writes the job record and notifies the publisher. Persistence
// errors are logged rather than halting the run: the in-memory record is
// authoritative for the remainder of the pipeline, and the startup sweep
// repairs anything a dying store left stale.
func (m *Manager) persist(ctx context.Context, logger *slog.Logger, job *jobs.Job, event string) {
	if err := m.store.Update(ctx, job); err != nil {
		logger.Error("failed to persist "+event, logging.Error(err))
	}
	m.publish(job)
}

func (m *Manager) publish(job *jobs.Job) {
	if m.publisher == nil {
		return
	}
	snapshot := *job
	m.publisher.Publish(&snapshot)
}

func (m *Manager) removeScratch(logger *slog.Logger, paths []string) {
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove scratch file",
				logging.String("path", p),
				logging.Error(err),
			)
		}
	}
}

func (m *Manager) finish(id string) {
	m.mu.Lock()
	delete(m.inflight, id)
	m.mu.Unlock()
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func outputOnDisk(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Summary reports lightweight manager diagnostics for the status surface.
type Summary struct {
	Running     bool
	Workers     int
	InFlight    int
	JobCounts   map[jobs.Status]int
	StageHealth map[string]stage.Health
	LastError   string
}

// Status returns the manager's current view: run state, pool usage, job
// counts by status, and the readiness of each external dependency.
func (m *Manager) Status(ctx context.Context) Summary {
	m.mu.Lock()
	running := !m.closed
	inflight := len(m.inflight)
	lastErr := m.lastErr
	m.mu.Unlock()

	counts, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read job stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(m.probes))
	for _, probe := range m.probes {
		h := probe.HealthCheck(ctx)
		health[h.Name] = h
	}

	summary := Summary{
		Running:     running,
		Workers:     cap(m.slots),
		InFlight:    inflight,
		JobCounts:   counts,
		StageHealth: health,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}
