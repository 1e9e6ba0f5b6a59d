package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"skald/internal/config"
	"skald/internal/events"
	"skald/internal/generate"
	"skald/internal/jobs"
	"skald/internal/logging"
	"skald/internal/services"
	"skald/internal/workflow"
)

// Daemon coordinates the background services and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *jobs.Store
	manager *workflow.Manager
	hub     *events.Hub

	lockPath string
	lock     *flock.Flock

	api     *apiServer
	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockPath     string
	Jobs         jobs.HealthSummary
	Workflow     workflow.Summary
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, logger *slog.Logger, manager *workflow.Manager, hub *events.Hub) (*Daemon, error) {
	if cfg == nil || store == nil || manager == nil || hub == nil {
		return nil, errors.New("daemon requires config, store, workflow manager, and event hub")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		manager:  manager,
		hub:      hub,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, sweeps jobs stranded by a previous
// run, and begins serving the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another skald daemon instance is already running")
	}

	swept, err := d.store.FailStale(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("fail stale jobs: %w", err)
	}
	if swept > 0 {
		d.logger.Info("marked interrupted jobs failed", logging.Int64("jobs", swept))
	}

	if err := d.api.start(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("skald daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.addr()))
	return nil
}

// Stop shuts the API listener, drains in-flight pipelines up to the
// configured timeout, and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()

	drainCtx, cancel := context.WithTimeout(context.Background(), d.drainTimeout())
	defer cancel()
	if err := d.manager.Stop(drainCtx); err != nil {
		d.logger.Warn("shutdown drain expired with pipelines still running", logging.Error(err))
	}
	d.hub.Close()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("skald daemon stopped")
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the bound API address, empty until Start succeeds.
func (d *Daemon) Addr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Submit validates a request, records the job, and launches its
// pipeline. The returned job has already transitioned to processing.
func (d *Daemon) Submit(ctx context.Context, contentType, topic, optionsJSON string) (*jobs.Job, error) {
	kind, err := jobs.ParseContentType(contentType)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "submit", "parse content type", err.Error(), nil)
	}
	if strings.TrimSpace(topic) == "" {
		return nil, services.Wrap(services.ErrValidation, "submit", "parse topic", "topic is required", nil)
	}
	if err := generate.ValidateOptions(kind, optionsJSON); err != nil {
		return nil, err
	}

	job, err := d.store.NewJob(ctx, kind, topic, optionsJSON)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := d.manager.Launch(ctx, job); err != nil {
		return job, err
	}
	d.logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldContentType, string(job.ContentType)))
	return job, nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	health, err := d.store.Health(ctx)
	if err != nil {
		d.logger.Warn("failed to read job health", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockPath:     d.lockPath,
		Jobs:         health,
		Workflow:     d.manager.Status(ctx),
	}
}

func (d *Daemon) drainTimeout() time.Duration {
	seconds := d.cfg.Daemon.DrainTimeout
	if seconds <= 0 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}
