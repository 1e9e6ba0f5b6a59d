package stage

import (
	"context"

	"skald/internal/jobs"
)

// Handler describes the contract the workflow manager needs from each
// generation stage. Handlers are constructed fresh for every job run and
// must not share mutable state across jobs.
type Handler interface {
	// Name identifies the stage in phases, logs, and failure records.
	Name() string
	// Generate produces the stage's artifacts in the job's working
	// directory. A returned error halts the remaining sequence.
	Generate(context.Context, *jobs.Job) (Result, error)
	// Status reports the handler's observable state for polling. It never
	// drives control flow; the manager acts on Generate's error alone.
	Status() string
	// Output returns the principal artifact path after a successful run.
	Output() string
}

// Result carries what a stage produced.
type Result struct {
	// Output is the stage's principal artifact: usually a file path,
	// inline text for stages that hand prose straight to the next stage.
	Output string
	// Artifacts lists files written to the job directory, in creation
	// order. They are retained even when a later stage fails.
	Artifacts []string
	// Scratch lists temporary files the manager removes once the stage
	// returns, regardless of outcome.
	Scratch []string
}

// HealthChecker is implemented by handlers that can verify their external
// dependencies (binaries on PATH, API reachability) ahead of real work.
type HealthChecker interface {
	HealthCheck(context.Context) Health
}

// Health is the outcome of one handler's dependency probe.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy reports the named stage ready to run.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports the named stage blocked, with the reason in Detail.
func Unhealthy(name, reason string) Health {
	return Health{Name: name, Detail: reason}
}
