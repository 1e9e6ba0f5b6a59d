// Package logging builds the structured slog loggers shared by the daemon,
// the CLI, and the generation stages.
//
// It owns the console/JSON handler setup, level and output plumbing, and the
// attribute helpers that keep job IDs, stage names, and correlation IDs
// consistent across log lines. A no-op logger is provided for tests and for
// wiring paths that cannot fail.
//
// Use these constructors instead of ad-hoc slog setup so every component
// logs with the same shape and routing.
package logging
