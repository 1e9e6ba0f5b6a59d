// Package daemon hosts the long-running skald process: it enforces
// single-instance execution with a lock file, sweeps jobs left behind
// by a previous run, and serves the HTTP API that accepts submissions
// and reports progress.
//
// Lifecycle: New wires the store, workflow manager, and event hub
// together; Start acquires the lock, fails stale jobs, and begins
// serving; Stop shuts the listener, drains in-flight pipelines up to
// the configured timeout, and releases the lock.
package daemon
