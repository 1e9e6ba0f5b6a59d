// Package workflow drives submitted jobs through their generation
// pipelines.
//
// The Manager owns the execution side of the job lifecycle: Launch moves a
// pending job to processing synchronously, then a worker goroutine (gated
// by a bounded slot pool) runs the content type's stage sequence,
// persisting phase, artifacts, and the terminal state after every
// transition. The first failing stage halts the remainder; artifacts
// already on disk stay for diagnostics. A job whose stages all succeed is
// still verified against the filesystem before completion: a declared
// output that does not exist fails the job instead of completing it.
//
// Started jobs are never cancelled. Stop only prevents new launches and
// waits for in-flight work; process exit is the only abort, and the
// store's startup sweep marks the leftovers failed.
package workflow
