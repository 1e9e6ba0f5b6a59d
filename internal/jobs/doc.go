// Package jobs persists generation jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, and the startup sweep that fails jobs left in processing by an
// interrupted daemon. Jobs capture the request (content type, topic,
// options), the live sub-phase while a worker runs the stage sequence, and
// the terminal record: either a primary output path or a failure stage plus
// message, never both.
//
// Each job is mutated by exactly one worker; every other component reads.
// The database is transient storage for in-flight and recent jobs, not a
// long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
package jobs
