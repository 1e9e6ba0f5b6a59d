package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a job record in a transport-friendly format.
type Job struct {
	ID            string          `json:"id"`
	ContentType   string          `json:"content_type"`
	Topic         string          `json:"topic"`
	Slug          string          `json:"slug"`
	Status        string          `json:"status"`
	Phase         string          `json:"phase,omitempty"`
	PhaseDetail   string          `json:"phase_detail,omitempty"`
	Options       json.RawMessage `json:"options,omitempty"`
	Artifacts     []string        `json:"artifacts,omitempty"`
	PrimaryOutput string          `json:"primary_output,omitempty"`
	ErrorStage    string          `json:"error_stage,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	WorkDir       string          `json:"work_dir,omitempty"`
	CreatedAt     string          `json:"created_at,omitempty"`
	UpdatedAt     string          `json:"updated_at,omitempty"`
	CompletedAt   string          `json:"completed_at,omitempty"`
	FailedAt      string          `json:"failed_at,omitempty"`
}

// SubmitRequest is the body of POST /api/v1/jobs.
type SubmitRequest struct {
	ContentType string          `json:"content_type"`
	Topic       string          `json:"topic"`
	Options     json.RawMessage `json:"options,omitempty"`
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResponse wraps a single job snapshot.
type JobResponse struct {
	Job Job `json:"job"`
}

// JobListResponse wraps a collection of job snapshots.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowStatus summarizes workflow manager state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	Workers     int            `json:"workers"`
	InFlight    int            `json:"in_flight"`
	JobCounts   map[string]int `json:"job_counts"`
	StageHealth []StageHealth  `json:"stage_health"`
	LastError   string         `json:"last_error,omitempty"`
}

// JobHealth tallies job records by status for diagnostic output.
type JobHealth struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	Version      string         `json:"version,omitempty"`
	DatabasePath string         `json:"database_path"`
	LockPath     string         `json:"lock_path"`
	Jobs         JobHealth      `json:"jobs"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// ClearResponse reports how many job records a clear call removed.
type ClearResponse struct {
	Removed int64 `json:"removed"`
}

// ErrorResponse carries a human-readable failure reason.
type ErrorResponse struct {
	Error string `json:"error"`
}
