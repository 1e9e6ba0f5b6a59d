package api

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"skald/internal/jobs"
	"skald/internal/stage"
	"skald/internal/workflow"
)

// FromJob converts a job record to its API representation.
func FromJob(job *jobs.Job) Job {
	if job == nil {
		return Job{}
	}

	dto := Job{
		ID:            job.ID,
		ContentType:   string(job.ContentType),
		Topic:         job.Topic,
		Slug:          job.Slug,
		Status:        string(job.Status),
		Phase:         job.Phase,
		PhaseDetail:   job.PhaseDetail,
		Artifacts:     job.Artifacts(),
		PrimaryOutput: job.PrimaryOutput,
		ErrorStage:    job.ErrorStage,
		ErrorMessage:  job.ErrorMessage,
		WorkDir:       job.WorkDir,
		CreatedAt:     FormatTime(job.CreatedAt),
		UpdatedAt:     FormatTime(job.UpdatedAt),
	}
	if raw := strings.TrimSpace(job.OptionsJSON); raw != "" {
		dto.Options = json.RawMessage(raw)
	}
	if job.CompletedAt != nil {
		dto.CompletedAt = FormatTime(*job.CompletedAt)
	}
	if job.FailedAt != nil {
		dto.FailedAt = FormatTime(*job.FailedAt)
	}
	return dto
}

// FromJobs converts a slice of job records into API DTOs.
func FromJobs(records []*jobs.Job) []Job {
	if len(records) == 0 {
		return nil
	}
	out := make([]Job, 0, len(records))
	for _, job := range records {
		out = append(out, FromJob(job))
	}
	return out
}

// FromSummary converts a workflow manager summary to its API payload.
func FromSummary(summary workflow.Summary) WorkflowStatus {
	counts := make(map[string]int, len(summary.JobCounts))
	for status, count := range summary.JobCounts {
		counts[string(status)] = count
	}

	ws := WorkflowStatus{
		Running:     summary.Running,
		Workers:     summary.Workers,
		InFlight:    summary.InFlight,
		JobCounts:   counts,
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastError != "" {
		ws.LastError = summary.LastError
	}
	return ws
}

// FromJobHealth converts store health counts to their API payload.
func FromJobHealth(health jobs.HealthSummary) JobHealth {
	return JobHealth{
		Total:      health.Total,
		Pending:    health.Pending,
		Processing: health.Processing,
		Completed:  health.Completed,
		Failed:     health.Failed,
	}
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns the empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime reverses FormatTime, tolerating plain RFC3339 as well.
func ParseTime(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(dateTimeFormat, trimmed); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t, true
	}
	return time.Time{}, false
}
