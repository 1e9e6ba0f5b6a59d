package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status models the job lifecycle state machine.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var statusSet = map[Status]struct{}{
	StatusPending:    {},
	StatusProcessing: {},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// ParseStatus validates and normalizes a status string.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[status]; !ok {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return status, nil
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ContentType selects the stage sequence a job runs.
type ContentType string

const (
	TypeStory       ContentType = "story"
	TypeEducational ContentType = "educational"
	TypePodcast     ContentType = "podcast"
	TypeBook        ContentType = "book"
	TypeMusic       ContentType = "music"
	TypePost        ContentType = "post"
)

var contentTypeSet = map[ContentType]struct{}{
	TypeStory:       {},
	TypeEducational: {},
	TypePodcast:     {},
	TypeBook:        {},
	TypeMusic:       {},
	TypePost:        {},
}

// ParseContentType validates and normalizes a content type string.
func ParseContentType(value string) (ContentType, error) {
	ct := ContentType(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := contentTypeSet[ct]; !ok {
		return "", fmt.Errorf("unknown content type %q", value)
	}
	return ct, nil
}

// ContentTypes returns all known content types in display order.
func ContentTypes() []ContentType {
	return []ContentType{TypeStory, TypeEducational, TypePodcast, TypeBook, TypeMusic, TypePost}
}

func (c ContentType) String() string {
	return string(c)
}

// Job represents one generation request and everything produced for it.
type Job struct {
	ID          string
	ContentType ContentType
	Topic       string
	Slug        string
	Status      Status

	// Phase refines StatusProcessing with the stage currently running;
	// PhaseDetail carries a human-readable progress note.
	Phase       string
	PhaseDetail string

	OptionsJSON   string
	ArtifactsJSON string
	PrimaryOutput string

	ErrorStage   string
	ErrorMessage string

	WorkDir string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time
}

// Terminal reports whether the job reached a final state.
func (j *Job) Terminal() bool {
	return j.Status.IsTerminal()
}

// SetPhase records the stage currently executing and a progress note.
func (j *Job) SetPhase(phase, detail string) {
	j.Phase = phase
	j.PhaseDetail = detail
}

// SetFailed marks the job failed and records which stage broke and why.
// The underlying message is stored as received, never re-worded.
func (j *Job) SetFailed(stage, message string) {
	now := time.Now().UTC()
	j.Status = StatusFailed
	j.ErrorStage = stage
	j.ErrorMessage = message
	j.FailedAt = &now
}

// MarkCompleted marks the job completed with its final deliverable.
func (j *Job) MarkCompleted(primaryOutput string) {
	now := time.Now().UTC()
	j.Status = StatusCompleted
	j.PrimaryOutput = primaryOutput
	j.Phase = ""
	j.PhaseDetail = ""
	j.CompletedAt = &now
}

// Artifacts decodes the ordered artifact path list. A corrupt or empty
// column yields an empty list rather than an error; artifacts are
// diagnostic, not load-bearing.
func (j *Job) Artifacts() []string {
	if strings.TrimSpace(j.ArtifactsJSON) == "" {
		return nil
	}
	var paths []string
	if err := json.Unmarshal([]byte(j.ArtifactsJSON), &paths); err != nil {
		return nil
	}
	return paths
}

// SetArtifacts replaces the artifact list.
func (j *Job) SetArtifacts(paths []string) error {
	if len(paths) == 0 {
		j.ArtifactsJSON = ""
		return nil
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("marshal artifacts: %w", err)
	}
	j.ArtifactsJSON = string(data)
	return nil
}

// AppendArtifacts adds paths to the artifact list, skipping duplicates.
func (j *Job) AppendArtifacts(paths ...string) error {
	existing := j.Artifacts()
	seen := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		seen[p] = struct{}{}
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		existing = append(existing, p)
		seen[p] = struct{}{}
	}
	return j.SetArtifacts(existing)
}

// HealthSummary aggregates job counts for diagnostics.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
