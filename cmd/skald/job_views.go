package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"skald/internal/api"
)

var titleCaser = cases.Title(language.English)

const topicColumnWidth = 40

// formatContentType renders a content type for display ("educational" ->
// "Educational").
func formatContentType(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	return titleCaser.String(status)
}

// formatAge renders a creation timestamp as a relative age ("3 minutes
// ago"). Unparseable timestamps pass through untouched.
func formatAge(value string) string {
	t, ok := api.ParseTime(value)
	if !ok {
		return value
	}
	return humanize.Time(t)
}

func truncateTopic(topic string, limit int) string {
	topic = strings.TrimSpace(topic)
	if limit <= 3 || len(topic) <= limit {
		return topic
	}
	return topic[:limit-3] + "..."
}

func jobStatusKind(status string) statusKind {
	switch status {
	case "completed":
		return statusOK
	case "failed":
		return statusError
	case "pending":
		return statusWarn
	default:
		return statusInfo
	}
}

func buildJobRows(records []api.Job) [][]string {
	rows := make([][]string, 0, len(records))
	for _, job := range records {
		output := ""
		if job.PrimaryOutput != "" {
			output = filepath.Base(job.PrimaryOutput)
		}
		rows = append(rows, []string{
			job.ID,
			formatContentType(job.ContentType),
			truncateTopic(job.Topic, topicColumnWidth),
			formatStatusLabel(job.Status),
			formatAge(job.CreatedAt),
			output,
		})
	}
	return rows
}

// renderJob prints one job snapshot as labelled status lines.
func renderJob(out io.Writer, job api.Job, colorize bool) {
	fmt.Fprintln(out, renderStatusLine("Job", statusInfo, job.ID, colorize))
	fmt.Fprintln(out, renderStatusLine("Type", statusInfo, formatContentType(job.ContentType), colorize))
	fmt.Fprintln(out, renderStatusLine("Topic", statusInfo, job.Topic, colorize))

	statusDetail := formatStatusLabel(job.Status)
	if job.Phase != "" {
		statusDetail += " (" + job.Phase
		if job.PhaseDetail != "" {
			statusDetail += ": " + job.PhaseDetail
		}
		statusDetail += ")"
	}
	fmt.Fprintln(out, renderStatusLine("Status", jobStatusKind(job.Status), statusDetail, colorize))

	if job.CreatedAt != "" {
		fmt.Fprintln(out, renderStatusLine("Created", statusInfo, formatAge(job.CreatedAt), colorize))
	}
	if job.PrimaryOutput != "" {
		fmt.Fprintln(out, renderStatusLine("Output", statusOK, job.PrimaryOutput, colorize))
	}
	if job.ErrorMessage != "" {
		detail := job.ErrorMessage
		if job.ErrorStage != "" {
			detail = job.ErrorStage + ": " + detail
		}
		fmt.Fprintln(out, renderStatusLine("Error", statusError, detail, colorize))
	}
	if len(job.Artifacts) > 0 {
		fmt.Fprintln(out, renderStatusLine("Artifacts", statusInfo, fmt.Sprintf("%d on disk", len(job.Artifacts)), colorize))
		for _, artifact := range job.Artifacts {
			fmt.Fprintf(out, "%s%s- %s\n", statusIndent, statusIndent, artifact)
		}
	}
}

// renderTransition prints a one-line progress update while following a job.
func renderTransition(out io.Writer, job api.Job, colorize bool) {
	label := formatStatusLabel(job.Status)
	detail := job.Phase
	if job.PhaseDetail != "" {
		detail += ": " + job.PhaseDetail
	}
	if job.Status == "failed" && job.ErrorMessage != "" {
		detail = job.ErrorStage + ": " + job.ErrorMessage
	}
	fmt.Fprintln(out, renderStatusLine(label, jobStatusKind(job.Status), detail, colorize))
}
