package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"skald/internal/api"
	"skald/internal/daemonctl"
)

const followInterval = time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		follow bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "status [job]",
		Short: "Show daemon status, or one job's progress by id or topic slug",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return ctx.withClient(func(client *daemonctl.Client) error {
					return runDaemonStatus(cmd, client, asJSON)
				})
			}
			jobID := args[0]
			return ctx.withClient(func(client *daemonctl.Client) error {
				return runJobStatus(cmd, client, jobID, follow, asJSON)
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Poll until the job reaches a terminal state")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw API response")
	return cmd
}

func runJobStatus(cmd *cobra.Command, client *daemonctl.Client, jobID string, follow, asJSON bool) error {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	if follow {
		job, err := client.WaitForTerminal(cmd.Context(), jobID, followInterval, func(update api.Job) {
			renderTransition(stdout, update, colorize)
		})
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd, api.JobResponse{Job: job})
		}
		fmt.Fprintln(stdout)
		renderJob(stdout, job, colorize)
		return nil
	}

	job, err := client.Job(cmd.Context(), jobID)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd, api.JobResponse{Job: job})
	}
	renderJob(stdout, job, colorize)
	return nil
}

func runDaemonStatus(cmd *cobra.Command, client *daemonctl.Client, asJSON bool) error {
	status, err := client.Status(cmd.Context())
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd, status)
	}

	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	runningKind := statusError
	runningLabel := "stopped"
	if status.Running {
		runningKind = statusOK
		runningLabel = fmt.Sprintf("running (pid %d)", status.PID)
	}
	fmt.Fprintln(stdout, renderStatusLine("State", runningKind, runningLabel, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Address", statusInfo, client.Address(), colorize))
	fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Workers", statusInfo,
		fmt.Sprintf("%d (%d in flight)", status.Workflow.Workers, status.Workflow.InFlight), colorize))
	if status.Workflow.LastError != "" {
		fmt.Fprintln(stdout, renderStatusLine("Last error", statusWarn, status.Workflow.LastError, colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Stages", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, health := range status.Workflow.StageHealth {
		kind := statusOK
		detail := "ready"
		if !health.Ready {
			kind = statusWarn
			detail = health.Detail
		}
		fmt.Fprintln(stdout, renderStatusLine(formatContentType(health.Name), kind, detail, colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Jobs", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if status.Jobs.Total == 0 {
		fmt.Fprintln(stdout, "No jobs recorded")
		return nil
	}
	fmt.Fprintln(stdout, renderTable(
		[]tableColumn{{title: "Status"}, {title: "Count", numeric: true}},
		buildJobCountRows(status.Jobs),
	))
	return nil
}

func buildJobCountRows(health api.JobHealth) [][]string {
	counts := []struct {
		status string
		count  int
	}{
		{"pending", health.Pending},
		{"processing", health.Processing},
		{"completed", health.Completed},
		{"failed", health.Failed},
	}

	rows := make([][]string, 0, len(counts))
	for _, entry := range counts {
		if entry.count == 0 {
			continue
		}
		rows = append(rows, []string{formatStatusLabel(entry.status), fmt.Sprintf("%d", entry.count)})
	}
	return rows
}
