package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"skald/internal/api"
	"skald/internal/daemonctl"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		status string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				records, err := client.List(cmd.Context(), status, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd, api.JobListResponse{Jobs: records})
				}

				stdout := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(stdout, "No jobs found")
					return nil
				}
				fmt.Fprintln(stdout, renderTable(
					[]tableColumn{{title: "ID"}, {title: "Type"}, {title: "Topic"}, {title: "Status"}, {title: "Created"}, {title: "Output"}},
					buildJobRows(records),
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (pending, processing, completed, failed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of jobs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw API response")
	return cmd
}
