package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"skald/internal/daemonctl"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage job records",
	}

	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	jobsCmd.AddCommand(newJobsRemoveCommand(ctx))

	return jobsCmd
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var (
		clearCompleted bool
		clearFailed    bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove job records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			status := ""
			switch {
			case clearCompleted:
				status = "completed"
			case clearFailed:
				status = "failed"
			}
			return ctx.withClient(func(client *daemonctl.Client) error {
				removed, err := client.Clear(cmd.Context(), status)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case clearCompleted:
					fmt.Fprintf(out, "Cleared %d completed jobs\n", removed)
				case clearFailed:
					fmt.Fprintf(out, "Cleared %d failed jobs\n", removed)
				default:
					fmt.Fprintf(out, "Cleared %d jobs\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Only remove completed jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Only remove failed jobs")
	return cmd
}

func newJobsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job>",
		Short: "Remove one job record by id or topic slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				if err := client.Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed job %s\n", args[0])
				return nil
			})
		},
	}
}
