package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"skald/internal/daemonctl"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "download <job>",
		Short: "Download a completed job's primary output, by id or topic slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				dest, written, err := client.Download(cmd.Context(), args[0], outputPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s (%s)\n", dest, humanize.Bytes(uint64(written)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination path (defaults to the artifact's own filename)")
	return cmd
}
