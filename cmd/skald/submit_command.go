package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"skald/internal/daemonctl"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		contentType string
		topic       string
		optionsFile string
		sets        []string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a content generation job",
		Long: `Submit a generation request to the daemon.

The content type selects the pipeline: story and educational produce a
narrated video, podcast an audio episode, book a chaptered text, music a
synthesized track, and post a short text. Stage options come from an
optional YAML file plus --set overrides, for example:

  skald submit --type educational --topic "Space Exploration" --set max_scenes=3
  skald submit --type book --topic "The Last Lighthouse" --set num_chapters=7
  skald submit --type music --topic "calm focus" --set genre=ambient --set duration=90`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(contentType) == "" {
				return fmt.Errorf("--type is required")
			}
			if strings.TrimSpace(topic) == "" {
				return fmt.Errorf("--topic is required")
			}
			options, err := buildOptionsJSON(optionsFile, sets)
			if err != nil {
				return err
			}

			return ctx.withClient(func(client *daemonctl.Client) error {
				resp, err := client.Submit(cmd.Context(), contentType, topic, options)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Job %s submitted (%s)\n", resp.JobID, resp.Status)
				fmt.Fprintf(stdout, "Track it with `skald status %s --follow`\n", resp.JobID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&contentType, "type", "t", "", "Content type (story, educational, podcast, book, music, post)")
	cmd.Flags().StringVar(&topic, "topic", "", "Topic, theme, or character description")
	cmd.Flags().StringVar(&optionsFile, "options-file", "", "YAML file with stage options")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Stage option override (key=value, repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw submission response")
	return cmd
}
