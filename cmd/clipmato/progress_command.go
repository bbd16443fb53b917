package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"clipmato/internal/progress"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "progress <id>",
		Short: "Show the processing progress of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := ctx.ensureComponents(cmd.Context())
			if err != nil {
				return err
			}
			read := func(ctx context.Context) (progress.Status, error) {
				return components.Progress.Read(ctx, args[0]), nil
			}
			if follow {
				_, err := followProgress(cmd.Context(), cmd.OutOrStdout(), progressPollInterval, read)
				return err
			}
			status, _ := read(cmd.Context())
			if jsonOutput {
				return writeJSON(cmd, status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), progressLine(status, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Poll until the job finishes")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the status as JSON")
	return cmd
}
