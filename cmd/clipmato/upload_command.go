package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"clipmato/internal/config"
	"clipmato/internal/progress"
)

const progressPollInterval = time.Second

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var removeSilence bool
	var wait bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Submit a media file to the running daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("remove-silence") {
				removeSilence = cfg.Workflow.RemoveSilence
			}

			resp, err := client.Upload(cmd.Context(), path, removeSilence)
			if err != nil {
				return wrapClientError(err, cfg.Paths.APIBind)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Accepted %s as job %s\n", resp.Filename, resp.ID)
			if !wait {
				return nil
			}
			final, err := followProgress(cmd.Context(), out, progressPollInterval, func(ctx context.Context) (progress.Status, error) {
				return client.Progress(ctx, resp.ID)
			})
			if err != nil {
				return wrapClientError(err, cfg.Paths.APIBind)
			}
			if final.Error != "" {
				return fmt.Errorf("job %s failed: %s", resp.ID, final.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&removeSilence, "remove-silence", false, "Trim long silences after editing (default: workflow.remove_silence)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Follow progress until the job finishes")
	return cmd
}

// followProgress polls read until the job reaches a terminal stage, printing
// a line whenever the stage or percentage changes.
func followProgress(ctx context.Context, out io.Writer, interval time.Duration, read func(context.Context) (progress.Status, error)) (progress.Status, error) {
	colorize := shouldColorize(out)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last progress.Status
	printed := false
	for {
		status, err := read(ctx)
		if err != nil {
			return last, err
		}
		if !printed || status.Stage != last.Stage || status.Progress != last.Progress {
			fmt.Fprintln(out, progressLine(status, colorize))
			printed = true
		}
		last = status
		if status.Terminal() {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}
