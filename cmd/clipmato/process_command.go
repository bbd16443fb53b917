package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"clipmato/internal/api"
	"clipmato/internal/config"
	"clipmato/internal/daemonrun"
	"clipmato/internal/metadata"
	"clipmato/internal/processing"
)

// inlineSubmitter runs each submitted job to completion before returning.
type inlineSubmitter struct {
	ctx       context.Context
	processor *processing.Processor
	record    metadata.Record
}

func (s *inlineSubmitter) Submit(job processing.Job) error {
	s.record = s.processor.Process(s.ctx, job)
	return nil
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var removeSilence bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Process a media file in this process and print the resulting record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			components, err := ctx.ensureComponents(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("remove-silence") {
				cfg, _ := ctx.ensureConfig()
				removeSilence = cfg.Workflow.RemoveSilence
			}

			record, err := processFile(cmd.Context(), components, ctx.logger, path, removeSilence)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, record)
			}
			printRecordSummary(cmd.OutOrStdout(), record)
			if record.Failed() {
				return fmt.Errorf("processing failed: %s", record.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&removeSilence, "remove-silence", false, "Trim long silences after editing (default: workflow.remove_silence)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the record as JSON")
	return cmd
}

// processFile copies path into the upload directory exactly as an HTTP upload
// would, then runs the job inline.
func processFile(ctx context.Context, components *daemonrun.Components, logger *slog.Logger, path string, removeSilence bool) (metadata.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return metadata.Record{}, err
	}
	defer file.Close()

	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return metadata.Record{}, fmt.Errorf("detect media type: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return metadata.Record{}, err
	}

	submitter := &inlineSubmitter{ctx: ctx, processor: components.Processor}
	uploads := api.NewUploadService(components.Uploads, components.Progress, submitter, logger)
	if _, err := uploads.Accept(ctx, filepath.Base(path), detected.String(), file, removeSilence); err != nil {
		return metadata.Record{}, err
	}
	return submitter.record, nil
}

func printRecordSummary(out io.Writer, record metadata.Record) {
	fmt.Fprintf(out, "ID:        %s\n", record.ID)
	fmt.Fprintf(out, "File:      %s\n", record.Filename)
	if record.Failed() {
		fmt.Fprintf(out, "Error:     %s\n", record.Error)
		return
	}
	fmt.Fprintf(out, "Title:     %s\n", record.Title())
	if record.Language != "" {
		fmt.Fprintf(out, "Language:  %s\n", record.Language)
	}
	if record.ShortDescription != "" {
		fmt.Fprintf(out, "Summary:   %s\n", record.ShortDescription)
	}
	if record.EditedAudio != "" {
		fmt.Fprintf(out, "Audio:     %s\n", record.EditedAudio)
	}
	if record.OriginalDuration != nil && record.TrimmedDuration != nil {
		fmt.Fprintf(out, "Duration:  %.1fs -> %.1fs\n", *record.OriginalDuration, *record.TrimmedDuration)
	}
}
