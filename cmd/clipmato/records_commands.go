package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipmato/internal/api"
	"clipmato/internal/progress"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record"},
		Short:   "Inspect and manage stored records",
	}

	recordsCmd.AddCommand(newRecordsListCommand(ctx))
	recordsCmd.AddCommand(newRecordsShowCommand(ctx))
	recordsCmd.AddCommand(newRecordsRemoveCommand(ctx))
	recordsCmd.AddCommand(newRecordsSelectTitleCommand(ctx))
	recordsCmd.AddCommand(newRecordsScheduleCommand(ctx))
	return recordsCmd
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List records with their live progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.recordService(cmd.Context())
			if err != nil {
				return err
			}
			list := svc.List(cmd.Context())
			if jsonOutput {
				return writeJSON(cmd, list)
			}
			out := cmd.OutOrStdout()
			if len(list.Records) == 0 {
				fmt.Fprintln(out, "No records")
				return nil
			}
			fmt.Fprintln(out, renderTable(recordColumns, recordRows(list.Records)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print records as JSON")
	return cmd
}

var recordColumns = []column{
	{Header: "ID"},
	{Header: "File", MaxWidth: 32},
	{Header: "Title", MaxWidth: 40},
	{Header: "Stage"},
	{Header: "Progress", Align: alignRight},
	{Header: "Scheduled"},
}

func recordRows(views []progress.JobView) [][]string {
	rows := make([][]string, 0, len(views))
	for _, view := range views {
		title := view.Record.Title()
		if view.Record.Failed() {
			title = "failed: " + view.Record.Error
		}
		scheduled := view.Record.ScheduleTime
		if scheduled == "" {
			scheduled = "-"
		}
		rows = append(rows, []string{
			view.Record.ID,
			view.Record.Filename,
			title,
			stageLabel(view.Status.Stage),
			strconv.Itoa(view.Status.Progress) + "%",
			scheduled,
		})
	}
	return rows
}

func newRecordsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.recordService(cmd.Context())
			if err != nil {
				return err
			}
			view, err := svc.Describe(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("record %s: %w", args[0], err)
			}
			return writeJSON(cmd, view)
		},
	}
}

func newRecordsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a record with its uploaded files and progress",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.recordService(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := svc.Remove(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("remove %s: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed record %s\n", resp.ID)
			for _, path := range resp.RemovedFiles {
				fmt.Fprintf(out, "  deleted %s\n", path)
			}
			return nil
		},
	}
}

func newRecordsSelectTitleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "select-title <id> <title>",
		Short: "Choose the published title of a record",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.recordService(cmd.Context())
			if err != nil {
				return err
			}
			title := strings.Join(args[1:], " ")
			if index, err := strconv.Atoi(title); err == nil {
				title, err = suggestedTitle(cmd, svc, args[0], index)
				if err != nil {
					return err
				}
			}
			if err := svc.SelectTitle(cmd.Context(), args[0], api.SelectTitleRequest{SelectedTitle: title}); err != nil {
				return fmt.Errorf("select title for %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Selected title for %s: %s\n", args[0], strings.TrimSpace(title))
			return nil
		},
	}
}

// suggestedTitle resolves a 1-based index into the record's suggested titles.
func suggestedTitle(cmd *cobra.Command, svc *api.RecordService, id string, index int) (string, error) {
	view, err := svc.Describe(cmd.Context(), id)
	if err != nil {
		return "", fmt.Errorf("record %s: %w", id, err)
	}
	titles := view.Record.Titles
	if index < 1 || index > len(titles) {
		return "", fmt.Errorf("title %d out of range (record has %d suggestions)", index, len(titles))
	}
	return titles[index-1], nil
}

func newRecordsScheduleCommand(ctx *commandContext) *cobra.Command {
	var targets []string

	cmd := &cobra.Command{
		Use:   "schedule <id> <time>",
		Short: "Set the posting time of a record (RFC3339 or 2006-01-02T15:04 in UTC)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.recordService(cmd.Context())
			if err != nil {
				return err
			}
			req := api.ScheduleRequest{ScheduleTime: args[1], PublishTargets: targets}
			if err := svc.Schedule(cmd.Context(), args[0], req); err != nil {
				return fmt.Errorf("schedule %s: %w", args[0], err)
			}
			view, err := svc.Describe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %s for %s\n", args[0], view.Record.ScheduleTime)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&targets, "target", "t", nil, "Publish target (repeatable)")
	return cmd
}
