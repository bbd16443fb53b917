package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipmato/internal/api"
	"clipmato/internal/schedule"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Plan posting times",
	}
	scheduleCmd.AddCommand(newScheduleAutoCommand(ctx))
	return scheduleCmd
}

func newScheduleAutoCommand(ctx *commandContext) *cobra.Command {
	var cadence string
	var nDays int
	var apply bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Plan posting times for every unscheduled record",
		Long: "Plan posting times for every unscheduled record. Without --apply the plan\n" +
			"is only printed; with --apply it is written to the records.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req := api.AutoScheduleRequest{Cadence: cadence, NDays: nDays}
			if err := api.Validate(req); err != nil {
				return err
			}
			if req.Cadence == "" {
				req.Cadence, req.NDays = cfg.Scheduling.DefaultCadence, cfg.Scheduling.DefaultNDays
			}

			var plan map[string]string
			if apply {
				svc, err := ctx.recordService(cmd.Context())
				if err != nil {
					return err
				}
				resp, err := svc.AutoSchedule(cmd.Context(), req)
				if err != nil {
					return err
				}
				plan = resp.Schedule
			} else {
				components, err := ctx.ensureComponents(cmd.Context())
				if err != nil {
					return err
				}
				plan = components.Auto.Preview(cmd.Context(), req.Cadence, req.NDays)
			}

			if jsonOutput {
				return writeJSON(cmd, api.AutoScheduleResponse{Schedule: plan})
			}
			out := cmd.OutOrStdout()
			if len(plan) == 0 {
				fmt.Fprintln(out, "No unscheduled records")
				return nil
			}
			rows := make([][]string, 0, len(plan))
			for _, slot := range schedule.Sorted(plan) {
				rows = append(rows, []string{slot.ID, slot.Time})
			}
			fmt.Fprintln(out, renderTable([]column{{Header: "ID"}, {Header: "Posting time"}}, rows))
			if !apply {
				fmt.Fprintln(out, "Dry run: re-run with --apply to save this schedule")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cadence, "cadence", "", "daily, weekly, or every_n (default: scheduling.default_cadence)")
	cmd.Flags().IntVar(&nDays, "n-days", 0, "Day interval for the every_n cadence")
	cmd.Flags().BoolVar(&apply, "apply", false, "Save the planned times to the records")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the plan as JSON")
	return cmd
}
