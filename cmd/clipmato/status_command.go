package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipmato/internal/api"
	"clipmato/internal/config"
	"clipmato/internal/daemonctl"
	"clipmato/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, job, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				if !daemonctl.IsUnavailable(err) {
					return err
				}
				svc, svcErr := ctx.recordService(cmd.Context())
				if svcErr != nil {
					return svcErr
				}
				status = localStatus(cfg, svc.Counts(cmd.Context()))
			}

			if jsonOutput {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			for _, line := range statusLines(status, cfg.Paths.APIBind, shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the status as JSON")
	return cmd
}

// localStatus reports what can be checked without a running daemon.
func localStatus(cfg *config.Config, counts api.JobCounts) api.DaemonStatus {
	binaries := preflight.CheckSystemDeps(cfg)
	status := api.DaemonStatus{
		MetadataFile: cfg.Paths.MetadataFile,
		LockFilePath: cfg.LockPath(),
		Jobs:         counts,
	}
	for _, dep := range binaries {
		status.Dependencies = append(status.Dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	for _, check := range preflight.CheckDirectories(cfg) {
		status.Checks = append(status.Checks, api.CheckResult{Name: check.Name, Passed: check.Passed, Detail: check.Detail})
	}
	for _, h := range preflight.StageHealth(cfg, binaries) {
		status.StageHealth = append(status.StageHealth, api.StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	return status
}

func statusLines(status api.DaemonStatus, bind string, colorize bool) []string {
	var lines []string
	lines = append(lines, renderSectionHeader("Clipmato", colorize)...)
	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d, %s)", status.PID, bind), colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
	}
	lines = append(lines, renderStatusLine("Metadata file", statusInfo, status.MetadataFile, colorize))
	lines = append(lines, renderStatusLine("Jobs", statusInfo, fmt.Sprintf("%d active, %d stored, %d failed, %d scheduled",
		status.Jobs.Active, status.Jobs.Total, status.Jobs.Failed, status.Jobs.Scheduled), colorize))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	lines = append(lines, dependencyLines(status.Dependencies, colorize)...)

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Directories", colorize)...)
	for _, check := range status.Checks {
		kind, detail := statusOK, "Writable"
		if !check.Passed {
			kind, detail = statusError, check.Detail
		}
		lines = append(lines, renderStatusLine(check.Name, kind, detail, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Stages", colorize)...)
	ready := 0
	for _, h := range status.StageHealth {
		if h.Ready {
			ready++
			lines = append(lines, renderStatusLine(stageLabel(h.Name), statusOK, "Ready", colorize))
			continue
		}
		lines = append(lines, renderStatusLine(stageLabel(h.Name), statusError, h.Detail, colorize))
	}
	lines = append(lines, renderStatusLine("Ready stages", statusInfo, strconv.Itoa(ready)+"/"+strconv.Itoa(len(status.StageHealth)), colorize))
	return lines
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}
