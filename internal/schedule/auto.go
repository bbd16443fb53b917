package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"clipmato/internal/logging"
	"clipmato/internal/metadata"
)

// Auto schedules every finished record that has no posting time yet.
type Auto struct {
	store   *metadata.Store
	planner *Planner
	logger  *slog.Logger
}

// NewAuto returns an auto-scheduler over store.
func NewAuto(store *metadata.Store, planner *Planner, logger *slog.Logger) *Auto {
	return &Auto{store: store, planner: planner, logger: logging.NewComponentLogger(logger, "scheduler")}
}

// Pending returns records eligible for scheduling: successful and unscheduled.
func Pending(records []metadata.Record) []metadata.Record {
	var pending []metadata.Record
	for _, record := range records {
		if record.Failed() || record.ScheduleTime != "" {
			continue
		}
		pending = append(pending, record)
	}
	return pending
}

// Preview returns the plan Run would apply without writing it.
func (a *Auto) Preview(ctx context.Context, cadence string, nDays int) map[string]string {
	return a.planner.Plan(ctx, Request{Records: Pending(a.store.Read(ctx)), Cadence: cadence, NDays: nDays})
}

// Run plans and stores schedule_time for every pending record and returns the
// applied plan.
func (a *Auto) Run(ctx context.Context, cadence string, nDays int) (map[string]string, error) {
	plan := a.Preview(ctx, cadence, nDays)
	applied := make(map[string]string, len(plan))
	for _, slot := range Sorted(plan) {
		found, err := a.store.Update(ctx, slot.ID, map[string]any{"schedule_time": slot.Time})
		if err != nil {
			return applied, fmt.Errorf("store schedule for %s: %w", slot.ID, err)
		}
		if found {
			applied[slot.ID] = slot.Time
		}
	}
	a.logger.Info("auto-schedule applied",
		logging.String(logging.FieldEventType, "schedule_applied"),
		logging.String("cadence", cadence),
		logging.Int("n_days", nDays),
		logging.Int("scheduled", len(applied)),
	)
	return applied, nil
}

// RunCron applies Run on spec (standard five-field cron syntax) until ctx is
// done.
func (a *Auto) RunCron(ctx context.Context, spec, cadence string, nDays int) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := a.Run(ctx, cadence, nDays); err != nil {
			logging.ErrorWithContext(a.logger, "auto-schedule failed", "schedule_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check metadata file permissions"),
			)
		}
	}); err != nil {
		return fmt.Errorf("parse auto-schedule cron %q: %w", spec, err)
	}
	a.logger.Info("auto-schedule cron started", logging.String("cron", spec))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
