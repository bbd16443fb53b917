package api

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"clipmato/internal/logging"
	"clipmato/internal/metadata"
	"clipmato/internal/notifications"
	"clipmato/internal/progress"
	"clipmato/internal/schedule"
	"clipmato/internal/services"
	"clipmato/internal/upload"
)

// ScheduleDefaults fills blank auto-schedule requests.
type ScheduleDefaults struct {
	Cadence string
	NDays   int
}

// RecordService exposes record queries and mutations returning API DTOs.
type RecordService struct {
	records  *metadata.Store
	progress *progress.Store
	uploads  *upload.Store
	auto     *schedule.Auto
	defaults ScheduleDefaults
	notifier notifications.Service
	logger   *slog.Logger
}

// NewRecordService constructs a RecordService. uploads, auto, and notifier
// may be nil.
func NewRecordService(records *metadata.Store, progressStore *progress.Store, uploads *upload.Store, auto *schedule.Auto, defaults ScheduleDefaults, notifier notifications.Service, logger *slog.Logger) *RecordService {
	return &RecordService{
		records:  records,
		progress: progressStore,
		uploads:  uploads,
		auto:     auto,
		defaults: defaults,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "record-service"),
	}
}

// List returns every stored record joined with its live progress.
func (s *RecordService) List(ctx context.Context) RecordListResponse {
	return RecordListResponse{Records: s.progress.Enrich(ctx, s.records.Read(ctx))}
}

// Counts summarizes the stored records.
func (s *RecordService) Counts(ctx context.Context) JobCounts {
	var counts JobCounts
	for _, record := range s.records.Read(ctx) {
		counts.Total++
		if record.Failed() {
			counts.Failed++
		}
		if record.ScheduleTime != "" {
			counts.Scheduled++
		}
	}
	return counts
}

// Describe returns the record with id joined with its progress.
func (s *RecordService) Describe(ctx context.Context, id string) (progress.JobView, error) {
	record, ok := s.records.Get(ctx, id)
	if !ok {
		return progress.JobView{}, metadata.ErrNotFound
	}
	return progress.JobView{Record: record, Status: s.progress.Read(ctx, id)}, nil
}

// Progress returns the live status of id.
func (s *RecordService) Progress(ctx context.Context, id string) progress.Status {
	return s.progress.Read(ctx, id)
}

// SelectTitle stores the chosen title of id.
func (s *RecordService) SelectTitle(ctx context.Context, id string, req SelectTitleRequest) error {
	if err := Validate(req); err != nil {
		return err
	}
	return s.update(ctx, id, map[string]any{"selected_title": strings.TrimSpace(req.SelectedTitle)})
}

// Schedule stores the posting time and targets of id.
func (s *RecordService) Schedule(ctx context.Context, id string, req ScheduleRequest) error {
	if err := Validate(req); err != nil {
		return err
	}
	ts, err := ParseScheduleTime(req.ScheduleTime)
	if err != nil {
		return services.Wrap(services.ErrValidation, "", "schedule record", "", err)
	}
	targets := make([]string, 0, len(req.PublishTargets))
	for _, target := range req.PublishTargets {
		if trimmed := strings.TrimSpace(target); trimmed != "" {
			targets = append(targets, trimmed)
		}
	}
	fields := map[string]any{"schedule_time": ts.Format(time.RFC3339), "publish_targets": targets}
	if len(targets) == 0 {
		fields["publish_targets"] = nil
	}
	return s.update(ctx, id, fields)
}

func (s *RecordService) update(ctx context.Context, id string, fields map[string]any) error {
	found, err := s.records.Update(ctx, id, fields)
	if err != nil {
		return err
	}
	if !found {
		return metadata.ErrNotFound
	}
	return nil
}

// Remove deletes the record, every upload-derived file carrying its token,
// and its progress file.
func (s *RecordService) Remove(ctx context.Context, id string) (RemoveResponse, error) {
	if _, err := s.records.Remove(ctx, id); err != nil {
		return RemoveResponse{}, err
	}
	resp := RemoveResponse{ID: id, RemovedFiles: []string{}}
	logger := logging.WithContext(services.WithJobID(ctx, id), s.logger)
	if s.uploads != nil {
		removed, err := s.uploads.RemoveJobFiles(upload.Token(id))
		resp.RemovedFiles = append(resp.RemovedFiles, removed...)
		if err != nil {
			logging.WarnWithContext(logger, "upload files not fully removed", "upload_cleanup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "orphaned media files remain in the upload directory"),
			)
		}
	}
	if err := s.progress.Remove(id); err != nil {
		logging.WarnWithContext(logger, "progress file not removed", "progress_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "a stale progress file remains"),
		)
	}
	logger.Info("record removed",
		logging.String(logging.FieldEventType, "record_removed"),
		logging.Int("files_removed", len(resp.RemovedFiles)),
	)
	return resp, nil
}

// AutoSchedule plans and applies posting times for every unscheduled record.
func (s *RecordService) AutoSchedule(ctx context.Context, req AutoScheduleRequest) (AutoScheduleResponse, error) {
	if err := Validate(req); err != nil {
		return AutoScheduleResponse{}, err
	}
	if s.auto == nil {
		return AutoScheduleResponse{}, services.Wrap(services.ErrConfiguration, "", "auto schedule", "scheduler not configured", nil)
	}
	cadence, nDays := req.Cadence, req.NDays
	if cadence == "" {
		cadence, nDays = s.defaults.Cadence, s.defaults.NDays
	}
	applied, err := s.auto.Run(ctx, cadence, nDays)
	if err != nil {
		return AutoScheduleResponse{Schedule: applied}, err
	}
	s.notifySchedule(ctx, applied)
	return AutoScheduleResponse{Schedule: applied}, nil
}

func (s *RecordService) notifySchedule(ctx context.Context, applied map[string]string) {
	if s.notifier == nil || len(applied) == 0 {
		return
	}
	slots := schedule.Sorted(applied)
	err := s.notifier.Publish(ctx, notifications.EventScheduleApplied, notifications.Payload{
		"count": strconv.Itoa(len(slots)),
		"first": slots[0].Time,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("schedule notification failed", logging.Error(err))
	}
}
