package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"

	"clipmato/internal/logging"
	"clipmato/internal/metadata"
	"clipmato/internal/notifications"
	"clipmato/internal/pipeline"
	"clipmato/internal/progress"
	"clipmato/internal/services"
	"clipmato/internal/stage"
)

// Job describes one uploaded file to process.
type Job struct {
	ID            string
	Path          string
	Filename      string
	RemoveSilence bool
}

// ProgressWriter records stage transitions and terminal states.
type ProgressWriter interface {
	pipeline.Reporter
	Set(ctx context.Context, id string, status progress.Status) error
}

// RecordAppender commits finished job records.
type RecordAppender interface {
	Append(ctx context.Context, record metadata.Record) error
}

// Processor runs jobs against a fixed stage registry.
type Processor struct {
	registry *stage.Registry
	progress ProgressWriter
	records  RecordAppender
	pool     *pipeline.WorkerPool
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a Processor.
type Option func(*Processor)

// WithNotifier sets the notification sink for completed and failed jobs.
func WithNotifier(n notifications.Service) Option {
	return func(p *Processor) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithWorkerPool shares pool between every job run by the processor.
func WithWorkerPool(pool *pipeline.WorkerPool) Option {
	return func(p *Processor) {
		if pool != nil {
			p.pool = pool
		}
	}
}

// WithClock overrides the clock used for upload timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProcessor wires a processor over the stage registry and both stores.
func NewProcessor(registry *stage.Registry, progressWriter ProgressWriter, records RecordAppender, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		registry: registry,
		progress: progressWriter,
		records:  records,
		pool:     pipeline.NewWorkerPool(1),
		logger:   logging.NewComponentLogger(logger, "processor"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs job to completion or first failure and returns the record it
// committed. Failures are logged, recorded, and never returned.
func (p *Processor) Process(ctx context.Context, job Job) metadata.Record {
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, p.logger)
	uploadTime := p.now().UTC().Format(time.RFC3339)

	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("filename", job.Filename),
		logging.Bool("remove_silence", job.RemoveSilence),
	)
	started := time.Now()

	state, err := p.run(ctx, job)
	if err != nil {
		return p.fail(ctx, job, uploadTime, err)
	}

	record := assemble(job, uploadTime, state)
	if err := p.records.Append(ctx, record); err != nil {
		return p.fail(ctx, job, uploadTime, err)
	}
	if err := p.progress.Set(ctx, job.ID, progress.Status{Stage: stage.Complete, Progress: 100}); err != nil {
		logging.WarnWithContext(logger, "completion progress not recorded", "progress_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job status may lag behind the stored record"),
		)
	}

	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
		logging.String("language", record.Language),
	)
	p.notify(ctx, notifications.EventJobCompleted, notifications.Payload{
		"title":    record.Title(),
		"language": record.Language,
	})
	return record
}

// Abandon commits a failure record for a job that never started, so its
// status still reaches a terminal state.
func (p *Processor) Abandon(ctx context.Context, job Job, cause error) metadata.Record {
	ctx = services.WithJobID(ctx, job.ID)
	return p.fail(ctx, job, p.now().UTC().Format(time.RFC3339), cause)
}

func (p *Processor) run(ctx context.Context, job Job) (state pipeline.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrExternalTool, "", "run pipeline", "stage panicked", panicError(r))
		}
	}()
	steps, err := p.registry.Plan(stage.PlanOptions{RemoveSilence: job.RemoveSilence})
	if err != nil {
		return nil, err
	}
	pipe := pipeline.New(p.progress, steps,
		pipeline.WithLogger(p.logger),
		pipeline.WithWorkerPool(p.pool),
	)
	return pipe.Run(ctx, job.ID, pipeline.State{stage.KeyFilePath: job.Path})
}

func (p *Processor) fail(ctx context.Context, job Job, uploadTime string, cause error) metadata.Record {
	logger := logging.WithContext(ctx, p.logger)
	kind, message := services.Details(cause)
	if strings.TrimSpace(message) == "" {
		message = "processing failed"
	}
	logging.ErrorWithContext(logger, "job failed", "job_failed",
		logging.Error(cause),
		logging.String(logging.FieldErrorKind, kind),
		logging.String("filename", job.Filename),
	)

	if err := p.progress.Set(ctx, job.ID, progress.Status{Stage: stage.Error, Progress: 0, Message: message}); err != nil {
		logging.WarnWithContext(logger, "failure progress not recorded", "progress_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job status may not show the failure"),
		)
	}

	record := metadata.Record{
		ID:         job.ID,
		Filename:   job.Filename,
		UploadTime: uploadTime,
		Error:      message,
	}
	if err := p.records.Append(ctx, record); err != nil {
		logging.ErrorWithContext(logger, "failure record not stored", "record_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check metadata_file permissions and free space"),
		)
	}
	p.notify(ctx, notifications.EventJobFailed, notifications.Payload{
		"filename": job.Filename,
		"error":    message,
	})
	return record
}

func (p *Processor) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Publish(ctx, event, payload); err != nil {
		logger := logging.WithContext(ctx, p.logger)
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, notification not sent", logging.String("event", string(event)))
			return
		}
		logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

// assemble copies the committed subset of the pipeline state into a record.
func assemble(job Job, uploadTime string, state pipeline.State) metadata.Record {
	record := metadata.Record{
		ID:         job.ID,
		Filename:   job.Filename,
		UploadTime: uploadTime,
	}
	record.Transcript, _ = pipeline.Get[string](state, stage.KeyTranscript)
	record.Titles, _ = pipeline.Get[[]string](state, stage.KeyTitles)
	record.ShortDescription, _ = pipeline.Get[string](state, stage.KeyShortDescription)
	record.LongDescription, _ = pipeline.Get[string](state, stage.KeyLongDescription)
	record.People, _ = pipeline.Get[[]string](state, stage.KeyPeople)
	record.Locations, _ = pipeline.Get[[]string](state, stage.KeyLocations)
	record.Script, _ = pipeline.Get[string](state, stage.KeyScript)
	record.EditedAudio, _ = pipeline.Get[string](state, stage.KeyEditedAudio)
	record.Distribution, _ = pipeline.Get[json.RawMessage](state, stage.KeyDistribution)
	if v, ok := pipeline.Get[float64](state, stage.KeyOriginalDuration); ok {
		record.OriginalDuration = &v
	}
	if v, ok := pipeline.Get[float64](state, stage.KeyTrimmedDuration); ok {
		record.TrimmedDuration = &v
	}
	record.Language = DetectLanguage(record.Transcript)
	return record
}

// DetectLanguage returns the ISO 639-3 code of text's most likely language,
// or "" for blank text.
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return whatlanggo.DetectLang(text).Iso6393()
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
