package api

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipmato/internal/config"
	"clipmato/internal/logging"
	"clipmato/internal/metadata"
	"clipmato/internal/processing"
	"clipmato/internal/progress"
	"clipmato/internal/schedule"
	"clipmato/internal/services"
	"clipmato/internal/stage"
	"clipmato/internal/testsupport"
	"clipmato/internal/upload"
)

var wavHeader = testsupport.WAV(0)

type fixture struct {
	cfg      *config.Config
	records  *metadata.Store
	progress *progress.Store
	uploads  *upload.Store
	service  *RecordService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()
	f := &fixture{
		cfg:      cfg,
		records:  metadata.NewStore(cfg.Paths.MetadataFile, logger),
		progress: progress.NewStore(cfg.Paths.ProgressDir, logger),
		uploads:  upload.NewStore(cfg.Paths.UploadDir, cfg.Uploads.MaxBytes, cfg.Uploads.AllowedTypes),
	}
	now := func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	auto := schedule.NewAuto(f.records, schedule.NewPlanner(nil, logger, schedule.WithClock(now)), logger)
	f.service = NewRecordService(f.records, f.progress, f.uploads, auto, ScheduleDefaults{Cadence: "daily"}, nil, logger)
	return f
}

func (f *fixture) seed(t *testing.T, records ...metadata.Record) {
	t.Helper()
	for _, record := range records {
		require.NoError(t, f.records.Append(context.Background(), record))
	}
}

func TestListJoinsProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, metadata.Record{ID: "a", Filename: "a.mp3"}, metadata.Record{ID: "b", Filename: "b.mp3"})
	require.NoError(t, f.progress.Update(ctx, "a", stage.Script, ""))

	resp := f.service.List(ctx)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, stage.Script, resp.Records[0].Status.Stage)
	assert.Equal(t, 60, resp.Records[0].Status.Progress)
	assert.Equal(t, stage.Pending, resp.Records[1].Status.Stage)
}

func TestDescribeMissingRecord(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Describe(context.Background(), "nope")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestSelectTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, metadata.Record{ID: "a", Filename: "a.mp3", Titles: []string{"One", "Two"}})

	require.NoError(t, f.service.SelectTitle(ctx, "a", SelectTitleRequest{SelectedTitle: "  Two "}))
	record, ok := f.records.Get(ctx, "a")
	require.True(t, ok)
	require.NotNil(t, record.SelectedTitle)
	assert.Equal(t, "Two", *record.SelectedTitle)

	err := f.service.SelectTitle(ctx, "a", SelectTitleRequest{})
	assert.ErrorIs(t, err, services.ErrValidation)
	assert.Contains(t, err.Error(), "selected_title is required")

	assert.ErrorIs(t, f.service.SelectTitle(ctx, "missing", SelectTitleRequest{SelectedTitle: "x"}), services.ErrNotFound)
}

func TestScheduleRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, metadata.Record{ID: "a", Filename: "a.mp3"})

	req := ScheduleRequest{ScheduleTime: "2026-04-01T10:30", PublishTargets: []string{"youtube", " podcast "}}
	require.NoError(t, f.service.Schedule(ctx, "a", req))
	record, _ := f.records.Get(ctx, "a")
	assert.Equal(t, "2026-04-01T10:30:00Z", record.ScheduleTime)
	assert.Equal(t, []string{"youtube", "podcast"}, record.PublishTargets)

	err := f.service.Schedule(ctx, "a", ScheduleRequest{ScheduleTime: "next tuesday"})
	require.ErrorIs(t, err, services.ErrValidation)
	assert.Contains(t, err.Error(), "schedule_time must be an RFC3339 timestamp")
}

func TestParseScheduleTime(t *testing.T) {
	ts, err := ParseScheduleTime("2026-04-01T12:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC), ts)

	_, err = ParseScheduleTime("")
	assert.Error(t, err)
}

func TestAutoScheduleValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.AutoSchedule(context.Background(), AutoScheduleRequest{Cadence: "hourly"})
	require.ErrorIs(t, err, services.ErrValidation)
	assert.Contains(t, err.Error(), "cadence must be one of")

	_, err = f.service.AutoSchedule(context.Background(), AutoScheduleRequest{Cadence: "every_n"})
	require.ErrorIs(t, err, services.ErrValidation)
	assert.Contains(t, err.Error(), "n_days is required")
}

func TestAutoScheduleAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t,
		metadata.Record{ID: "a", Filename: "a.mp3"},
		metadata.Record{ID: "b", Filename: "b.mp3", ScheduleTime: "2026-01-01T09:00:00Z"},
		metadata.Record{ID: "c", Filename: "c.mp3"},
	)

	resp, err := f.service.AutoSchedule(ctx, AutoScheduleRequest{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"a": "2026-03-11T09:00:00Z",
		"c": "2026-03-12T09:00:00Z",
	}, resp.Schedule)

	counts := f.service.Counts(ctx)
	assert.Equal(t, JobCounts{Total: 3, Scheduled: 3}, counts)
}

func TestRemoveDeletesFilesAndProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	token := upload.Token(id)
	f.seed(t, metadata.Record{ID: id, Filename: "talk.webm"}, metadata.Record{ID: "other", Filename: "x.mp3"})
	require.NoError(t, f.progress.Update(ctx, id, stage.Complete, ""))
	for _, name := range []string{"talk_" + token + ".webm", "talk_" + token + ".wav", "keep_other.mp3"} {
		require.NoError(t, os.WriteFile(filepath.Join(f.cfg.Paths.UploadDir, name), []byte("x"), 0o644))
	}

	resp, err := f.service.Remove(ctx, id)
	require.NoError(t, err)
	assert.Len(t, resp.RemovedFiles, 2)
	_, ok := f.records.Get(ctx, id)
	assert.False(t, ok)
	_, statErr := os.Stat(f.progress.Path(id))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(f.cfg.Paths.UploadDir, "keep_other.mp3"))
	assert.NoError(t, statErr)

	_, err = f.service.Remove(ctx, id)
	assert.ErrorIs(t, err, metadata.ErrNotFound)
}

type recordingSubmitter struct {
	mu   sync.Mutex
	jobs []processing.Job
	err  error
}

func (r *recordingSubmitter) Submit(job processing.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func TestUploadAcceptSubmitsJob(t *testing.T) {
	f := newFixture(t)
	jobs := &recordingSubmitter{}
	svc := NewUploadService(f.uploads, f.progress, jobs, logging.NewNop())
	svc.newID = func() string { return "6ba7b810-9dad-11d1-80b4-00c04fd430c8" }

	resp, err := svc.Accept(context.Background(), "My Talk.wav", "audio/wav", bytes.NewReader(wavHeader), true)
	require.NoError(t, err)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", resp.ID)

	require.Len(t, jobs.jobs, 1)
	job := jobs.jobs[0]
	assert.Equal(t, "My Talk.wav", job.Filename)
	assert.True(t, job.RemoveSilence)
	assert.Equal(t, filepath.Join(f.cfg.Paths.UploadDir, "My_Talk_6ba7b8109dad11d180b400c04fd430c8.wav"), job.Path)

	status := f.progress.Read(context.Background(), resp.ID)
	assert.Equal(t, stage.Transcribing, status.Stage)
	assert.Equal(t, 20, status.Progress)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	f := newFixture(t)
	jobs := &recordingSubmitter{}
	svc := NewUploadService(f.uploads, f.progress, jobs, logging.NewNop())

	_, err := svc.Accept(context.Background(), "notes.txt", "text/plain", bytes.NewReader([]byte("hi")), false)
	assert.ErrorIs(t, err, upload.ErrUnsupportedType)
	assert.Empty(t, jobs.jobs)
}

func TestUploadSubmitFailure(t *testing.T) {
	f := newFixture(t)
	svc := NewUploadService(f.uploads, f.progress, &recordingSubmitter{err: errors.New("closed")}, logging.NewNop())
	svc.newID = func() string { return "6ba7b810-9dad-11d1-80b4-00c04fd430c8" }
	_, err := svc.Accept(context.Background(), "a.wav", "audio/wav", bytes.NewReader(wavHeader), false)
	require.Error(t, err)

	entries, err := os.ReadDir(f.cfg.Paths.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, err = os.Stat(f.progress.Path("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
