package processing_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipmato/internal/logging"
	"clipmato/internal/metadata"
	"clipmato/internal/notifications"
	"clipmato/internal/processing"
	"clipmato/internal/progress"
	"clipmato/internal/stage"
	"clipmato/internal/testsupport"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

type harness struct {
	fakes    *testsupport.Collaborators
	progress *progress.Store
	records  *metadata.Store
	notifier *recordingNotifier
	proc     *processing.Processor
}

var fixedNow = time.Date(2026, 3, 10, 8, 15, 0, 0, time.UTC)

func newHarness(t *testing.T, bundle func(*testsupport.Collaborators) stage.Collaborators) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	fakes := testsupport.NewCollaborators()
	if bundle == nil {
		bundle = (*testsupport.Collaborators).Stage
	}
	registry, err := stage.NewRegistry(bundle(fakes))
	require.NoError(t, err)

	h := &harness{
		fakes:    fakes,
		progress: progress.NewStore(cfg.Paths.ProgressDir, logging.NewNop()),
		records:  metadata.NewStore(cfg.Paths.MetadataFile, logging.NewNop()),
		notifier: &recordingNotifier{},
	}
	h.proc = processing.NewProcessor(registry, h.progress, h.records, logging.NewNop(),
		processing.WithNotifier(h.notifier),
		processing.WithClock(func() time.Time { return fixedNow }),
	)
	return h
}

func TestProcessCommitsFullRecord(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	record := h.proc.Process(ctx, processing.Job{ID: "job-1", Path: "/uploads/talk.mp3", Filename: "talk.mp3", RemoveSilence: true})

	assert.Empty(t, record.Error)
	assert.Equal(t, []string{
		stage.Transcribing, stage.Descriptions, stage.Entities, stage.Titles,
		stage.Script, stage.Editing, stage.RemoveSilence, stage.Distribution,
	}, h.fakes.Calls())

	stored, ok := h.records.Get(ctx, "job-1")
	require.True(t, ok)
	assert.Equal(t, "talk.mp3", stored.Filename)
	assert.Equal(t, "2026-03-10T08:15:00Z", stored.UploadTime)
	assert.Equal(t, []string{"A Walk in Paris", "Alice Meets Bob"}, stored.Titles)
	assert.Equal(t, "short summary", stored.ShortDescription)
	assert.Equal(t, []string{"Alice", "Bob"}, stored.People)
	assert.Equal(t, []string{"Paris"}, stored.Locations)
	assert.Equal(t, "/uploads/talk_edited_trimmed.mp3", stored.EditedAudio)
	require.NotNil(t, stored.OriginalDuration)
	require.NotNil(t, stored.TrimmedDuration)
	assert.InDelta(t, 120, *stored.OriginalDuration, 0.001)
	assert.InDelta(t, 95.5, *stored.TrimmedDuration, 0.001)
	assert.JSONEq(t, `{"url":"file:///uploads/talk_edited_trimmed.mp3"}`, string(stored.Distribution))
	assert.Nil(t, stored.SelectedTitle)

	status := h.progress.Read(ctx, "job-1")
	assert.Equal(t, progress.Status{Stage: stage.Complete, Progress: 100}, status)
	assert.Equal(t, []notifications.Event{notifications.EventJobCompleted}, h.notifier.events)
}

func TestProcessSkipsSilenceRemovalByDefault(t *testing.T) {
	h := newHarness(t, nil)
	record := h.proc.Process(context.Background(), processing.Job{ID: "job-2", Path: "/uploads/talk.mp3", Filename: "talk.mp3"})

	assert.NotContains(t, h.fakes.Calls(), stage.RemoveSilence)
	assert.Equal(t, "/uploads/talk_edited.mp3", record.EditedAudio)
	assert.Nil(t, record.OriginalDuration)
}

func TestProcessFailureStoresMinimalRecord(t *testing.T) {
	h := newHarness(t, nil)
	h.fakes.FailAt = stage.Titles
	h.fakes.Err = errors.New("model returned garbage")
	ctx := context.Background()

	record := h.proc.Process(ctx, processing.Job{ID: "job-3", Path: "/uploads/talk.mp3", Filename: "talk.mp3"})
	assert.Equal(t, "model returned garbage", record.Error)
	assert.Equal(t, []string{stage.Transcribing, stage.Descriptions, stage.Entities, stage.Titles}, h.fakes.Calls())

	data, err := os.ReadFile(h.records.Path())
	require.NoError(t, err)
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	keys := make([]string, 0, len(raw[0]))
	for key := range raw[0] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"error", "filename", "id", "upload_time"}, keys)

	status := h.progress.Read(ctx, "job-3")
	assert.Equal(t, stage.Error, status.Stage)
	assert.Equal(t, 0, status.Progress)
	assert.Equal(t, "model returned garbage", status.Message)
	assert.Equal(t, []notifications.Event{notifications.EventJobFailed}, h.notifier.events)
}

func TestProcessSilenceRemovalUnavailable(t *testing.T) {
	h := newHarness(t, func(c *testsupport.Collaborators) stage.Collaborators {
		bundle := c.Stage()
		bundle.SilenceRemover = nil
		return bundle
	})

	record := h.proc.Process(context.Background(), processing.Job{ID: "job-4", Path: "/uploads/a.mp3", Filename: "a.mp3", RemoveSilence: true})
	assert.True(t, record.Failed())
	assert.Contains(t, record.Error, "silence removal not configured")
	assert.Empty(t, h.fakes.Calls())
}

func TestProcessIgnoresNotificationFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.notifier.err = errors.New("ntfy down")

	record := h.proc.Process(context.Background(), processing.Job{ID: "job-5", Path: "/uploads/a.mp3", Filename: "a.mp3"})
	assert.False(t, record.Failed())
	_, ok := h.records.Get(context.Background(), "job-5")
	assert.True(t, ok)
}

func TestProcessRecordsStoreFailure(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.records.Append(ctx, metadata.Record{ID: "dup", Filename: "old.mp3"}))

	record := h.proc.Process(ctx, processing.Job{ID: "dup", Path: "/uploads/a.mp3", Filename: "a.mp3"})
	assert.True(t, record.Failed())
	assert.Contains(t, record.Error, "duplicate id")
	assert.Equal(t, stage.Error, h.progress.Read(ctx, "dup").Stage)
}

func TestDetectLanguage(t *testing.T) {
	english := "The quick brown fox jumps over the lazy dog while the farmer watches from the porch and drinks his morning coffee."
	assert.Equal(t, "eng", processing.DetectLanguage(english))
	assert.Equal(t, "", processing.DetectLanguage("   "))
}

func TestRunnerProcessesSubmittedJobs(t *testing.T) {
	h := newHarness(t, nil)
	runner := processing.NewRunner(context.Background(), h.proc, 2, logging.NewNop())

	var mu sync.Mutex
	var done []string
	runner.OnDone(func(r metadata.Record) {
		mu.Lock()
		done = append(done, r.ID)
		mu.Unlock()
	})

	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		require.NoError(t, runner.Submit(processing.Job{ID: id, Path: filepath.Join("/uploads", id+".mp3"), Filename: id + ".mp3"}))
	}
	runner.Wait()

	assert.Equal(t, 0, runner.Active())
	sort.Strings(done)
	assert.Equal(t, ids, done)

	stored := h.records.Read(context.Background())
	got := make([]string, 0, len(stored))
	for _, r := range stored {
		got = append(got, r.ID)
	}
	sort.Strings(got)
	assert.Equal(t, ids, got)

	runner.Close()
	assert.ErrorIs(t, runner.Submit(processing.Job{ID: "late"}), processing.ErrRunnerClosed)
}

func TestRunnerRecordsJobsQueuedAfterShutdown(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := processing.NewRunner(ctx, h.proc, 1, logging.NewNop())
	require.NoError(t, h.progress.Set(context.Background(), "queued", progress.Status{Stage: stage.Transcribing, Progress: 20}))

	var got []metadata.Record
	var mu sync.Mutex
	runner.OnDone(func(r metadata.Record) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	})
	require.NoError(t, runner.Submit(processing.Job{ID: "queued", Path: "/uploads/queued.mp3", Filename: "queued.mp3"}))
	runner.Close()

	assert.Empty(t, h.fakes.Calls())
	record, ok := h.records.Get(context.Background(), "queued")
	require.True(t, ok)
	assert.Equal(t, "queued.mp3", record.Filename)
	assert.Contains(t, record.Error, "daemon stopped")

	status := h.progress.Read(context.Background(), "queued")
	assert.Equal(t, stage.Error, status.Stage)
	assert.Equal(t, 0, status.Progress)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "queued", got[0].ID)
}
