package daemon_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"clipmato/internal/config"
	"clipmato/internal/daemon"
	"clipmato/internal/logging"
	"clipmato/internal/metadata"
	"clipmato/internal/processing"
	"clipmato/internal/progress"
	"clipmato/internal/schedule"
	"clipmato/internal/stage"
	"clipmato/internal/testsupport"
	"clipmato/internal/upload"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *testsupport.Collaborators) {
	t.Helper()
	fakes := testsupport.NewCollaborators()
	registry, err := stage.NewRegistry(fakes.Stage())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	logger := logging.NewNop()
	records := metadata.NewStore(cfg.Paths.MetadataFile, logger)
	progressStore := progress.NewStore(cfg.Paths.ProgressDir, logger)
	planner := schedule.NewPlanner(nil, logger, schedule.WithClock(func() time.Time { return fixedNow }))
	d, err := daemon.New(cfg, daemon.Dependencies{
		Records:   records,
		Progress:  progressStore,
		Uploads:   upload.NewStore(cfg.Paths.UploadDir, cfg.Uploads.MaxBytes, cfg.Uploads.AllowedTypes),
		Processor: processing.NewProcessor(registry, progressStore, records, logger),
		Auto:      schedule.NewAuto(records, planner, logger),
	}, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, fakes
}

// startDaemon runs d until the test ends and waits for the API to bind.
func startDaemon(t *testing.T, d *daemon.Daemon) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Error("daemon did not stop")
		}
	})

	deadline := time.Now().Add(5 * time.Second)
	for !d.Running() {
		if time.Now().After(deadline) {
			t.Fatal("daemon did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, daemon.Dependencies{}, logging.NewNop()); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestDaemonRunAndStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !d.Running() {
		if time.Now().After(deadline) {
			t.Fatal("daemon did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if d.Addr() == "" {
		t.Fatal("expected bound address while running")
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected status to report running")
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("lock path = %q, want %q", status.LockFilePath, cfg.LockPath())
	}
	if status.MetadataFile != cfg.Paths.MetadataFile {
		t.Fatalf("metadata file = %q, want %q", status.MetadataFile, cfg.Paths.MetadataFile)
	}
	if len(status.StageHealth) != 8 {
		t.Fatalf("expected 8 stage health entries, got %d", len(status.StageHealth))
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}
	if d.Running() {
		t.Fatal("expected daemon to be stopped")
	}
	if d.Status(context.Background()).Running {
		t.Fatal("expected status to report stopped")
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, _ := newDaemon(t, cfg)
	startDaemon(t, first)

	second, _ := newDaemon(t, cfg)
	err := second.Run(context.Background())
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestSubmitRequiresRunningDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, fakes := newDaemon(t, cfg)

	if err := d.Submit(processing.Job{ID: "job-1", Path: "/tmp/a.mp3"}); err == nil {
		t.Fatal("expected submit to fail while stopped")
	}
	if calls := fakes.Calls(); len(calls) != 0 {
		t.Fatalf("expected no stage calls, got %v", calls)
	}
}
