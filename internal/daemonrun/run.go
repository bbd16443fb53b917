package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"clipmato/internal/agents"
	"clipmato/internal/config"
	"clipmato/internal/daemon"
	"clipmato/internal/deps"
	"clipmato/internal/distribution"
	"clipmato/internal/logging"
	"clipmato/internal/media"
	"clipmato/internal/metadata"
	"clipmato/internal/notifications"
	"clipmato/internal/pipeline"
	"clipmato/internal/preflight"
	"clipmato/internal/processing"
	"clipmato/internal/progress"
	"clipmato/internal/schedule"
	"clipmato/internal/services/llm"
	"clipmato/internal/services/transcription"
	"clipmato/internal/stage"
	"clipmato/internal/upload"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Components holds the fully wired services shared by the daemon and the
// one-shot CLI commands.
type Components struct {
	Records   *metadata.Store
	Progress  *progress.Store
	Uploads   *upload.Store
	Processor *processing.Processor
	Planner   *schedule.Planner
	Auto      *schedule.Auto
	Notifier  notifications.Service
}

// Build wires every collaborator, store, and service from cfg.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, llm.WithLogger(logger))
	llmAgents := agents.New(client, logger)

	distributor, err := distribution.New(ctx, cfg.Distribution, logger)
	if err != nil {
		return nil, fmt.Errorf("configure distribution: %w", err)
	}

	ffmpeg := cfg.FFmpegBinary()
	ffprobe := cfg.FFprobeBinary()
	registry, err := stage.NewRegistry(stage.Collaborators{
		Transcriber: transcription.New(transcription.Config{
			APIKey:         cfg.Transcription.APIKey,
			BaseURL:        cfg.Transcription.BaseURL,
			Model:          cfg.Transcription.Model,
			ChunkBytes:     cfg.Transcription.ChunkBytes,
			TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
			FFmpeg:         ffmpeg,
			FFprobe:        ffprobe,
		}, logger),
		Describer: llmAgents,
		Entities:  llmAgents,
		Titles:    llmAgents,
		Script:    llmAgents,
		Editor:    media.NewEditor(ffmpeg, cfg.Audio.Loudnorm, nil, logger),
		SilenceRemover: media.NewSilenceRemover(ffmpeg, ffprobe, media.SilenceSettings{
			MinSilenceMS:  cfg.Audio.MinSilenceMS,
			ThresholdDB:   cfg.Audio.SilenceThresholdDB,
			KeepSilenceMS: cfg.Audio.KeepSilenceMS,
		}, nil, logger),
		Distributor: distributor,
	})
	if err != nil {
		return nil, err
	}

	records := metadata.NewStore(cfg.Paths.MetadataFile, logger)
	progressStore := progress.NewStore(cfg.Paths.ProgressDir, logger)
	notifier := notifications.NewService(cfg)

	var proposer schedule.Proposer
	if client.Configured() {
		proposer = agents.NewProposer(client)
	}
	planner := schedule.NewPlanner(proposer, logger, schedule.WithPublishHour(cfg.Scheduling.PublishHour))

	return &Components{
		Records:  records,
		Progress: progressStore,
		Uploads:  upload.NewStore(cfg.Paths.UploadDir, cfg.Uploads.MaxBytes, cfg.Uploads.AllowedTypes),
		Processor: processing.NewProcessor(registry, progressStore, records, logger,
			processing.WithNotifier(notifier),
			processing.WithWorkerPool(pipeline.NewWorkerPool(cfg.Workflow.WorkerPoolSize)),
		),
		Planner:  planner,
		Auto:     schedule.NewAuto(records, planner, logger),
		Notifier: notifier,
	}, nil
}

// Run starts the clipmato daemon and blocks until SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logPath := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "*.log", logPath)
	for _, check := range preflight.RunAll(signalCtx, cfg) {
		if check.Passed {
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldImpact, "jobs depending on this check will fail"),
		)
	}
	if blocked := stage.Blocked(preflight.StageHealth(cfg, preflight.CheckSystemDeps(cfg))); len(blocked) > 0 {
		logging.WarnWithContext(logger, "pipeline stages not ready", "stages_blocked",
			logging.String("stages", strings.Join(blocked, "; ")),
			logging.String(logging.FieldImpact, "uploads will fail at the first blocked stage"),
		)
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, "clipmato.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	components, err := Build(signalCtx, cfg, logger)
	if err != nil {
		return err
	}

	d, err := daemon.New(cfg, daemon.Dependencies{
		Records:   components.Records,
		Progress:  components.Progress,
		Uploads:   components.Uploads,
		Processor: components.Processor,
		Auto:      components.Auto,
		Notifier:  components.Notifier,
	}, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Run(signalCtx); err != nil {
		return err
	}
	logger.Info("clipmato daemon stopped")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	binaries := deps.CheckBinaries(deps.MediaRequirements(cfg.FFmpegBinary()))
	attrs := []any{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.Bool("transcription_key_present", strings.TrimSpace(cfg.Transcription.APIKey) != ""),
	}
	for _, bin := range binaries {
		key := strings.ToLower(bin.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", bin.Available),
			logging.String(key+"_binary", firstNonEmpty(bin.Path, bin.Command)),
		)
	}
	attrs = append(attrs,
		logging.String("distribution_mode", cfg.Distribution.Mode),
		logging.Bool("ntfy_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("auto_cron", cfg.Scheduling.AutoCron),
	)
	if missing := deps.Missing(binaries); len(missing) > 0 {
		attrs = append(attrs, logging.String("missing", strings.Join(missing, ",")))
	}
	logger.Info("dependency snapshot", attrs...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
