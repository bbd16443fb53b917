package media

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"clipmato/internal/logging"
	"clipmato/internal/media/exec"
	"clipmato/internal/media/ffprobe"
	"clipmato/internal/services"
	"clipmato/internal/stage"
)

// SilenceSettings control which stretches count as silence.
type SilenceSettings struct {
	MinSilenceMS  int
	ThresholdDB   float64
	KeepSilenceMS int
}

// SilenceRemover trims silent stretches with ffmpeg's silenceremove filter.
type SilenceRemover struct {
	ffmpeg   string
	prober   *ffprobe.Prober
	runner   exec.Runner
	settings SilenceSettings
	logger   *slog.Logger
}

// NewSilenceRemover returns a remover that runs ffmpeg and ffprobe through
// runner. A nil runner uses os/exec.
func NewSilenceRemover(ffmpeg, ffprobeBinary string, settings SilenceSettings, runner exec.Runner, logger *slog.Logger) *SilenceRemover {
	if runner == nil {
		runner = exec.System{}
	}
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &SilenceRemover{
		ffmpeg:   ffmpeg,
		prober:   &ffprobe.Prober{Binary: ffprobeBinary, Runner: runner},
		runner:   runner,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "silence"),
	}
}

// Filter returns the ffmpeg audio filter for the configured settings.
func (s SilenceSettings) Filter() string {
	threshold := formatFloat(s.ThresholdDB) + "dB"
	minSilence := formatFloat(float64(s.MinSilenceMS) / 1000)
	keep := formatFloat(float64(s.KeepSilenceMS) / 1000)
	return fmt.Sprintf(
		"silenceremove=start_periods=1:start_threshold=%s:start_silence=%s:stop_periods=-1:stop_duration=%s:stop_threshold=%s:stop_silence=%s",
		threshold, keep, minSilence, threshold, keep,
	)
}

// RemoveSilence implements stage.SilenceRemover.
func (s *SilenceRemover) RemoveSilence(ctx context.Context, path string) (stage.SilenceResult, error) {
	logger := logging.WithContext(ctx, s.logger)
	original, err := s.duration(ctx, path)
	if err != nil {
		return stage.SilenceResult{}, err
	}

	out := DerivedPath(path, "_trimmed", "")
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", path, "-vn", "-af", s.settings.Filter(), out}
	if _, err := s.runner.Run(ctx, s.ffmpeg, args...); err != nil {
		return stage.SilenceResult{}, services.Wrap(services.ErrExternalTool, stage.RemoveSilence, "ffmpeg", "silence removal failed", err)
	}

	trimmed, err := s.duration(ctx, out)
	if err != nil {
		return stage.SilenceResult{}, err
	}
	logger.Info("silence removed",
		logging.String(logging.FieldEventType, "silence_removed"),
		logging.Float64("original_seconds", original),
		logging.Float64("trimmed_seconds", trimmed),
		logging.String("output", out),
	)
	return stage.SilenceResult{OriginalSeconds: original, TrimmedSeconds: trimmed, Path: out}, nil
}

func (s *SilenceRemover) duration(ctx context.Context, path string) (float64, error) {
	result, err := s.prober.Inspect(ctx, path)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, stage.RemoveSilence, "ffprobe", "decode failed", err)
	}
	if result.AudioStreamCount() == 0 {
		return 0, services.Wrap(services.ErrValidation, stage.RemoveSilence, "ffprobe", "no audio stream in "+path, nil)
	}
	return result.DurationSeconds(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
