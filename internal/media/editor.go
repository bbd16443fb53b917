package media

import (
	"context"
	"log/slog"
	"os"

	"clipmato/internal/logging"
	"clipmato/internal/media/exec"
	"clipmato/internal/services"
	"clipmato/internal/stage"
)

const loudnormFilter = "loudnorm=I=-16:TP=-1.5:LRA=11"

// Editor produces a cleaned-up audio-only copy of an upload.
type Editor struct {
	ffmpeg   string
	loudnorm bool
	runner   exec.Runner
	logger   *slog.Logger
}

// NewEditor returns an editor running ffmpeg through runner. A nil runner
// uses os/exec.
func NewEditor(ffmpeg string, loudnorm bool, runner exec.Runner, logger *slog.Logger) *Editor {
	if runner == nil {
		runner = exec.System{}
	}
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Editor{ffmpeg: ffmpeg, loudnorm: loudnorm, runner: runner, logger: logging.NewComponentLogger(logger, "editor")}
}

// Edit implements stage.AudioEditor.
func (e *Editor) Edit(ctx context.Context, path string) (string, error) {
	out := DerivedPath(path, "_edited", ".mp3")
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", path, "-vn"}
	if e.loudnorm {
		args = append(args, "-af", loudnormFilter)
	}
	args = append(args, out)

	if _, err := e.runner.Run(ctx, e.ffmpeg, args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage.Editing, "ffmpeg", "audio edit failed", err)
	}
	if _, err := os.Stat(out); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage.Editing, "ffmpeg", "edited file missing", err)
	}
	logging.WithContext(ctx, e.logger).Debug("audio edited",
		logging.String("input", path),
		logging.String("output", out),
		logging.Bool("loudnorm", e.loudnorm),
	)
	return out, nil
}
