package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"clipmato/internal/logging"
	"clipmato/internal/media/exec"
	"clipmato/internal/services"
)

type fakeTools struct {
	calls     [][]string
	durations map[string]string
	ffmpegErr error
	noAudio   bool
}

func (f *fakeTools) Run(_ context.Context, name string, args ...string) (exec.Result, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	path := args[len(args)-1]
	switch name {
	case "ffmpeg":
		if f.ffmpegErr != nil {
			return exec.Result{ExitCode: 1}, f.ffmpegErr
		}
		return exec.Result{}, os.WriteFile(path, []byte("audio"), 0o644)
	case "ffprobe":
		streams := `[{"codec_type":"audio"}]`
		if f.noAudio {
			streams = `[{"codec_type":"video"}]`
		}
		out := fmt.Sprintf(`{"streams":%s,"format":{"duration":%q}}`, streams, f.durations[filepath.Base(path)])
		return exec.Result{Stdout: []byte(out)}, nil
	}
	return exec.Result{}, fmt.Errorf("unexpected command %s", name)
}

func TestDerivedPath(t *testing.T) {
	cases := []struct {
		in, suffix, fallback, want string
	}{
		{"/u/talk.wav", "_edited", ".mp3", "/u/talk_edited.wav"},
		{"/u/talk.MP3", "_edited", ".mp3", "/u/talk_edited.MP3"},
		{"/u/talk.mp4", "_edited", ".mp3", "/u/talk_edited.mp3"},
		{"/u/talk.webm", "_trimmed", "", "/u/talk_trimmed.webm"},
		{"/u/talk_edited.mp3", "_trimmed", "", "/u/talk_edited_trimmed.mp3"},
	}
	for _, tc := range cases {
		if got := DerivedPath(tc.in, tc.suffix, tc.fallback); got != tc.want {
			t.Fatalf("DerivedPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEditorWritesEditedCopy(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "episode.mp4")
	tools := &fakeTools{}
	editor := NewEditor("ffmpeg", true, tools, logging.NewNop())

	out, err := editor.Edit(context.Background(), input)
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if out != filepath.Join(dir, "episode_edited.mp3") {
		t.Fatalf("unexpected output %q", out)
	}
	args := tools.calls[0]
	if !slices.Contains(args, "-vn") || !slices.Contains(args, loudnormFilter) {
		t.Fatalf("expected -vn and loudnorm filter, got %v", args)
	}
}

func TestEditorWithoutLoudnorm(t *testing.T) {
	tools := &fakeTools{}
	editor := NewEditor("", false, tools, nil)
	if _, err := editor.Edit(context.Background(), filepath.Join(t.TempDir(), "a.wav")); err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if slices.Contains(tools.calls[0], "-af") {
		t.Fatalf("loudnorm disabled but filter passed: %v", tools.calls[0])
	}
}

func TestEditorFailure(t *testing.T) {
	tools := &fakeTools{ffmpegErr: errors.New("ffmpeg exited 1: Invalid data found")}
	editor := NewEditor("ffmpeg", true, tools, logging.NewNop())
	_, err := editor.Edit(context.Background(), filepath.Join(t.TempDir(), "a.wav"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected ffmpeg detail in error, got %v", err)
	}
}

func TestRemoveSilenceReportsDurations(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "episode_edited.mp3")
	tools := &fakeTools{durations: map[string]string{
		"episode_edited.mp3":         "120.500",
		"episode_edited_trimmed.mp3": "95.25",
	}}
	settings := SilenceSettings{MinSilenceMS: 1000, ThresholdDB: -50, KeepSilenceMS: 200}
	remover := NewSilenceRemover("ffmpeg", "ffprobe", settings, tools, logging.NewNop())

	result, err := remover.RemoveSilence(context.Background(), input)
	if err != nil {
		t.Fatalf("RemoveSilence returned error: %v", err)
	}
	if result.OriginalSeconds != 120.5 || result.TrimmedSeconds != 95.25 {
		t.Fatalf("unexpected durations %+v", result)
	}
	if result.Path != filepath.Join(dir, "episode_edited_trimmed.mp3") {
		t.Fatalf("unexpected output path %q", result.Path)
	}
	if len(tools.calls) != 3 || tools.calls[1][0] != "ffmpeg" {
		t.Fatalf("expected probe, ffmpeg, probe; got %v", tools.calls)
	}
	if !slices.Contains(tools.calls[1], settings.Filter()) {
		t.Fatalf("silence filter not passed: %v", tools.calls[1])
	}
}

func TestSilenceFilter(t *testing.T) {
	got := SilenceSettings{MinSilenceMS: 1000, ThresholdDB: -50, KeepSilenceMS: 200}.Filter()
	want := "silenceremove=start_periods=1:start_threshold=-50dB:start_silence=0.2:stop_periods=-1:stop_duration=1:stop_threshold=-50dB:stop_silence=0.2"
	if got != want {
		t.Fatalf("Filter() = %q, want %q", got, want)
	}
}

func TestRemoveSilenceWithoutAudio(t *testing.T) {
	tools := &fakeTools{noAudio: true}
	remover := NewSilenceRemover("ffmpeg", "ffprobe", SilenceSettings{}, tools, logging.NewNop())
	_, err := remover.RemoveSilence(context.Background(), filepath.Join(t.TempDir(), "v.mp3"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(tools.calls) != 1 {
		t.Fatalf("ffmpeg must not run without audio, calls=%v", tools.calls)
	}
}
