package transcription

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"clipmato/internal/logging"
	"clipmato/internal/media"
	"clipmato/internal/media/exec"
	"clipmato/internal/media/ffprobe"
	"clipmato/internal/services"
	"clipmato/internal/stage"
)

// NoAudioMessage is the failure reported for media without an audio stream.
const NoAudioMessage = "No audio track detected. Please record with a microphone or choose webcam/screen+webcam recording."

const (
	defaultBaseURL    = "https://api.openai.com/v1/audio/transcriptions"
	defaultModel      = "whisper-1"
	defaultChunkBytes = 25 * 1024 * 1024
)

// Config captures the transcription endpoint settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	ChunkBytes     int64
	TimeoutSeconds int
	FFmpeg         string
	FFprobe        string
}

// Transcriber implements stage.Transcriber.
type Transcriber struct {
	cfg        Config
	httpClient *http.Client
	runner     exec.Runner
	prober     *ffprobe.Prober
	logger     *slog.Logger
}

// Option customizes a Transcriber.
type Option func(*Transcriber)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transcriber) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// WithRunner overrides how ffmpeg and ffprobe are executed.
func WithRunner(runner exec.Runner) Option {
	return func(t *Transcriber) {
		if runner != nil {
			t.runner = runner
		}
	}
}

// New constructs a transcriber.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Transcriber {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	if cfg.ChunkBytes <= 0 {
		cfg.ChunkBytes = defaultChunkBytes
	}
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = "ffmpeg"
	}
	timeout := 10 * time.Minute
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	t := &Transcriber{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		runner:     exec.System{},
		logger:     logging.NewComponentLogger(logger, "transcription"),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.prober = &ffprobe.Prober{Binary: cfg.FFprobe, Runner: t.runner}
	return t
}

// Transcribe implements stage.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	if t.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, stage.Transcribing, "transcribe", "transcription api key required", nil)
	}
	logger := logging.WithContext(ctx, t.logger)

	audioPath := path
	if !media.IsAudioOnly(path) {
		converted, err := t.convert(ctx, path)
		if err != nil {
			return "", err
		}
		logger.Debug("converted upload to wav", logging.String("input", path), logging.String("output", converted))
		audioPath = converted
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribing, "stat audio", "", err)
	}
	if info.Size() <= t.cfg.ChunkBytes {
		return t.upload(ctx, audioPath)
	}

	logger.Info("splitting audio for transcription",
		logging.Int("size_bytes", int(info.Size())),
		logging.Int("chunk_bytes", int(t.cfg.ChunkBytes)),
	)
	return t.transcribeChunks(ctx, audioPath, info.Size())
}

func (t *Transcriber) convert(ctx context.Context, path string) (string, error) {
	probe, err := t.prober.Inspect(ctx, path)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribing, "ffprobe", "", err)
	}
	if probe.AudioStreamCount() == 0 {
		return "", services.Wrap(services.ErrValidation, stage.Transcribing, "", NoAudioMessage, nil)
	}
	dst := strings.TrimSuffix(path, filepath.Ext(path)) + ".wav"
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", path, "-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1", dst}
	if _, err := t.runner.Run(ctx, t.cfg.FFmpeg, args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribing, "ffmpeg", "audio conversion failed", err)
	}
	return dst, nil
}

func (t *Transcriber) transcribeChunks(ctx context.Context, path string, size int64) (string, error) {
	probe, err := t.prober.Inspect(ctx, path)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribing, "ffprobe", "", err)
	}
	chunks := int(math.Ceil(float64(size) / float64(t.cfg.ChunkBytes)))
	segment := int(math.Ceil(probe.DurationSeconds() / float64(chunks)))
	if segment < 1 {
		segment = 1
	}

	tmpDir, err := os.MkdirTemp(filepath.Dir(path), ".chunks-*")
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribing, "split audio", "", err)
	}
	defer os.RemoveAll(tmpDir)

	ext := filepath.Ext(path)
	pattern := filepath.Join(tmpDir, "chunk_%03d"+ext)
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", path, "-f", "segment", "-segment_time", strconv.Itoa(segment), "-c", "copy", "-reset_timestamps", "1", pattern}
	if _, err := t.runner.Run(ctx, t.cfg.FFmpeg, args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribing, "ffmpeg", "split audio failed", err)
	}

	files, err := filepath.Glob(filepath.Join(tmpDir, "chunk_*"+ext))
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribing, "split audio", "", err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribing, "split audio", "ffmpeg produced no segments", nil)
	}

	parts := make([]string, 0, len(files))
	for _, file := range files {
		text, err := t.upload(ctx, file)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), nil
}

func (t *Transcriber) upload(ctx context.Context, path string) (string, error) {
	body, contentType, err := multipartBody(path, t.cfg.Model)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribing, "build request", "", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL, body)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribing, "build request", "", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribing, "transcription request", "", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribing, "read response", "", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribing, "transcription request",
			fmt.Sprintf("http %d: %s", resp.StatusCode, snippet(payload)), nil)
	}
	return strings.TrimSpace(string(payload)), nil
}

func multipartBody(path, model string) (io.Reader, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("model", model); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("response_format", "text"); err != nil {
		return nil, "", err
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func snippet(body []byte) string {
	text := strings.Join(strings.Fields(string(body)), " ")
	const limit = 160
	if runes := []rune(text); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return text
}
