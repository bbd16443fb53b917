package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"clipmato/internal/config"
	"clipmato/internal/deps"
	"clipmato/internal/services/llm"
	"clipmato/internal/stage"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt.
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		TimeoutSeconds: cfg.TimeoutSeconds,
	})
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the binaries the media stages execute. Both the
// daemon and the CLI status command use this.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.MediaRequirements(cfg.FFmpegBinary()))
}

// StageHealth reports per-stage readiness derived from configuration and the
// availability of system binaries. It makes no network calls.
func StageHealth(cfg *config.Config, binaries []deps.Status) []stage.Health {
	llmReady := strings.TrimSpace(cfg.LLM.APIKey) != ""
	mediaReady, mediaDetail := true, ""
	for _, status := range binaries {
		if !status.Available && !status.Optional {
			mediaReady = false
			mediaDetail = status.Detail
			break
		}
	}

	health := make([]stage.Health, 0, 8)
	switch {
	case strings.TrimSpace(cfg.Transcription.APIKey) == "":
		health = append(health, stage.Unhealthy(stage.Transcribing, "transcription API key missing"))
	case !mediaReady:
		health = append(health, stage.Unhealthy(stage.Transcribing, mediaDetail))
	default:
		health = append(health, stage.Healthy(stage.Transcribing))
	}
	for _, name := range []string{stage.Descriptions, stage.Entities, stage.Titles, stage.Script} {
		if llmReady {
			health = append(health, stage.Healthy(name))
		} else {
			health = append(health, stage.Unhealthy(name, "LLM API key missing"))
		}
	}
	for _, name := range []string{stage.Editing, stage.RemoveSilence} {
		if mediaReady {
			health = append(health, stage.Healthy(name))
		} else {
			health = append(health, stage.Unhealthy(name, mediaDetail))
		}
	}
	health = append(health, distributionHealth(cfg.Distribution))
	return health
}

func distributionHealth(cfg config.Distribution) stage.Health {
	switch cfg.Mode {
	case config.DistributionS3:
		if strings.TrimSpace(cfg.S3.Bucket) == "" {
			return stage.Unhealthy(stage.Distribution, "s3 bucket not configured")
		}
	case config.DistributionLocal:
		if result := CheckDirectoryAccess("Publish directory", cfg.PublishDir); !result.Passed {
			return stage.Unhealthy(stage.Distribution, result.Detail)
		}
	}
	return stage.Healthy(stage.Distribution)
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
