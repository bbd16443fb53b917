package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateDistribution(); err != nil {
		return err
	}
	if err := c.validateScheduling(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.worker_pool_size":     c.Workflow.WorkerPoolSize,
		"workflow.max_active_jobs":      c.Workflow.MaxActiveJobs,
		"llm.timeout_seconds":           c.LLM.TimeoutSeconds,
		"transcription.timeout_seconds": c.Transcription.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateAudio() error {
	if c.Audio.MinSilenceMS <= 0 {
		return errors.New("audio.min_silence_ms must be positive")
	}
	if c.Audio.KeepSilenceMS < 0 {
		return errors.New("audio.keep_silence_ms must be >= 0")
	}
	if c.Audio.SilenceThresholdDB >= 0 {
		return errors.New("audio.silence_threshold_db must be negative")
	}
	return nil
}

func (c *Config) validateDistribution() error {
	switch c.Distribution.Mode {
	case DistributionNone, DistributionLocal:
		return nil
	case DistributionS3:
		if c.Distribution.S3.Bucket == "" {
			return errors.New("distribution.s3.bucket must be set when distribution.mode is s3")
		}
		return nil
	default:
		return fmt.Errorf("distribution.mode: unsupported value %q (use none, local, or s3)", c.Distribution.Mode)
	}
}

func (c *Config) validateScheduling() error {
	switch c.Scheduling.DefaultCadence {
	case "daily", "weekly":
	case "every_n":
		if c.Scheduling.DefaultNDays <= 0 {
			return errors.New("scheduling.default_n_days must be positive when scheduling.default_cadence is every_n")
		}
	default:
		return fmt.Errorf("scheduling.default_cadence: unsupported value %q (use daily, weekly, or every_n)", c.Scheduling.DefaultCadence)
	}
	if c.Scheduling.PublishHour < 0 || c.Scheduling.PublishHour > 23 {
		return errors.New("scheduling.publish_hour must be between 0 and 23")
	}
	if expr := strings.TrimSpace(c.Scheduling.AutoCron); expr != "" {
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("scheduling.auto_cron: %w", err)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
