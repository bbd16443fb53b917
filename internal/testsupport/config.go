package testsupport

import (
	"path/filepath"
	"testing"

	"clipmato/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config whose stores live in a unique temp directory.
// Directories are created before returning.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = base
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.MetadataFile = filepath.Join(base, "metadata.json")
	cfg.Paths.ProgressDir = filepath.Join(base, "progress")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Distribution.PublishDir = filepath.Join(base, "published")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithDistributionMode overrides the distribution mode on the test config.
func WithDistributionMode(mode string) ConfigOption {
	return func(c *config.Config) {
		c.Distribution.Mode = mode
	}
}

// WithUploadLimit overrides the maximum upload size.
func WithUploadLimit(limit int64) ConfigOption {
	return func(c *config.Config) {
		c.Uploads.MaxBytes = limit
	}
}
