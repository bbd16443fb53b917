package preflight

import (
	"context"
	"path/filepath"
	"strings"

	"clipmato/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config. The
// LLM check only runs when an API key is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := CheckDirectories(cfg)
	if strings.TrimSpace(cfg.LLM.APIKey) != "" {
		results = append(results, CheckLLM(ctx, "LLM", cfg.LLM))
	}
	return results
}

// CheckDirectories verifies every directory the daemon writes into.
func CheckDirectories(cfg *config.Config) []Result {
	results := []Result{
		CheckDirectoryAccess("Upload directory", cfg.Paths.UploadDir),
		CheckDirectoryAccess("Progress directory", cfg.Paths.ProgressDir),
		CheckDirectoryAccess("Metadata directory", filepath.Dir(cfg.Paths.MetadataFile)),
	}
	if cfg.Distribution.Mode == config.DistributionLocal {
		results = append(results, CheckDirectoryAccess("Publish directory", cfg.Distribution.PublishDir))
	}
	return results
}
