package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clipmato/internal/fileutil"
	"clipmato/internal/logging"
	"clipmato/internal/services"
)

const fileSuffix = ".status.json"

// Store reads and writes per-job status files under one directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore returns a store rooted at dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logging.NewComponentLogger(logger, "progress")}
}

// Path returns the status file location for id.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, filepath.Base(id)+fileSuffix)
}

// Update replaces the job's status with stage, its percentage, and an
// optional message.
func (s *Store) Update(ctx context.Context, id, stageName, message string) error {
	pct, known := Percent(stageName)
	if !known {
		logging.WithContext(ctx, s.logger).Debug("stage has no progress mapping",
			logging.String("unmapped_stage", stageName),
			logging.String(logging.FieldEventType, "progress_unmapped_stage"),
		)
	}
	status := Status{Stage: stageName, Progress: pct, Message: strings.TrimSpace(message)}
	return s.write(id, status)
}

// Set writes status as-is. Percentages are not recomputed.
func (s *Store) Set(_ context.Context, id string, status Status) error {
	return s.write(id, status)
}

func (s *Store) write(id string, status Status) error {
	if strings.TrimSpace(id) == "" {
		return services.Wrap(services.ErrValidation, "", "write progress", "job id is empty", nil)
	}
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return services.Wrap(services.ErrStoreIO, "", "write progress", "create progress directory", err)
	}
	if err := fileutil.WriteFileAtomic(s.Path(id), data, 0o644); err != nil {
		return services.Wrap(services.ErrStoreIO, "", "write progress", id, err)
	}
	return nil
}

// Read returns the job's current status. It never fails: a missing file
// yields pending, an unreadable or malformed file yields an error status
// carrying InvalidFileCode.
func (s *Store) Read(ctx context.Context, id string) Status {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "progress file unreadable; reporting pending", "progress_read_failed",
				logging.String(logging.FieldJobID, id),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check progress_dir permissions"),
				logging.String(logging.FieldImpact, "job status shows pending until the file can be read"),
			)
		}
		return pendingStatus()
	}
	status, err := decodeStatus(data)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "progress file invalid", "progress_invalid",
			logging.String(logging.FieldJobID, id),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job status reported as error"),
		)
		return invalidStatus()
	}
	return status
}

// Remove deletes the job's status file. A missing file is not an error.
func (s *Store) Remove(id string) error {
	if err := os.Remove(s.Path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrStoreIO, "", "remove progress", id, err)
	}
	return nil
}
