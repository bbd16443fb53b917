package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"clipmato/internal/fileutil"
	"clipmato/internal/logging"
	"clipmato/internal/services"
)

// ErrNotFound is returned by Remove when no record has the requested id.
var ErrNotFound = fmt.Errorf("record %w", services.ErrNotFound)

const lockRetryDelay = 10 * time.Millisecond

// Store is the lock-protected JSON array of job records.
type Store struct {
	path     string
	lockPath string
	logger   *slog.Logger
}

// NewStore returns a store backed by path. The file is created on first write.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:     path,
		lockPath: path + ".lock",
		logger:   logging.NewComponentLogger(logger, "metadata"),
	}
}

// Path returns the metadata file location.
func (s *Store) Path() string {
	return s.path
}

// Read returns every record. I/O and parse failures are logged and yield an
// empty list so listing paths stay available.
func (s *Store) Read(ctx context.Context) []Record {
	records, err := s.load()
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "metadata unreadable; returning no records", "metadata_read_failed",
			logging.String("path", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect or restore the metadata file"),
			logging.String(logging.FieldImpact, "record listings appear empty"),
		)
		return []Record{}
	}
	return records
}

// Get returns the record with id.
func (s *Store) Get(ctx context.Context, id string) (Record, bool) {
	for _, record := range s.Read(ctx) {
		if record.ID == id {
			return record, true
		}
	}
	return Record{}, false
}

// Append adds record to the store. Ids must be unique.
func (s *Store) Append(ctx context.Context, record Record) error {
	if record.ID == "" {
		return services.Wrap(services.ErrValidation, "", "append record", "record id is empty", nil)
	}
	return s.mutate(ctx, "append", func(records []Record) ([]Record, bool, error) {
		for _, existing := range records {
			if existing.ID == record.ID {
				return nil, false, services.Wrap(services.ErrValidation, "", "append record", "duplicate id "+record.ID, nil)
			}
		}
		return append(records, record), true, nil
	})
}

// Update merges fields (keyed by JSON field name) into the record with id and
// reports whether it was found. A missing id leaves the file untouched.
func (s *Store) Update(ctx context.Context, id string, fields map[string]any) (bool, error) {
	found := false
	err := s.mutate(ctx, "update", func(records []Record) ([]Record, bool, error) {
		for i := range records {
			if records[i].ID != id {
				continue
			}
			patch := make(map[string]any, len(fields))
			for key, value := range fields {
				if key != "id" {
					patch[key] = value
				}
			}
			merged, err := records[i].merge(patch)
			if err != nil {
				return nil, false, services.Wrap(services.ErrValidation, "", "update record", id, err)
			}
			records[i] = merged
			found = true
			return records, true, nil
		}
		return records, false, nil
	})
	return found, err
}

// Remove deletes the record with id and returns it. A missing id yields
// ErrNotFound and leaves the file untouched.
func (s *Store) Remove(ctx context.Context, id string) (Record, error) {
	var removed *Record
	err := s.mutate(ctx, "remove", func(records []Record) ([]Record, bool, error) {
		kept := make([]Record, 0, len(records))
		for i := range records {
			if records[i].ID == id && removed == nil {
				removed = &records[i]
				continue
			}
			kept = append(kept, records[i])
		}
		return kept, removed != nil, nil
	})
	if err != nil {
		return Record{}, err
	}
	if removed == nil {
		return Record{}, ErrNotFound
	}
	return *removed, nil
}

// mutate serializes read-modify-write cycles across goroutines and processes.
// fn receives a fresh copy of the records and reports whether to write.
func (s *Store) mutate(ctx context.Context, op string, fn func([]Record) ([]Record, bool, error)) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return services.Wrap(services.ErrStoreIO, "", op, "create metadata directory", err)
	}
	lock := flock.New(s.lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return services.Wrap(services.ErrStoreIO, "", op, "acquire metadata lock", err)
	}
	if !locked {
		return services.Wrap(services.ErrStoreIO, "", op, "metadata lock unavailable", nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Debug("metadata unlock failed", logging.Error(err))
		}
	}()

	records, err := s.load()
	if err != nil {
		return services.Wrap(services.ErrStoreIO, "", op, "read metadata", err)
	}
	next, write, err := fn(records)
	if err != nil || !write {
		return err
	}
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return services.Wrap(services.ErrStoreIO, "", op, "write metadata", err)
	}
	return nil
}

func (s *Store) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
