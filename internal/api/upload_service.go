package api

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"clipmato/internal/logging"
	"clipmato/internal/processing"
	"clipmato/internal/progress"
	"clipmato/internal/services"
	"clipmato/internal/stage"
	"clipmato/internal/upload"
)

// JobSubmitter hands accepted jobs to background processing.
type JobSubmitter interface {
	Submit(job processing.Job) error
}

// UploadService accepts uploads and starts their jobs.
type UploadService struct {
	store    *upload.Store
	progress *progress.Store
	jobs     JobSubmitter
	logger   *slog.Logger
	newID    func() string
}

// NewUploadService constructs an UploadService.
func NewUploadService(store *upload.Store, progressStore *progress.Store, jobs JobSubmitter, logger *slog.Logger) *UploadService {
	return &UploadService{
		store:    store,
		progress: progressStore,
		jobs:     jobs,
		logger:   logging.NewComponentLogger(logger, "upload-service"),
		newID:    uuid.NewString,
	}
}

// Accept stores r as a new upload, seeds its progress at the first stage, and
// submits the job. Rejections carry upload.ErrUnsupportedType or
// upload.ErrTooLarge.
func (s *UploadService) Accept(ctx context.Context, filename, contentType string, r io.Reader, removeSilence bool) (UploadResponse, error) {
	id := s.newID()
	ctx = services.WithJobID(ctx, id)
	logger := logging.WithContext(ctx, s.logger)

	saved, err := s.store.Accept(filename, contentType, upload.Token(id), r)
	if err != nil {
		logger.Info("upload rejected",
			logging.String(logging.FieldEventType, "upload_rejected"),
			logging.String("filename", filename),
			logging.String("content_type", contentType),
			logging.Error(err),
		)
		return UploadResponse{}, err
	}
	if err := s.progress.Update(ctx, id, stage.Transcribing, ""); err != nil {
		s.discard(ctx, id)
		return UploadResponse{}, err
	}
	job := processing.Job{ID: id, Path: saved.Path, Filename: filename, RemoveSilence: removeSilence}
	if err := s.jobs.Submit(job); err != nil {
		s.discard(ctx, id)
		return UploadResponse{}, services.Wrap(services.ErrConfiguration, "", "submit job", "", err)
	}

	logger.Info("upload accepted",
		logging.String(logging.FieldEventType, "upload_accepted"),
		logging.String("filename", filename),
		logging.String("path", saved.Path),
		logging.String("detected_type", saved.DetectedType),
		logging.Int("bytes", int(saved.Size)),
	)
	return UploadResponse{ID: id, Filename: filename}, nil
}

// discard removes the stored upload and status of a job that was never
// submitted.
func (s *UploadService) discard(ctx context.Context, id string) {
	logger := logging.WithContext(ctx, s.logger)
	if _, err := s.store.RemoveJobFiles(upload.Token(id)); err != nil {
		logging.WarnWithContext(logger, "orphaned upload not removed", "upload_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the file from upload_dir by hand"),
		)
	}
	if err := s.progress.Remove(id); err != nil {
		logging.WarnWithContext(logger, "orphaned status not removed", "progress_cleanup_failed",
			logging.Error(err),
		)
	}
}
