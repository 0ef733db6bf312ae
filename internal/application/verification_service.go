package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/cleaning-ops/internal/events"
	"github.com/example/cleaning-ops/internal/observability"
	"github.com/example/cleaning-ops/internal/persistence"
	"github.com/example/cleaning-ops/internal/verification"
)

// VerificationService records completion photos and applies reviewer decisions.
type VerificationService struct {
	photos   persistence.PhotoRepository
	jobs     JobLookup
	events   EventPublisher
	counters *observability.Counters
	now      func() time.Time
	logger   *slog.Logger
}

// JobLookup fetches one job.
type JobLookup interface {
	GetJob(ctx context.Context, id string) (persistence.Job, error)
}

// NewVerificationService constructs the service.
func NewVerificationService(photos persistence.PhotoRepository, jobs JobLookup, now func() time.Time) *VerificationService {
	return NewVerificationServiceWithLogger(photos, jobs, nil, nil, now, nil)
}

// NewVerificationServiceWithLogger constructs the service with events, counters and a specified logger.
func NewVerificationServiceWithLogger(photos persistence.PhotoRepository, jobs JobLookup, publisher EventPublisher, counters *observability.Counters, now func() time.Time, logger *slog.Logger) *VerificationService {
	if now == nil {
		now = time.Now
	}
	return &VerificationService{photos: photos, jobs: jobs, events: publisher, counters: counters, now: now, logger: defaultLogger(logger)}
}

func (s *VerificationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "VerificationService", operation, attrs...)
}

// Upload stores a photo for a job. The same content twice for one job is a conflict.
func (s *VerificationService) Upload(ctx context.Context, input UploadPhotoInput) (photo persistence.Photo, err error) {
	if s == nil || s.photos == nil {
		err = fmt.Errorf("photo repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Upload", "job_id", input.JobID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to store photo", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("photo_id", photo.ID).InfoContext(ctx, "photo stored")
	}()

	vErr := &ValidationError{}
	if len(input.Content) == 0 {
		vErr.add("file", "photo content is required")
	}
	if input.AccuracyM != nil && *input.AccuracyM < 0 {
		vErr.add("accuracy", "accuracy must not be negative")
	}
	if input.Latitude != nil && (*input.Latitude < -90 || *input.Latitude > 90) {
		vErr.add("latitude", "latitude must be between -90 and 90")
	}
	if input.Longitude != nil && (*input.Longitude < -180 || *input.Longitude > 180) {
		vErr.add("longitude", "longitude must be between -180 and 180")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if s.jobs != nil {
		if _, err = s.jobs.GetJob(ctx, input.JobID); err != nil {
			err = mapRepoError(err, "jobId", "invalid job id")
			return
		}
	}

	filename := filepath.Base(strings.TrimSpace(input.Filename))
	if filename == "." || filename == "/" || filename == "" {
		filename = "photo"
	}

	photo, err = s.photos.CreatePhoto(ctx, persistence.Photo{
		JobID:      input.JobID,
		Filename:   filename,
		Digest:     verification.Digest(input.Content),
		Status:     string(verification.StatusPending),
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		AccuracyM:  input.AccuracyM,
		CapturedAt: input.CapturedAt,
		CreatedAt:  s.now(),
	})
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			err = &ConflictError{Code: ConflictDuplicatePhoto, Message: "this photo was already uploaded for the job"}
			return
		}
		err = mapRepoError(err, "jobId", "invalid job id")
		return
	}
	s.publish(input.JobID)
	return
}

// Review sets the status of one photo. Re-reviewing overwrites the previous decision.
func (s *VerificationService) Review(ctx context.Context, photoID int64, status verification.Status, reason string) (photo persistence.Photo, err error) {
	if s == nil || s.photos == nil {
		err = fmt.Errorf("photo repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Review", "photo_id", photoID, "status", string(status))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to review photo", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "photo reviewed")
	}()

	if err = verification.ValidateTransition(status, reason); err != nil {
		return
	}
	if err = s.photos.UpdatePhotoStatus(ctx, photoID, string(status), reviewReason(status, reason), s.now()); err != nil {
		err = mapRepoError(err, "status", "invalid status")
		return
	}
	s.counters.PhotosReviewed(ctx, string(status), 1)

	photo, err = s.photos.GetPhoto(ctx, photoID)
	if err != nil {
		err = mapRepoError(err, "id", "invalid photo id")
		return
	}
	s.publish(photo.JobID)
	return
}

// BulkReview applies one decision to every photo in ids, or to none of them.
func (s *VerificationService) BulkReview(ctx context.Context, ids []int64, status verification.Status, reason string) (err error) {
	if s == nil || s.photos == nil {
		return fmt.Errorf("photo repository not configured")
	}

	logger := s.loggerWith(ctx, "BulkReview", "photo_count", len(ids), "status", string(status))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to review photos", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "photos reviewed")
	}()

	if len(ids) == 0 {
		vErr := &ValidationError{}
		vErr.add("photoIds", "at least one photo is required")
		return vErr
	}
	if err = verification.ValidateTransition(status, reason); err != nil {
		return err
	}

	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	if err = s.photos.BulkUpdatePhotoStatus(ctx, unique, string(status), reviewReason(status, reason), s.now()); err != nil {
		return mapRepoError(err, "photoIds", "invalid photo ids")
	}
	s.counters.PhotosReviewed(ctx, string(status), len(unique))
	s.publish()
	return nil
}

// Summary scores the photos of a job.
func (s *VerificationService) Summary(ctx context.Context, jobID string) (verification.Summary, error) {
	if s == nil || s.photos == nil {
		return verification.Summary{}, fmt.Errorf("photo repository not configured")
	}
	if s.jobs != nil {
		if _, err := s.jobs.GetJob(ctx, jobID); err != nil {
			return verification.Summary{}, mapRepoError(err, "jobId", "invalid job id")
		}
	}
	photos, err := s.photos.ListPhotosForJob(ctx, jobID)
	if err != nil && !isNotFoundError(err) {
		return verification.Summary{}, err
	}
	return verification.Summarize(jobID, toVerificationPhotos(photos)), nil
}

// Photos lists the photos of a job.
func (s *VerificationService) Photos(ctx context.Context, jobID string) ([]persistence.Photo, error) {
	if s == nil || s.photos == nil {
		return nil, fmt.Errorf("photo repository not configured")
	}
	photos, err := s.photos.ListPhotosForJob(ctx, jobID)
	if err != nil && isNotFoundError(err) {
		return nil, nil
	}
	return photos, err
}

func (s *VerificationService) publish(jobIDs ...string) {
	if s.events == nil {
		return
	}
	s.events.Publish(events.JobsChanged{Kind: events.KindPhotos, JobIDs: jobIDs, OccurredAt: s.now()})
}

// reviewReason keeps a rejection reason and clears it on verification.
func reviewReason(status verification.Status, reason string) *string {
	if status != verification.StatusRejected {
		return nil
	}
	trimmed := strings.TrimSpace(reason)
	return &trimmed
}
