package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/cleaning-ops/internal/persistence"
)

// PhotoRepository implements persistence.PhotoRepository using SQLite
type PhotoRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPhotoRepository creates a new SQLite photo repository
func NewPhotoRepository(pool *ConnectionPool) *PhotoRepository {
	return &PhotoRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const photoColumns = `id, job_id, filename, digest, status, rejection_reason, latitude, longitude, accuracy_m,
	captured_at, reviewed_at, created_at`

// CreatePhoto inserts a photo and returns it with its assigned ID. A second
// photo with the same digest on the same job is a duplicate.
func (r *PhotoRepository) CreatePhoto(ctx context.Context, photo persistence.Photo) (persistence.Photo, error) {
	if photo.Status == "" {
		photo.Status = "pending"
	}
	result, err := r.helper.Exec(ctx, `
		INSERT INTO job_photos (job_id, filename, digest, status, rejection_reason, latitude, longitude, accuracy_m,
			captured_at, reviewed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		photo.JobID,
		photo.Filename,
		photo.Digest,
		photo.Status,
		nullString(photo.RejectionReason),
		nullFloat(photo.Latitude),
		nullFloat(photo.Longitude),
		nullFloat(photo.AccuracyM),
		formatOptionalTime(photo.CapturedAt),
		formatOptionalTime(photo.ReviewedAt),
		formatTime(photo.CreatedAt),
	)
	if err != nil {
		return persistence.Photo{}, r.mapper.MapError(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return persistence.Photo{}, fmt.Errorf("failed to read photo id: %w", err)
	}
	photo.ID = id
	return photo, nil
}

// GetPhoto retrieves a photo by ID.
func (r *PhotoRepository) GetPhoto(ctx context.Context, id int64) (persistence.Photo, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+photoColumns+` FROM job_photos WHERE id = ?`, id)
	photo, err := scanPhoto(row)
	if err != nil {
		return persistence.Photo{}, r.mapper.MapError(err)
	}
	return photo, nil
}

// ListPhotosForJob returns the photos of a job in upload order.
func (r *PhotoRepository) ListPhotosForJob(ctx context.Context, jobID string) ([]persistence.Photo, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+photoColumns+` FROM job_photos WHERE job_id = ? ORDER BY id ASC`, jobID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var photos []persistence.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return photos, nil
}

// UpdatePhotoStatus sets the review state of one photo.
func (r *PhotoRepository) UpdatePhotoStatus(ctx context.Context, id int64, status string, reason *string, reviewedAt time.Time) error {
	result, err := r.helper.Exec(ctx, updatePhotoStatusQuery, status, nullString(reason), formatTime(reviewedAt), id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

const updatePhotoStatusQuery = `UPDATE job_photos SET status = ?, rejection_reason = ?, reviewed_at = ? WHERE id = ?`

// BulkUpdatePhotoStatus applies status to every photo in one transaction. A
// missing ID rolls the whole batch back with persistence.ErrNotFound.
func (r *PhotoRepository) BulkUpdatePhotoStatus(ctx context.Context, ids []int64, status string, reason *string, reviewedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			result, err := r.helper.ExecTx(ctx, tx, updatePhotoStatusQuery, status, nullString(reason), formatTime(reviewedAt), id)
			if err != nil {
				return r.mapper.MapError(err)
			}
			if err := requireAffected(result); err != nil {
				return fmt.Errorf("photo %d: %w", id, err)
			}
		}
		return nil
	})
}

func scanPhoto(row rowScanner) (persistence.Photo, error) {
	var photo persistence.Photo
	var reason, capturedAt, reviewedAt sql.NullString
	var lat, lng, acc sql.NullFloat64
	var createdAt string

	if err := row.Scan(
		&photo.ID,
		&photo.JobID,
		&photo.Filename,
		&photo.Digest,
		&photo.Status,
		&reason,
		&lat,
		&lng,
		&acc,
		&capturedAt,
		&reviewedAt,
		&createdAt,
	); err != nil {
		return persistence.Photo{}, err
	}

	photo.RejectionReason = stringPtr(reason)
	photo.Latitude = floatPtr(lat)
	photo.Longitude = floatPtr(lng)
	photo.AccuracyM = floatPtr(acc)

	var err error
	if photo.CapturedAt, err = parseOptionalTime(capturedAt); err != nil {
		return persistence.Photo{}, fmt.Errorf("failed to parse captured_at: %w", err)
	}
	if photo.ReviewedAt, err = parseOptionalTime(reviewedAt); err != nil {
		return persistence.Photo{}, fmt.Errorf("failed to parse reviewed_at: %w", err)
	}
	if photo.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Photo{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return photo, nil
}

var _ persistence.PhotoRepository = (*PhotoRepository)(nil)
