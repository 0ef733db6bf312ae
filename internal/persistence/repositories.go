package persistence

import (
	"context"
	"time"
)

// EmployeeRepository stores staff records.
type EmployeeRepository interface {
	CreateEmployee(ctx context.Context, employee Employee) error
	GetEmployee(ctx context.Context, id string) (Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// JobFilter narrows job queries. From and To select jobs whose effective
// window overlaps [From, To).
type JobFilter struct {
	From       *time.Time
	To         *time.Time
	CustomerID string
	EmployeeID string
	Statuses   []string
}

// JobRepository stores jobs, their assignments and reschedule history.
type JobRepository interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, id string) (Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]Job, error)
	AssignEmployee(ctx context.Context, assignment JobAssignment) error
	RescheduleJob(ctx context.Context, record RescheduleRecord) error
	ListReschedules(ctx context.Context, jobID string) ([]RescheduleRecord, error)
}

// PhotoRepository stores job photos and their review state.
type PhotoRepository interface {
	CreatePhoto(ctx context.Context, photo Photo) (Photo, error)
	GetPhoto(ctx context.Context, id int64) (Photo, error)
	ListPhotosForJob(ctx context.Context, jobID string) ([]Photo, error)
	UpdatePhotoStatus(ctx context.Context, id int64, status string, reason *string, reviewedAt time.Time) error
	// BulkUpdatePhotoStatus applies one status to every photo or to none.
	BulkUpdatePhotoStatus(ctx context.Context, ids []int64, status string, reason *string, reviewedAt time.Time) error
}

// BookingRepository stores public bookings.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
}

// OutboxRepository queues rendered email.
type OutboxRepository interface {
	EnqueueOutbox(ctx context.Context, msg OutboxMessage) error
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, id string, sentAt time.Time) error
}
