package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/cleaning-ops/internal/availability"
	"github.com/example/cleaning-ops/internal/persistence"
)

// JobRepository implements persistence.JobRepository using SQLite
type JobRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewJobRepository creates a new SQLite job repository
func NewJobRepository(pool *ConnectionPool) *JobRepository {
	return &JobRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const jobColumns = `j.id, j.title, j.customer_id, j.customer_name, j.customer_email, j.address, j.service_type,
	j.status, j.scheduled_for, j.scheduled_end, j.duration_minutes, j.price_pence, j.notes, j.created_at, j.updated_at`

// CreateJob inserts a job and its assignments.
func (r *JobRepository) CreateJob(ctx context.Context, job persistence.Job) error {
	if strings.TrimSpace(job.ID) == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := r.helper.ExecTx(ctx, tx, `
			INSERT INTO jobs (id, title, customer_id, customer_name, customer_email, address, service_type,
				status, scheduled_for, scheduled_end, window_end, duration_minutes, price_pence, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID,
			job.Title,
			job.CustomerID,
			job.CustomerName,
			job.CustomerEmail,
			job.Address,
			job.ServiceType,
			job.Status,
			formatOptionalTime(job.ScheduledFor),
			formatOptionalTime(job.ScheduledEnd),
			windowEnd(job),
			nullInt(job.DurationMinutes),
			job.PricePence,
			nullString(job.Notes),
			formatTime(job.CreatedAt),
			formatTime(job.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		for _, assignment := range job.Assignments {
			assignment.JobID = job.ID
			if err := r.upsertAssignment(ctx, tx, assignment); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateJob overwrites the job row. Assignments are managed by AssignEmployee.
func (r *JobRepository) UpdateJob(ctx context.Context, job persistence.Job) error {
	result, err := r.helper.Exec(ctx, `
		UPDATE jobs
		SET title = ?, customer_id = ?, customer_name = ?, customer_email = ?, address = ?, service_type = ?,
			status = ?, scheduled_for = ?, scheduled_end = ?, window_end = ?, duration_minutes = ?,
			price_pence = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		job.Title,
		job.CustomerID,
		job.CustomerName,
		job.CustomerEmail,
		job.Address,
		job.ServiceType,
		job.Status,
		formatOptionalTime(job.ScheduledFor),
		formatOptionalTime(job.ScheduledEnd),
		windowEnd(job),
		nullInt(job.DurationMinutes),
		job.PricePence,
		nullString(job.Notes),
		formatTime(job.UpdatedAt),
		job.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetJob retrieves a job with its assignments.
func (r *JobRepository) GetJob(ctx context.Context, id string) (persistence.Job, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs j WHERE j.id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		return persistence.Job{}, r.mapper.MapError(err)
	}

	assignments, err := r.loadAssignments(ctx, []string{job.ID})
	if err != nil {
		return persistence.Job{}, err
	}
	job.Assignments = assignments[job.ID]
	return job, nil
}

// ListJobs returns jobs matching filter ordered by start. Unscheduled jobs
// sort last.
func (r *JobRepository) ListJobs(ctx context.Context, filter persistence.JobFilter) ([]persistence.Job, error) {
	query, args := buildJobListQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}

	var jobs []persistence.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			rows.Close()
			return nil, r.mapper.MapError(err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	if len(jobs) == 0 {
		return jobs, nil
	}

	ids := make([]string, len(jobs))
	for i, job := range jobs {
		ids[i] = job.ID
	}
	assignments, err := r.loadAssignments(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		jobs[i].Assignments = assignments[jobs[i].ID]
	}
	return jobs, nil
}

// AssignEmployee adds an employee to a job, replacing the pay amount when
// the employee is already assigned.
func (r *JobRepository) AssignEmployee(ctx context.Context, assignment persistence.JobAssignment) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := r.helper.QueryRowTx(ctx, tx, `SELECT 1 FROM jobs WHERE id = ?`, assignment.JobID).Scan(&exists); err != nil {
			return r.mapper.MapError(err)
		}
		return r.upsertAssignment(ctx, tx, assignment)
	})
}

// RescheduleJob moves a job to record's new window and appends the history
// row in one transaction. The old window is read from the stored job.
func (r *JobRepository) RescheduleJob(ctx context.Context, record persistence.RescheduleRecord) error {
	if !record.NewEnd.After(record.NewStart) {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var oldStart, oldEnd sql.NullString
		err := r.helper.QueryRowTx(ctx, tx,
			`SELECT scheduled_for, scheduled_end FROM jobs WHERE id = ?`, record.JobID,
		).Scan(&oldStart, &oldEnd)
		if err != nil {
			return r.mapper.MapError(err)
		}

		minutes := int(record.NewEnd.Sub(record.NewStart) / time.Minute)
		_, err = r.helper.ExecTx(ctx, tx, `
			UPDATE jobs
			SET scheduled_for = ?, scheduled_end = ?, window_end = ?, duration_minutes = ?, updated_at = ?
			WHERE id = ?`,
			formatTime(record.NewStart),
			formatTime(record.NewEnd),
			formatTime(record.NewEnd),
			minutes,
			formatTime(record.CreatedAt),
			record.JobID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		_, err = r.helper.ExecTx(ctx, tx, `
			INSERT INTO job_reschedules (id, job_id, old_start, old_end, new_start, new_end, reason, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID,
			record.JobID,
			oldStart,
			oldEnd,
			formatTime(record.NewStart),
			formatTime(record.NewEnd),
			record.Reason,
			formatTime(record.CreatedAt),
		)
		return r.mapper.MapError(err)
	})
}

// ListReschedules returns the reschedule history of a job, oldest first.
func (r *JobRepository) ListReschedules(ctx context.Context, jobID string) ([]persistence.RescheduleRecord, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, job_id, old_start, old_end, new_start, new_end, reason, created_at
		FROM job_reschedules
		WHERE job_id = ?
		ORDER BY created_at ASC, id ASC`, jobID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var records []persistence.RescheduleRecord
	for rows.Next() {
		var rec persistence.RescheduleRecord
		var oldStart, oldEnd sql.NullString
		var newStart, newEnd, createdAt string
		if err := rows.Scan(&rec.ID, &rec.JobID, &oldStart, &oldEnd, &newStart, &newEnd, &rec.Reason, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		// Old values may predate validation; keep them nil when unparseable.
		rec.OldStart, _ = parseOptionalTime(oldStart)
		rec.OldEnd, _ = parseOptionalTime(oldEnd)
		if rec.NewStart, err = parseTime(newStart); err != nil {
			return nil, fmt.Errorf("failed to parse new_start: %w", err)
		}
		if rec.NewEnd, err = parseTime(newEnd); err != nil {
			return nil, fmt.Errorf("failed to parse new_end: %w", err)
		}
		if rec.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return records, nil
}

func (r *JobRepository) upsertAssignment(ctx context.Context, tx *sql.Tx, assignment persistence.JobAssignment) error {
	var pay sql.NullInt64
	if assignment.PayAmountPence != nil {
		pay = sql.NullInt64{Int64: *assignment.PayAmountPence, Valid: true}
	}
	_, err := r.helper.ExecTx(ctx, tx, `
		INSERT INTO job_assignments (job_id, employee_id, pay_pence, assigned_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (job_id, employee_id) DO UPDATE SET pay_pence = excluded.pay_pence`,
		assignment.JobID,
		assignment.EmployeeID,
		pay,
		formatTime(assignment.AssignedAt),
	)
	return r.mapper.MapError(err)
}

func (r *JobRepository) loadAssignments(ctx context.Context, jobIDs []string) (map[string][]persistence.JobAssignment, error) {
	args := make([]any, len(jobIDs))
	for i, id := range jobIDs {
		args[i] = id
	}
	rows, err := r.helper.Query(ctx, `
		SELECT job_id, employee_id, pay_pence, assigned_at
		FROM job_assignments
		WHERE job_id IN (`+placeholders(len(jobIDs))+`)
		ORDER BY assigned_at ASC, employee_id ASC`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	out := make(map[string][]persistence.JobAssignment, len(jobIDs))
	for rows.Next() {
		var a persistence.JobAssignment
		var pay sql.NullInt64
		var assignedAt string
		if err := rows.Scan(&a.JobID, &a.EmployeeID, &pay, &assignedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if pay.Valid {
			amount := pay.Int64
			a.PayAmountPence = &amount
		}
		if a.AssignedAt, err = parseTime(assignedAt); err != nil {
			return nil, fmt.Errorf("failed to parse assigned_at: %w", err)
		}
		out[a.JobID] = append(out[a.JobID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return out, nil
}

func buildJobListQuery(filter persistence.JobFilter) (string, []any) {
	query := `SELECT ` + jobColumns + ` FROM jobs j`

	var conditions []string
	var args []any

	// Rows without a computed end predate the window column; return them so
	// callers can flag them.
	if filter.From != nil {
		conditions = append(conditions, "(j.window_end > ? OR (j.scheduled_for IS NOT NULL AND j.window_end IS NULL))")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "(j.scheduled_for < ? OR (j.scheduled_for IS NOT NULL AND j.window_end IS NULL))")
		args = append(args, formatTime(*filter.To))
	}
	if filter.CustomerID != "" {
		conditions = append(conditions, "j.customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.EmployeeID != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM job_assignments a WHERE a.job_id = j.id AND a.employee_id = ?)")
		args = append(args, filter.EmployeeID)
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "j.status IN ("+placeholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY j.scheduled_for IS NULL, j.scheduled_for ASC, j.id ASC"
	return query, args
}

func scanJob(row rowScanner) (persistence.Job, error) {
	var job persistence.Job
	var scheduledFor, scheduledEnd, notes sql.NullString
	var duration sql.NullInt64
	var createdAt, updatedAt string

	if err := row.Scan(
		&job.ID,
		&job.Title,
		&job.CustomerID,
		&job.CustomerName,
		&job.CustomerEmail,
		&job.Address,
		&job.ServiceType,
		&job.Status,
		&scheduledFor,
		&scheduledEnd,
		&duration,
		&job.PricePence,
		&notes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Job{}, err
	}

	start, startErr := parseOptionalTime(scheduledFor)
	end, endErr := parseOptionalTime(scheduledEnd)
	if startErr != nil || endErr != nil {
		job.ScheduleInvalid = true
	} else {
		job.ScheduledFor = start
		job.ScheduledEnd = end
	}
	if duration.Valid {
		minutes := int(duration.Int64)
		job.DurationMinutes = &minutes
	}
	job.Notes = stringPtr(notes)

	var err error
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Job{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Job{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return job, nil
}

func windowEnd(job persistence.Job) sql.NullString {
	window, ok := availability.EffectiveWindow(availability.Job{
		ID:              job.ID,
		ScheduledFor:    job.ScheduledFor,
		ScheduledEnd:    job.ScheduledEnd,
		DurationMinutes: job.DurationMinutes,
	})
	if !ok {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(window.End), Valid: true}
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

var _ persistence.JobRepository = (*JobRepository)(nil)
