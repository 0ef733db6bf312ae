package application

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/example/cleaning-ops/internal/availability"
	"github.com/example/cleaning-ops/internal/email"
	"github.com/example/cleaning-ops/internal/events"
	"github.com/example/cleaning-ops/internal/persistence"
)

var (
	_ persistence.JobRepository      = (*jobRepoStub)(nil)
	_ persistence.EmployeeRepository = (*employeeRepoStub)(nil)
	_ persistence.PhotoRepository    = (*photoRepoStub)(nil)
	_ persistence.BookingRepository  = (*bookingRepoStub)(nil)
)

type jobRepoStub struct {
	mu          sync.Mutex
	jobs        map[string]persistence.Job
	reschedules []persistence.RescheduleRecord
	listErr     error
	listCalls   int
	// afterList runs once, after the next ListJobs snapshot is taken.
	afterList func()
}

func newJobRepoStub(jobs ...persistence.Job) *jobRepoStub {
	repo := &jobRepoStub{jobs: make(map[string]persistence.Job)}
	for _, job := range jobs {
		repo.jobs[job.ID] = job
	}
	return repo
}

func (r *jobRepoStub) CreateJob(ctx context.Context, job persistence.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return persistence.ErrDuplicate
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *jobRepoStub) UpdateJob(ctx context.Context, job persistence.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.jobs[job.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	job.Assignments = existing.Assignments
	r.jobs[job.ID] = job
	return nil
}

func (r *jobRepoStub) GetJob(ctx context.Context, id string) (persistence.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return persistence.Job{}, persistence.ErrNotFound
	}
	return job, nil
}

func (r *jobRepoStub) ListJobs(ctx context.Context, filter persistence.JobFilter) ([]persistence.Job, error) {
	out, err := r.listJobs(filter)
	r.mu.Lock()
	hook := r.afterList
	r.afterList = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, err
}

func (r *jobRepoStub) listJobs(filter persistence.JobFilter) ([]persistence.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []persistence.Job
	for _, job := range r.jobs {
		if filter.CustomerID != "" && job.CustomerID != filter.CustomerID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, job.Status) {
			continue
		}
		if filter.EmployeeID != "" && !slices.Contains(job.EmployeeIDs(), filter.EmployeeID) {
			continue
		}
		if filter.From != nil && filter.To != nil {
			window, ok := availability.EffectiveWindow(toAvailabilityJob(job))
			if ok && !window.Overlaps(availability.Window{Start: *filter.From, End: *filter.To}) {
				continue
			}
		}
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *jobRepoStub) AssignEmployee(ctx context.Context, assignment persistence.JobAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[assignment.JobID]
	if !ok {
		return persistence.ErrNotFound
	}
	for i, a := range job.Assignments {
		if a.EmployeeID == assignment.EmployeeID {
			job.Assignments[i].PayAmountPence = assignment.PayAmountPence
			r.jobs[job.ID] = job
			return nil
		}
	}
	job.Assignments = append(job.Assignments, assignment)
	r.jobs[job.ID] = job
	return nil
}

func (r *jobRepoStub) RescheduleJob(ctx context.Context, record persistence.RescheduleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[record.JobID]
	if !ok {
		return persistence.ErrNotFound
	}
	record.OldStart = job.ScheduledFor
	record.OldEnd = job.ScheduledEnd
	start, end := record.NewStart, record.NewEnd
	minutes := int(end.Sub(start) / time.Minute)
	job.ScheduledFor = &start
	job.ScheduledEnd = &end
	job.DurationMinutes = &minutes
	job.ScheduleInvalid = false
	r.jobs[job.ID] = job
	r.reschedules = append(r.reschedules, record)
	return nil
}

func (r *jobRepoStub) ListReschedules(ctx context.Context, jobID string) ([]persistence.RescheduleRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []persistence.RescheduleRecord
	for _, rec := range r.reschedules {
		if rec.JobID == jobID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type employeeRepoStub struct {
	employees map[string]persistence.Employee
	created   []persistence.Employee
	createErr error
	listErr   error
}

func newEmployeeRepoStub(employees ...persistence.Employee) *employeeRepoStub {
	repo := &employeeRepoStub{employees: make(map[string]persistence.Employee)}
	for _, e := range employees {
		repo.employees[e.ID] = e
	}
	return repo
}

func (r *employeeRepoStub) CreateEmployee(ctx context.Context, employee persistence.Employee) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, employee)
	r.employees[employee.ID] = employee
	return nil
}

func (r *employeeRepoStub) GetEmployee(ctx context.Context, id string) (persistence.Employee, error) {
	e, ok := r.employees[id]
	if !ok {
		return persistence.Employee{}, persistence.ErrNotFound
	}
	return e, nil
}

func (r *employeeRepoStub) ListEmployees(ctx context.Context) ([]persistence.Employee, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]persistence.Employee, 0, len(r.employees))
	for _, e := range r.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type photoRepoStub struct {
	photos    map[int64]persistence.Photo
	nextID    int64
	bulkIDs   []int64
	bulkErr   error
	createErr error
}

func newPhotoRepoStub() *photoRepoStub {
	return &photoRepoStub{photos: make(map[int64]persistence.Photo)}
}

func (r *photoRepoStub) CreatePhoto(ctx context.Context, photo persistence.Photo) (persistence.Photo, error) {
	if r.createErr != nil {
		return persistence.Photo{}, r.createErr
	}
	for _, p := range r.photos {
		if p.JobID == photo.JobID && p.Digest == photo.Digest {
			return persistence.Photo{}, fmt.Errorf("%w: digest", persistence.ErrDuplicate)
		}
	}
	r.nextID++
	photo.ID = r.nextID
	r.photos[photo.ID] = photo
	return photo, nil
}

func (r *photoRepoStub) GetPhoto(ctx context.Context, id int64) (persistence.Photo, error) {
	p, ok := r.photos[id]
	if !ok {
		return persistence.Photo{}, persistence.ErrNotFound
	}
	return p, nil
}

func (r *photoRepoStub) ListPhotosForJob(ctx context.Context, jobID string) ([]persistence.Photo, error) {
	var out []persistence.Photo
	for _, p := range r.photos {
		if p.JobID == jobID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *photoRepoStub) UpdatePhotoStatus(ctx context.Context, id int64, status string, reason *string, reviewedAt time.Time) error {
	p, ok := r.photos[id]
	if !ok {
		return persistence.ErrNotFound
	}
	p.Status = status
	p.RejectionReason = reason
	p.ReviewedAt = &reviewedAt
	r.photos[id] = p
	return nil
}

func (r *photoRepoStub) BulkUpdatePhotoStatus(ctx context.Context, ids []int64, status string, reason *string, reviewedAt time.Time) error {
	r.bulkIDs = append([]int64(nil), ids...)
	if r.bulkErr != nil {
		return r.bulkErr
	}
	for _, id := range ids {
		if _, ok := r.photos[id]; !ok {
			return fmt.Errorf("photo %d: %w", id, persistence.ErrNotFound)
		}
	}
	for _, id := range ids {
		if err := r.UpdatePhotoStatus(ctx, id, status, reason, reviewedAt); err != nil {
			return err
		}
	}
	return nil
}

type bookingRepoStub struct {
	stored []persistence.Booking
	err    error
}

func (r *bookingRepoStub) CreateBooking(ctx context.Context, b persistence.Booking) error {
	if r.err != nil {
		return r.err
	}
	r.stored = append(r.stored, b)
	return nil
}

func (r *bookingRepoStub) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	for _, b := range r.stored {
		if b.ID == id {
			return b, nil
		}
	}
	return persistence.Booking{}, persistence.ErrNotFound
}

type publisherStub struct {
	mu     sync.Mutex
	events []events.JobsChanged
}

func (p *publisherStub) Publish(event events.JobsChanged) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *publisherStub) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Kind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

type mailerStub struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (m *mailerStub) Send(ctx context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mailerStub) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.To)
	}
	sort.Strings(out)
	return out
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func timePtr(t time.Time) *time.Time { return &t }

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }

func floatPtr(v float64) *float64 { return &v }

// refNow is Tuesday 10 March 2026 08:00 UTC.
var refNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func scheduledJob(id string, start time.Time, minutes int, employees ...string) persistence.Job {
	job := persistence.Job{
		ID:              id,
		Title:           "Clean " + id,
		CustomerID:      "cust-" + id,
		CustomerName:    "Customer " + id,
		Address:         "1 High Street",
		Status:          string(availability.JobStatusScheduled),
		ScheduledFor:    timePtr(start),
		DurationMinutes: intPtr(minutes),
		PricePence:      10000,
	}
	for _, e := range employees {
		job.Assignments = append(job.Assignments, persistence.JobAssignment{JobID: id, EmployeeID: e})
	}
	return job
}
