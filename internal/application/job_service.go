package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/example/cleaning-ops/internal/availability"
	"github.com/example/cleaning-ops/internal/email"
	"github.com/example/cleaning-ops/internal/events"
	"github.com/example/cleaning-ops/internal/observability"
	"github.com/example/cleaning-ops/internal/persistence"
)

// DuplicateWindow is how close two jobs for the same customer may start
// before the second is reported as a duplicate booking.
const DuplicateWindow = 2 * time.Hour

// EventPublisher receives job change notifications.
type EventPublisher interface {
	Publish(event events.JobsChanged)
}

// JobServiceDeps wires the collaborators of a JobService. Only Jobs is required.
type JobServiceDeps struct {
	Jobs         persistence.JobRepository
	Employees    EmployeeDirectory
	Availability *AvailabilityService
	Events       EventPublisher
	Renderer     *email.Renderer
	Mailer       email.Mailer
	Counters     *observability.Counters
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// JobService orchestrates validation, conflict checks and persistence for jobs.
type JobService struct {
	jobs         persistence.JobRepository
	employees    EmployeeDirectory
	availability *AvailabilityService
	events       EventPublisher
	notify       notifier
	counters     *observability.Counters
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewJobService wires dependencies for job operations.
func NewJobService(deps JobServiceDeps) *JobService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &JobService{
		jobs:         deps.Jobs,
		employees:    deps.Employees,
		availability: deps.Availability,
		events:       deps.Events,
		notify:       notifier{renderer: deps.Renderer, mailer: deps.Mailer},
		counters:     deps.Counters,
		idGenerator:  deps.IDGenerator,
		now:          deps.Now,
		logger:       defaultLogger(deps.Logger),
	}
}

func (s *JobService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "JobService", operation, attrs...)
}

// CreateJob validates the request, applies conflict rules and persists the job.
// Busy staff are reported as warnings and never block creation.
func (s *JobService) CreateJob(ctx context.Context, input JobInput) (result JobResult, err error) {
	if s == nil {
		err = fmt.Errorf("JobService is nil")
		return
	}
	if s.jobs == nil {
		err = fmt.Errorf("job repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateJob", "customer_id", input.CustomerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create job", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("job_id", result.Job.ID, "warning_count", len(result.Warnings)).InfoContext(ctx, "job created")
	}()

	vErr := validateJobInput(input)
	employeeIDs := uniqueStrings(input.EmployeeIDs)
	staff, lookupErr := s.lookupEmployees(ctx, employeeIDs, "employeeIds", vErr)
	if lookupErr != nil {
		err = lookupErr
		return
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	job := persistence.Job{
		ID:              s.idGenerator(),
		Title:           strings.TrimSpace(input.Title),
		CustomerID:      strings.TrimSpace(input.CustomerID),
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerEmail:   strings.TrimSpace(input.CustomerEmail),
		Address:         strings.TrimSpace(input.Address),
		ServiceType:     strings.TrimSpace(input.ServiceType),
		Status:          string(availability.JobStatusPending),
		ScheduledFor:    utcPtr(input.ScheduledFor),
		ScheduledEnd:    utcPtr(input.ScheduledEnd),
		DurationMinutes: input.DurationMinutes,
		PricePence:      input.PricePence,
		Notes:           input.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if job.Title == "" {
		job.Title = defaultJobTitle(job)
	}
	if job.ScheduledFor != nil {
		job.Status = string(availability.JobStatusScheduled)
	}

	if job.ScheduledFor != nil && job.ScheduledFor.Before(now) {
		if !slices.Contains(input.Overrides, OverrideBackCreateComplete) {
			err = &ConflictError{
				Code:     ConflictScheduledInPast,
				Message:  "job is scheduled in the past",
				Override: OverrideBackCreateComplete,
			}
			return
		}
		job.Status = string(availability.JobStatusCompleted)
	}

	if err = s.checkDuplicate(ctx, job, input.Overrides); err != nil {
		return
	}

	for _, employee := range staff {
		pay, hasPay := input.PayAmounts[employee.ID]
		if employee.PayType == persistence.PayTypePerJob && !hasPay && !slices.Contains(input.Overrides, OverrideAllowMissingPay) {
			err = &ConflictError{
				Code:     ConflictMissingPayAmount,
				Message:  fmt.Sprintf("%s is paid per job and has no pay amount", employee.Name),
				Override: OverrideAllowMissingPay,
			}
			return
		}
		assignment := persistence.JobAssignment{JobID: job.ID, EmployeeID: employee.ID, AssignedAt: now}
		if hasPay {
			assignment.PayAmountPence = &pay
		}
		job.Assignments = append(job.Assignments, assignment)
	}

	blocking := availability.JobStatus(job.Status).Blocking()
	var warnings []StaffWarning
	if blocking {
		if window, ok := availability.EffectiveWindow(toAvailabilityJob(job)); ok {
			warnings = s.availability.Warnings(ctx, window, employeeIDs, "")
		}
	}

	if err = s.jobs.CreateJob(ctx, job); err != nil {
		err = mapRepoError(err, "employeeIds", "unknown employee")
		return
	}

	persisted, getErr := s.jobs.GetJob(ctx, job.ID)
	if getErr == nil {
		job = persisted
	}
	s.publish(events.KindCreated, job.ID)

	if blocking {
		for _, employee := range staff {
			s.notifyAssigned(ctx, logger, job, employee)
		}
	}

	result = JobResult{Job: job, Warnings: warnings}
	return
}

// GetJob returns one job with its assignments.
func (s *JobService) GetJob(ctx context.Context, id string) (persistence.Job, error) {
	if s == nil || s.jobs == nil {
		return persistence.Job{}, fmt.Errorf("job repository not configured")
	}
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return persistence.Job{}, mapRepoError(err, "id", "invalid job id")
	}
	return job, nil
}

// ListJobs returns jobs whose effective window overlaps the requested range.
func (s *JobService) ListJobs(ctx context.Context, params ListJobsParams) (jobs []persistence.Job, err error) {
	if s == nil || s.jobs == nil {
		err = fmt.Errorf("job repository not configured")
		return
	}
	if params.From != nil && params.To != nil && !params.To.After(*params.From) {
		vErr := &ValidationError{}
		vErr.add("endDate", "end date must be after start date")
		err = vErr
		return
	}

	logger := s.loggerWith(ctx, "ListJobs")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list jobs", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(jobs)).DebugContext(ctx, "jobs listed")
	}()

	for _, status := range params.Statuses {
		if !availability.JobStatus(status).Valid() {
			vErr := &ValidationError{}
			vErr.add("status", fmt.Sprintf("unknown status %q", status))
			err = vErr
			return
		}
	}

	jobs, err = s.jobs.ListJobs(ctx, persistence.JobFilter{
		From:       params.From,
		To:         params.To,
		CustomerID: params.CustomerID,
		EmployeeID: params.EmployeeID,
		Statuses:   params.Statuses,
	})
	if err != nil && isNotFoundError(err) {
		return nil, nil
	}
	return
}

// History returns the reschedule history of a job, oldest first.
func (s *JobService) History(ctx context.Context, jobID string) ([]persistence.RescheduleRecord, error) {
	if s == nil || s.jobs == nil {
		return nil, fmt.Errorf("job repository not configured")
	}
	if _, err := s.jobs.GetJob(ctx, jobID); err != nil {
		return nil, mapRepoError(err, "id", "invalid job id")
	}
	return s.jobs.ListReschedules(ctx, jobID)
}

// Reschedule moves a job to a new window, records the change and notifies
// the customer and assigned staff.
func (s *JobService) Reschedule(ctx context.Context, input RescheduleInput) (job persistence.Job, err error) {
	if s == nil {
		err = fmt.Errorf("JobService is nil")
		return
	}
	if s.jobs == nil {
		err = fmt.Errorf("job repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Reschedule", "job_id", input.JobID)
	defer func() {
		s.counters.Rescheduled(ctx, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to reschedule job", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("new_start", job.ScheduledFor).InfoContext(ctx, "job rescheduled")
	}()

	existing, err := s.jobs.GetJob(ctx, input.JobID)
	if err != nil {
		err = mapRepoError(err, "id", "invalid job id")
		return
	}
	if existing.Status == string(availability.JobStatusCompleted) {
		err = ErrImmutableJob
		return
	}
	if input.NewStart.IsZero() {
		vErr := &ValidationError{}
		vErr.add("newDate", "new date is required")
		err = vErr
		return
	}

	now := s.now()
	newStart := input.NewStart.UTC()
	if newStart.Before(now) {
		err = &ConflictError{Code: ConflictRescheduleInPast, Message: "jobs cannot be moved into the past"}
		return
	}

	var newEnd time.Time
	if input.NewEnd != nil && !input.NewEnd.IsZero() {
		newEnd = input.NewEnd.UTC()
	} else {
		minutes := jobDurationMinutes(existing)
		if minutes <= 0 {
			minutes = availability.DefaultDurationMinutes
		}
		newEnd = newStart.Add(time.Duration(minutes) * time.Minute)
	}
	if !newEnd.After(newStart) {
		vErr := &ValidationError{}
		vErr.add("newEndDate", "new end must be after new start")
		err = vErr
		return
	}

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "rescheduled"
	}

	if err = s.jobs.RescheduleJob(ctx, persistence.RescheduleRecord{
		ID:        s.idGenerator(),
		JobID:     existing.ID,
		NewStart:  newStart,
		NewEnd:    newEnd,
		Reason:    reason,
		CreatedAt: now,
	}); err != nil {
		err = mapRepoError(err, "newEndDate", "new end must be after new start")
		return
	}

	job, err = s.jobs.GetJob(ctx, existing.ID)
	if err != nil {
		err = mapRepoError(err, "id", "invalid job id")
		return
	}
	s.publish(events.KindRescheduled, job.ID)
	s.notifyRescheduled(ctx, logger, existing, job, reason)
	return
}

// Assign adds an employee to a job. Busy staff produce warnings, not errors.
func (s *JobService) Assign(ctx context.Context, input AssignInput) (result JobResult, err error) {
	if s == nil {
		err = fmt.Errorf("JobService is nil")
		return
	}
	if s.jobs == nil {
		err = fmt.Errorf("job repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Assign", "job_id", input.JobID, "employee_id", input.EmployeeID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to assign employee", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("warning_count", len(result.Warnings)).InfoContext(ctx, "employee assigned")
	}()

	job, err := s.jobs.GetJob(ctx, input.JobID)
	if err != nil {
		err = mapRepoError(err, "id", "invalid job id")
		return
	}
	if job.Status == string(availability.JobStatusCompleted) {
		err = ErrImmutableJob
		return
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(input.EmployeeID) == "" {
		vErr.add("employeeId", "employee is required")
	}
	if input.PayAmountPence != nil && *input.PayAmountPence < 0 {
		vErr.add("payAmount", "pay amount must not be negative")
	}
	staff, lookupErr := s.lookupEmployees(ctx, uniqueStrings([]string{input.EmployeeID}), "employeeId", vErr)
	if lookupErr != nil {
		err = lookupErr
		return
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	employee := staff[0]

	if employee.PayType == persistence.PayTypePerJob && input.PayAmountPence == nil && !slices.Contains(input.Overrides, OverrideAllowMissingPay) {
		err = &ConflictError{
			Code:     ConflictMissingPayAmount,
			Message:  fmt.Sprintf("%s is paid per job and has no pay amount", employee.Name),
			Override: OverrideAllowMissingPay,
		}
		return
	}

	now := s.now()
	if err = s.jobs.AssignEmployee(ctx, persistence.JobAssignment{
		JobID:          job.ID,
		EmployeeID:     employee.ID,
		PayAmountPence: input.PayAmountPence,
		AssignedAt:     now,
	}); err != nil {
		err = mapRepoError(err, "employeeId", "unknown employee")
		return
	}
	// The assignment is stored even if the status update below fails.
	s.availability.Invalidate()

	if job.Status == string(availability.JobStatusPending) && job.ScheduledFor != nil && !job.ScheduleInvalid {
		job.Status = string(availability.JobStatusScheduled)
		job.UpdatedAt = now
		if err = s.jobs.UpdateJob(ctx, job); err != nil {
			err = mapRepoError(err, "status", "invalid status")
			return
		}
	}

	var warnings []StaffWarning
	if window, ok := availability.EffectiveWindow(toAvailabilityJob(job)); ok {
		warnings = s.availability.Warnings(ctx, window, []string{employee.ID}, job.ID)
	}

	if refreshed, getErr := s.jobs.GetJob(ctx, job.ID); getErr == nil {
		job = refreshed
	}
	s.publish(events.KindAssigned, job.ID)

	if input.SendNotification {
		s.notifyAssigned(ctx, logger, job, employee)
	}

	result = JobResult{Job: job, Warnings: warnings}
	return
}

// ChangeStatus applies a lifecycle action. Completed jobs are immutable.
func (s *JobService) ChangeStatus(ctx context.Context, jobID string, action StatusAction) (job persistence.Job, err error) {
	if s == nil {
		err = fmt.Errorf("JobService is nil")
		return
	}
	if s.jobs == nil {
		err = fmt.Errorf("job repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ChangeStatus", "job_id", jobID, "action", string(action))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change job status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", job.Status).InfoContext(ctx, "job status changed")
	}()

	job, err = s.jobs.GetJob(ctx, jobID)
	if err != nil {
		err = mapRepoError(err, "id", "invalid job id")
		return
	}
	if job.Status == string(availability.JobStatusCompleted) {
		err = ErrImmutableJob
		return
	}
	if job.ScheduleInvalid {
		vErr := &ValidationError{}
		vErr.add("scheduledFor", "stored schedule is unreadable; reschedule the job first")
		err = vErr
		return
	}

	next, ok := nextStatus(availability.JobStatus(job.Status), action)
	if !ok {
		err = fmt.Errorf("%w: cannot %s a %s job", ErrInvalidTransition, action, job.Status)
		return
	}

	job.Status = string(next)
	job.UpdatedAt = s.now()
	if err = s.jobs.UpdateJob(ctx, job); err != nil {
		err = mapRepoError(err, "status", "invalid status")
		return
	}
	s.publish(events.KindStatus, job.ID)
	return
}

func nextStatus(current availability.JobStatus, action StatusAction) (availability.JobStatus, bool) {
	switch action {
	case ActionStart:
		if current == availability.JobStatusScheduled {
			return availability.JobStatusInProgress, true
		}
	case ActionComplete:
		if current == availability.JobStatusScheduled || current == availability.JobStatusInProgress {
			return availability.JobStatusCompleted, true
		}
	case ActionCancel:
		switch current {
		case availability.JobStatusPending, availability.JobStatusScheduled, availability.JobStatusInProgress:
			return availability.JobStatusCancelled, true
		}
	}
	return "", false
}

func (s *JobService) checkDuplicate(ctx context.Context, job persistence.Job, overrides []string) error {
	if job.CustomerID == "" || job.ScheduledFor == nil || slices.Contains(overrides, OverrideCreateDuplicate) {
		return nil
	}
	from := job.ScheduledFor.Add(-DuplicateWindow)
	to := job.ScheduledFor.Add(DuplicateWindow)
	nearby, err := s.jobs.ListJobs(ctx, persistence.JobFilter{From: &from, To: &to, CustomerID: job.CustomerID})
	if err != nil {
		if isNotFoundError(err) {
			return nil
		}
		return err
	}
	for _, other := range nearby {
		if other.ScheduledFor == nil || other.ScheduleInvalid {
			continue
		}
		switch availability.JobStatus(other.Status) {
		case availability.JobStatusCancelled, availability.JobStatusRejected:
			continue
		}
		gap := other.ScheduledFor.Sub(*job.ScheduledFor)
		if gap < 0 {
			gap = -gap
		}
		if gap < DuplicateWindow {
			return &ConflictError{
				Code:     ConflictDuplicateBooking,
				Message:  fmt.Sprintf("customer already has job %s within two hours", other.ID),
				Override: OverrideCreateDuplicate,
			}
		}
	}
	return nil
}

func (s *JobService) lookupEmployees(ctx context.Context, ids []string, field string, vErr *ValidationError) ([]persistence.Employee, error) {
	staff := make([]persistence.Employee, 0, len(ids))
	if s.employees == nil {
		for _, id := range ids {
			staff = append(staff, persistence.Employee{ID: id})
		}
		return staff, nil
	}
	var missing []string
	for _, id := range ids {
		employee, err := s.employees.GetEmployee(ctx, id)
		if err != nil {
			if isNotFoundError(err) {
				missing = append(missing, id)
				continue
			}
			return nil, err
		}
		staff = append(staff, employee)
	}
	if len(missing) > 0 {
		vErr.add(field, fmt.Sprintf("unknown employee ids: %s", strings.Join(missing, ", ")))
	}
	return staff, nil
}

// publish runs after every successful job write. The availability cache is
// dropped here, before returning to the caller; the bus event is advisory.
func (s *JobService) publish(kind events.Kind, jobIDs ...string) {
	s.availability.Invalidate()
	if s.events == nil {
		return
	}
	s.events.Publish(events.JobsChanged{Kind: kind, JobIDs: jobIDs, OccurredAt: s.now()})
}

func (s *JobService) notifyAssigned(ctx context.Context, logger *slog.Logger, job persistence.Job, employee persistence.Employee) {
	if !s.notify.enabled() || employee.Email == "" || job.ScheduledFor == nil {
		return
	}
	window, _ := availability.EffectiveWindow(toAvailabilityJob(job))
	var pay int64
	for _, a := range job.Assignments {
		if a.EmployeeID == employee.ID && a.PayAmountPence != nil {
			pay = *a.PayAmountPence
		}
	}
	err := s.notify.send(ctx, func(r *email.Renderer) (email.Message, error) {
		return r.JobAssigned(email.JobAssigned{
			To:           employee.Email,
			EmployeeName: employee.Name,
			JobTitle:     job.Title,
			Address:      job.Address,
			Start:        window.Start,
			End:          window.End,
			PayAmount:    pay,
		})
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to send assignment email", "error", err, "employee_id", employee.ID)
	}
}

func (s *JobService) notifyRescheduled(ctx context.Context, logger *slog.Logger, before, after persistence.Job, reason string) {
	if !s.notify.enabled() || after.ScheduledFor == nil {
		return
	}
	var oldStart time.Time
	if before.ScheduledFor != nil {
		oldStart = *before.ScheduledFor
	}
	window, _ := availability.EffectiveWindow(toAvailabilityJob(after))

	type recipient struct{ name, address string }
	var recipients []recipient
	if after.CustomerEmail != "" {
		recipients = append(recipients, recipient{after.CustomerName, after.CustomerEmail})
	}
	if s.employees != nil {
		for _, id := range after.EmployeeIDs() {
			employee, err := s.employees.GetEmployee(ctx, id)
			if err != nil || employee.Email == "" {
				continue
			}
			recipients = append(recipients, recipient{employee.Name, employee.Email})
		}
	}

	for _, to := range recipients {
		err := s.notify.send(ctx, func(r *email.Renderer) (email.Message, error) {
			return r.JobRescheduled(email.JobRescheduled{
				To:            to.address,
				RecipientName: to.name,
				JobTitle:      after.Title,
				OldStart:      oldStart,
				NewStart:      window.Start,
				NewEnd:        window.End,
				Reason:        reason,
			})
		})
		if err != nil {
			logger.WarnContext(ctx, "failed to send reschedule email", "error", err)
		}
	}
}

func validateJobInput(input JobInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.CustomerID) == "" && strings.TrimSpace(input.CustomerName) == "" {
		vErr.add("customer", "customer is required")
	}
	if strings.TrimSpace(input.Address) == "" {
		vErr.add("address", "address is required")
	}
	if len(uniqueStrings(input.EmployeeIDs)) == 0 {
		vErr.add("employeeIds", "at least one staff member is required")
	}
	if e := strings.TrimSpace(input.CustomerEmail); e != "" {
		if _, err := mail.ParseAddress(e); err != nil {
			vErr.add("customerEmail", "customer email is invalid")
		}
	}
	if input.ScheduledEnd != nil {
		switch {
		case input.ScheduledFor == nil:
			vErr.add("scheduledEnd", "end requires a start")
		case !input.ScheduledEnd.After(*input.ScheduledFor):
			vErr.add("scheduledEnd", "end must be after start")
		}
	}
	if input.DurationMinutes != nil && *input.DurationMinutes < 0 {
		vErr.add("durationMinutes", "duration must not be negative")
	}
	if input.PricePence < 0 {
		vErr.add("price", "price must not be negative")
	}
	for id, pay := range input.PayAmounts {
		if pay < 0 {
			vErr.add("payAmounts", fmt.Sprintf("pay for %s must not be negative", id))
		}
	}
	return vErr
}

func defaultJobTitle(job persistence.Job) string {
	customer := job.CustomerName
	if customer == "" {
		customer = job.CustomerID
	}
	if job.ServiceType == "" {
		return customer
	}
	return strings.ReplaceAll(job.ServiceType, "_", " ") + " for " + customer
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}
