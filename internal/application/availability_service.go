package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/cleaning-ops/internal/availability"
	"github.com/example/cleaning-ops/internal/events"
	"github.com/example/cleaning-ops/internal/observability"
	"github.com/example/cleaning-ops/internal/persistence"
)

// JobLister is the read side of job storage.
type JobLister interface {
	ListJobs(ctx context.Context, filter persistence.JobFilter) ([]persistence.Job, error)
}

// EmployeeDirectory looks up staff.
type EmployeeDirectory interface {
	GetEmployee(ctx context.Context, id string) (persistence.Employee, error)
	ListEmployees(ctx context.Context) ([]persistence.Employee, error)
}

// AvailabilityService classifies staff against existing jobs for a candidate window.
type AvailabilityService struct {
	jobs      JobLister
	employees EmployeeDirectory
	cache     *availabilityCache
	counters  *observability.Counters
	logger    *slog.Logger
}

// NewAvailabilityService constructs the service. A non-positive cacheTTL
// uses the cache default.
func NewAvailabilityService(jobs JobLister, employees EmployeeDirectory, cacheTTL time.Duration, now func() time.Time) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(jobs, employees, cacheTTL, now, nil, nil)
}

// NewAvailabilityServiceWithLogger constructs the service with counters and a specified logger.
func NewAvailabilityServiceWithLogger(jobs JobLister, employees EmployeeDirectory, cacheTTL time.Duration, now func() time.Time, counters *observability.Counters, logger *slog.Logger) *AvailabilityService {
	return &AvailabilityService{
		jobs:      jobs,
		employees: employees,
		cache:     newAvailabilityCache(cacheTTL, 0, now),
		counters:  counters,
		logger:    defaultLogger(logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// Check classifies the roster for the query window. A failed job fetch
// yields a report with Known false; it never reports everyone available.
func (s *AvailabilityService) Check(ctx context.Context, query AvailabilityQuery) (report AvailabilityReport, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if query.Start.IsZero() {
		vErr := &ValidationError{}
		vErr.add("start", "start is required")
		err = vErr
		return
	}

	candidate := availability.CandidateWindow(query.Start, query.DurationMinutes, query.End)
	if !candidate.Valid() {
		vErr := &ValidationError{}
		vErr.add("end", "end must be after start")
		err = vErr
		return
	}

	logger := s.loggerWith(ctx, "Check",
		"window_start", candidate.Start,
		"window_end", candidate.End,
	)

	roster, err := s.roster(ctx, query.EmployeeIDs)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load roster", "error", err, "error_kind", ErrorKind(err))
		return
	}

	result, known, reason := s.classify(ctx, candidate, roster, query.ExcludeJobID)
	s.counters.AvailabilityChecked(ctx, known)
	if !known {
		logger.WarnContext(ctx, "availability unknown", "reason", reason)
		report = AvailabilityReport{
			Window:    candidate,
			Known:     false,
			Statuses:  map[string]availability.Status{},
			Conflicts: map[string][]string{},
			Reason:    reason,
		}
		return
	}

	report = AvailabilityReport{
		Window:    result.Window,
		Known:     true,
		Statuses:  result.Statuses,
		Conflicts: result.Conflicts,
		Skipped:   result.Skipped,
	}
	logger.With("busy_count", len(result.Busy()), "skipped_count", len(result.Skipped)).DebugContext(ctx, "availability classified")
	return
}

// Warnings returns advisory notices for employees that are busy during
// candidate. A failed lookup produces no warnings.
func (s *AvailabilityService) Warnings(ctx context.Context, candidate availability.Window, employeeIDs []string, excludeJobID string) []StaffWarning {
	if s == nil || len(employeeIDs) == 0 || !candidate.Valid() {
		return nil
	}
	result, known, _ := s.classify(ctx, candidate, employeeIDs, excludeJobID)
	if !known {
		return nil
	}
	var warnings []StaffWarning
	for _, id := range result.Busy() {
		warnings = append(warnings, StaffWarning{EmployeeID: id, ConflictingIDs: result.Conflicts[id]})
	}
	return warnings
}

// Invalidate drops every cached classification. Job writes call it before
// returning so a check issued after the write never sees the old schedule.
func (s *AvailabilityService) Invalidate() {
	if s == nil {
		return
	}
	s.cache.Invalidate()
}

// Watch invalidates the cache on every bus event until ctx is done or the
// channel closes. It covers publishers other than JobService; job writes
// already invalidate synchronously.
func (s *AvailabilityService) Watch(ctx context.Context, changes <-chan events.JobsChanged) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			s.Invalidate()
		}
	}
}

func (s *AvailabilityService) classify(ctx context.Context, candidate availability.Window, roster []string, excludeJobID string) (availability.Result, bool, string) {
	key := buildAvailabilityCacheKey(candidate, excludeJobID, roster)
	if cached, ok := s.cache.Get(key); ok {
		return cached, true, ""
	}
	if s.jobs == nil {
		return availability.Result{}, false, "job storage not configured"
	}

	generation := s.cache.Generation()
	padded := availability.PaddedWindow(candidate)
	jobs, err := s.jobs.ListJobs(ctx, persistence.JobFilter{
		From:     &padded.Start,
		To:       &padded.End,
		Statuses: []string{string(availability.JobStatusScheduled), string(availability.JobStatusInProgress)},
	})
	if err != nil {
		return availability.Result{}, false, err.Error()
	}

	result := availability.Classify(candidate, roster, toAvailabilityJobs(jobs), excludeJobID)
	s.cache.Store(key, result, generation)
	return result, true, ""
}

func (s *AvailabilityService) roster(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) > 0 {
		return uniqueStrings(ids), nil
	}
	if s.employees == nil {
		return nil, nil
	}
	employees, err := s.employees.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	roster := make([]string, 0, len(employees))
	for _, e := range employees {
		roster = append(roster, e.ID)
	}
	return roster, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
