package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/cleaning-ops/internal/availability"
	"github.com/example/cleaning-ops/internal/calendar"
	"github.com/example/cleaning-ops/internal/persistence"
)

// CalendarView is a projected day, week or month.
type CalendarView struct {
	View  calendar.View
	First time.Time
	Last  time.Time
	Days  []calendar.Day
	// Unplaced lists jobs in range whose stored start could not be read.
	Unplaced []string
}

// DayTimeline is the pixel layout of one day.
type DayTimeline struct {
	Date   time.Time
	Blocks []calendar.Block
	Slots  []calendar.Slot
}

// CalendarService projects jobs onto calendar views and applies drag and
// drop moves through the job service.
type CalendarService struct {
	jobs        JobLister
	rescheduler *JobService
	layout      calendar.Layout
	loc         *time.Location
	logger      *slog.Logger
}

// NewCalendarService constructs the service. loc is the business timezone.
func NewCalendarService(jobs JobLister, rescheduler *JobService, layout calendar.Layout, loc *time.Location) *CalendarService {
	return NewCalendarServiceWithLogger(jobs, rescheduler, layout, loc, nil)
}

// NewCalendarServiceWithLogger constructs the service with a specified logger.
func NewCalendarServiceWithLogger(jobs JobLister, rescheduler *JobService, layout calendar.Layout, loc *time.Location, logger *slog.Logger) *CalendarService {
	if loc == nil {
		loc = time.UTC
	}
	if layout.HourHeight <= 0 {
		layout = calendar.NewLayout(0)
	}
	return &CalendarService{jobs: jobs, rescheduler: rescheduler, layout: layout, loc: loc, logger: defaultLogger(logger)}
}

// Location returns the business timezone.
func (s *CalendarService) Location() *time.Location {
	return s.loc
}

// View projects the jobs of the view containing ref.
func (s *CalendarService) View(ctx context.Context, view calendar.View, ref time.Time) (CalendarView, error) {
	if s == nil || s.jobs == nil {
		return CalendarView{}, fmt.Errorf("calendar not configured")
	}
	first, last := calendar.DisplayRange(view, ref, s.loc)
	placed, unplaced, err := s.load(ctx, first, last.AddDate(0, 0, 1))
	if err != nil {
		serviceLogger(ctx, s.logger, "CalendarService", "View").ErrorContext(ctx, "failed to load calendar", "error", err, "error_kind", ErrorKind(err))
		return CalendarView{}, err
	}
	return CalendarView{
		View:     view,
		First:    first,
		Last:     last,
		Days:     calendar.GroupByDay(placed, first, last, s.loc),
		Unplaced: unplaced,
	}, nil
}

// Timeline lays out the jobs starting on date.
func (s *CalendarService) Timeline(ctx context.Context, date time.Time) (DayTimeline, error) {
	if s == nil || s.jobs == nil {
		return DayTimeline{}, fmt.Errorf("calendar not configured")
	}
	day := calendar.StartOfDay(date, s.loc)
	placed, _, err := s.load(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return DayTimeline{}, err
	}
	return DayTimeline{
		Date:   day,
		Blocks: s.layout.Timeline(day, placed),
		Slots:  s.layout.Slots(),
	}, nil
}

// Drop reschedules jobID to hour:minute on date, keeping its duration.
// Completed jobs are rejected before any write.
func (s *CalendarService) Drop(ctx context.Context, jobID string, date time.Time, hour, minute int) (persistence.Job, error) {
	if s == nil || s.rescheduler == nil {
		return persistence.Job{}, fmt.Errorf("calendar not configured")
	}
	stored, err := s.rescheduler.GetJob(ctx, jobID)
	if err != nil {
		return persistence.Job{}, err
	}
	job, ok := toCalendarJob(stored)
	if !ok {
		job = calendar.Job{ID: stored.ID, Title: stored.Title, Status: availability.JobStatus(stored.Status), DurationMinutes: jobDurationMinutes(stored)}
	}
	move, err := calendar.PlanDrop(job, calendar.StartOfDay(date, s.loc), hour, minute)
	if err != nil {
		if errors.Is(err, calendar.ErrCompletedImmutable) {
			return persistence.Job{}, ErrImmutableJob
		}
		vErr := &ValidationError{}
		vErr.add("slot", err.Error())
		return persistence.Job{}, vErr
	}
	end := move.NewEnd
	return s.rescheduler.Reschedule(ctx, RescheduleInput{
		JobID:    move.JobID,
		NewStart: move.NewStart,
		NewEnd:   &end,
		Reason:   move.Reason,
	})
}

func (s *CalendarService) load(ctx context.Context, from, to time.Time) ([]calendar.Job, []string, error) {
	stored, err := s.jobs.ListJobs(ctx, persistence.JobFilter{From: &from, To: &to})
	if err != nil {
		return nil, nil, err
	}
	placed := make([]calendar.Job, 0, len(stored))
	var unplaced []string
	for _, job := range stored {
		cj, ok := toCalendarJob(job)
		if !ok {
			unplaced = append(unplaced, job.ID)
			continue
		}
		placed = append(placed, cj)
	}
	return placed, unplaced, nil
}
