package client

import (
	"context"
	"time"

	"github.com/example/cleaning-ops/internal/availability"
	"github.com/example/cleaning-ops/internal/calendar"
)

var _ calendar.Gateway = (*CalendarGateway)(nil)

// CalendarGateway backs a calendar.Board with one server grid view.
type CalendarGateway struct {
	client *Client
	view   string
	date   string
	loc    *time.Location
}

// NewCalendarGateway loads view around date and renders times in loc.
func NewCalendarGateway(c *Client, view, date string, loc *time.Location) *CalendarGateway {
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarGateway{client: c, view: view, date: date, loc: loc}
}

// Jobs flattens the grid days into the board projection.
func (g *CalendarGateway) Jobs(ctx context.Context) ([]calendar.Job, error) {
	view, err := g.client.CalendarView(ctx, g.view, g.date)
	if err != nil {
		return nil, err
	}
	var jobs []calendar.Job
	for _, day := range view.Days {
		for _, job := range day.Jobs {
			jobs = append(jobs, calendar.Job{
				ID:                  job.ID,
				Title:               job.Title,
				Start:               job.Start.In(g.loc),
				DurationMinutes:     job.DurationMinutes,
				Status:              availability.JobStatus(job.Status),
				AssignedEmployeeIDs: job.EmployeeIDs,
			})
		}
	}
	return jobs, nil
}

// Reschedule persists move through POST /jobs/{id}/reschedule.
func (g *CalendarGateway) Reschedule(ctx context.Context, move calendar.Move) (calendar.Job, error) {
	req := RescheduleRequest{NewDate: move.NewStart.Format(time.RFC3339), Reason: move.Reason}
	if !move.NewEnd.IsZero() {
		req.NewEndDate = move.NewEnd.Format(time.RFC3339)
	}
	result, err := g.client.Reschedule(ctx, move.JobID, req)
	if err != nil {
		return calendar.Job{}, err
	}
	return g.toCalendarJob(result.Job), nil
}

func (g *CalendarGateway) toCalendarJob(job Job) calendar.Job {
	out := calendar.Job{
		ID:     job.ID,
		Title:  job.Title,
		Status: availability.JobStatus(job.Status),
	}
	if job.ScheduledFor != nil {
		out.Start = job.ScheduledFor.In(g.loc)
	}
	switch {
	case job.DurationMinutes != nil:
		out.DurationMinutes = *job.DurationMinutes
	case job.ScheduledFor != nil && job.ScheduledEnd != nil:
		out.DurationMinutes = int(job.ScheduledEnd.Sub(*job.ScheduledFor).Minutes())
	}
	for _, a := range job.Assignments {
		out.AssignedEmployeeIDs = append(out.AssignedEmployeeIDs, a.EmployeeID)
	}
	return out
}
