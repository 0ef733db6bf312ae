package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/example/cleaning-ops/internal/availability"
)

var (
	// ErrMoveInFlight is returned when a move starts before the previous one settled.
	ErrMoveInFlight = errors.New("calendar: a move is already in flight")
	// ErrJobNotOnBoard is returned when a move names a job the board does not hold.
	ErrJobNotOnBoard = errors.New("calendar: job not on board")
)

// Gateway persists reschedules and reloads the authoritative job list.
type Gateway interface {
	Reschedule(ctx context.Context, move Move) (Job, error)
	Jobs(ctx context.Context) ([]Job, error)
}

// Board holds an in-memory projection of jobs and applies drag-and-drop
// moves optimistically. A failed move restores server truth by refetching,
// or the pre-move snapshot when the refetch also fails.
type Board struct {
	gateway Gateway

	mu       sync.Mutex
	jobs     []Job
	inFlight bool
}

// NewBoard builds a board over jobs.
func NewBoard(gateway Gateway, jobs []Job) *Board {
	return &Board{gateway: gateway, jobs: cloneJobs(jobs)}
}

// Load replaces the board contents with the gateway's current job list.
func (b *Board) Load(ctx context.Context) error {
	jobs, err := b.gateway.Jobs(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.jobs = cloneJobs(jobs)
	b.mu.Unlock()
	return nil
}

// Jobs returns a copy of the current projection.
func (b *Board) Jobs() []Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneJobs(b.jobs)
}

// Busy reports whether a move is awaiting the gateway.
func (b *Board) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight
}

// Drop plans a drop of jobID onto day at hour:minute and applies it.
func (b *Board) Drop(ctx context.Context, jobID string, day Day, hour, minute int) (Job, error) {
	job, ok := b.find(jobID)
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotOnBoard, jobID)
	}
	move, err := PlanDrop(job, day.Date, hour, minute)
	if err != nil {
		return Job{}, err
	}
	return b.Move(ctx, move)
}

// Move applies move locally, calls the gateway and reconciles the outcome.
func (b *Board) Move(ctx context.Context, move Move) (Job, error) {
	b.mu.Lock()
	if b.inFlight {
		b.mu.Unlock()
		return Job{}, ErrMoveInFlight
	}
	idx := b.indexOf(move.JobID)
	if idx < 0 {
		b.mu.Unlock()
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotOnBoard, move.JobID)
	}
	if b.jobs[idx].Status == availability.JobStatusCompleted {
		b.mu.Unlock()
		return Job{}, ErrCompletedImmutable
	}
	snapshot := cloneJobs(b.jobs)
	b.jobs[idx].Start = move.NewStart
	if !move.NewEnd.IsZero() && move.NewEnd.After(move.NewStart) {
		b.jobs[idx].DurationMinutes = int(move.NewEnd.Sub(move.NewStart).Minutes())
	}
	b.inFlight = true
	b.mu.Unlock()

	updated, err := b.gateway.Reschedule(ctx, move)
	if err != nil {
		fresh, fetchErr := b.gateway.Jobs(ctx)
		b.mu.Lock()
		if fetchErr == nil {
			b.jobs = cloneJobs(fresh)
		} else {
			b.jobs = snapshot
		}
		b.inFlight = false
		b.mu.Unlock()
		return Job{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexOf(updated.ID); i >= 0 {
		b.jobs[i] = updated
	}
	b.inFlight = false
	return updated, nil
}

func (b *Board) find(jobID string) (Job, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexOf(jobID); i >= 0 {
		return b.jobs[i], true
	}
	return Job{}, false
}

func (b *Board) indexOf(jobID string) int {
	for i := range b.jobs {
		if b.jobs[i].ID == jobID {
			return i
		}
	}
	return -1
}

func cloneJobs(jobs []Job) []Job {
	out := make([]Job, len(jobs))
	for i, job := range jobs {
		job.AssignedEmployeeIDs = append([]string(nil), job.AssignedEmployeeIDs...)
		out[i] = job
	}
	return out
}
