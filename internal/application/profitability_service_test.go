package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/cleaning-ops/internal/availability"
	"github.com/example/cleaning-ops/internal/persistence"
	"github.com/example/cleaning-ops/internal/trends"
)

func completedJob(id string, start time.Time, minutes int, price int64, assignments ...persistence.JobAssignment) persistence.Job {
	job := scheduledJob(id, start, minutes)
	job.Status = string(availability.JobStatusCompleted)
	job.PricePence = price
	job.Assignments = assignments
	return job
}

func TestLabourCost(t *testing.T) {
	t.Parallel()

	staff := map[string]persistence.Employee{
		"hourly":   {ID: "hourly", PayType: persistence.PayTypeHourly, HourlyRatePence: 1200},
		"perjob":   {ID: "perjob", PayType: persistence.PayTypePerJob},
		"salaried": {ID: "salaried", PayType: persistence.PayTypeSalaried, HourlyRatePence: 5000},
	}
	start := refNow

	tests := []struct {
		name string
		job  persistence.Job
		want int64
	}{
		{"hourly uses effective hours", completedJob("a", start, 90, 0, persistence.JobAssignment{EmployeeID: "hourly"}), 1800},
		{"short job bills the minimum hour", completedJob("b", start, 20, 0, persistence.JobAssignment{EmployeeID: "hourly"}), 1200},
		{"per job pay", completedJob("c", start, 60, 0, persistence.JobAssignment{EmployeeID: "perjob", PayAmountPence: int64Ptr(4000)}), 4000},
		{"per job without pay", completedJob("d", start, 60, 0, persistence.JobAssignment{EmployeeID: "perjob"}), 0},
		{"salaried costs nothing", completedJob("e", start, 60, 0, persistence.JobAssignment{EmployeeID: "salaried", PayAmountPence: int64Ptr(900)}), 0},
		{"mixed crew", completedJob("f", start, 120, 0,
			persistence.JobAssignment{EmployeeID: "hourly"},
			persistence.JobAssignment{EmployeeID: "perjob", PayAmountPence: int64Ptr(1500)},
		), 2400 + 1500},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := LabourCost(tt.job, staff); got != tt.want {
				t.Fatalf("LabourCost = %d, want %d", got, tt.want)
			}
		})
	}
}

type failingBucketLister struct {
	inner    JobLister
	failFrom time.Time
}

func (f failingBucketLister) ListJobs(ctx context.Context, filter persistence.JobFilter) ([]persistence.Job, error) {
	if filter.From != nil && filter.From.Equal(f.failFrom) {
		return nil, errors.New("timeout")
	}
	return f.inner.ListJobs(ctx, filter)
}

func TestProfitabilityService_Trend(t *testing.T) {
	t.Parallel()

	employees := newEmployeeRepoStub(persistence.Employee{ID: "emp-a", PayType: persistence.PayTypeHourly, HourlyRatePence: 1000})
	day := func(d, h int) time.Time { return time.Date(2026, 3, d, h, 0, 0, 0, time.UTC) }
	late := completedJob("late", day(2, 23), 120, 8000, persistence.JobAssignment{EmployeeID: "emp-a"})
	jobs := newJobRepoStub(
		completedJob("mon", day(2, 9), 60, 5000, persistence.JobAssignment{EmployeeID: "emp-a"}),
		late,
		completedJob("wed", day(4, 9), 60, 7000),
		scheduledJob("open", day(3, 9), 60, "emp-a"),
	)
	svc := NewProfitabilityService(jobs, employees, time.UTC)

	report, err := svc.Trend(context.Background(), day(2, 0), day(4, 0), trends.GranularityAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Granularity != trends.GranularityDay || len(report.Points) != 3 {
		t.Fatalf("expected three daily points, got %s %d", report.Granularity, len(report.Points))
	}
	monday := report.Points[0].Metrics
	if monday.Jobs != 2 || monday.Revenue != 13000 || monday.LabourCost != 1000+2000 || monday.Profit != 10000 {
		t.Fatalf("unexpected monday metrics %+v", monday)
	}
	if tuesday := report.Points[1].Metrics; tuesday.Jobs != 0 {
		t.Fatalf("expected job spilling past midnight to count once, got %+v", tuesday)
	}
	if report.Totals.Jobs != 3 || report.Totals.Revenue != 20000 {
		t.Fatalf("unexpected totals %+v", report.Totals)
	}

	failing := NewProfitabilityService(failingBucketLister{inner: jobs, failFrom: day(2, 0)}, employees, time.UTC)
	report, err = failing.Trend(context.Background(), day(2, 0), day(4, 0), trends.GranularityDay)
	if err != nil {
		t.Fatalf("a failed bucket must not fail the series: %v", err)
	}
	if !report.Points[0].Failed || report.Points[0].Metrics.Jobs != 0 || report.Points[2].Metrics.Jobs != 1 {
		t.Fatalf("expected only first bucket zeroed, got %+v", report.Points)
	}
}

func TestProfitabilityService_TrendValidation(t *testing.T) {
	t.Parallel()

	svc := NewProfitabilityService(newJobRepoStub(), nil, time.UTC)
	_, err := svc.Trend(context.Background(), refNow, refNow.AddDate(0, 0, -1), trends.GranularityAuto)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
}
