package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/example/cleaning-ops/internal/availability"
	"github.com/example/cleaning-ops/internal/persistence"
	"github.com/example/cleaning-ops/internal/trends"
)

// ProfitabilityReport is a bucketed revenue and labour series.
type ProfitabilityReport struct {
	Granularity trends.Granularity
	Points      []trends.Point
	Totals      trends.Metrics
}

// ProfitabilityService aggregates completed work into trend buckets.
type ProfitabilityService struct {
	jobs      JobLister
	employees EmployeeDirectory
	loc       *time.Location
	logger    *slog.Logger
}

// NewProfitabilityService constructs the service. loc is the business timezone.
func NewProfitabilityService(jobs JobLister, employees EmployeeDirectory, loc *time.Location) *ProfitabilityService {
	return NewProfitabilityServiceWithLogger(jobs, employees, loc, nil)
}

// NewProfitabilityServiceWithLogger constructs the service with a specified logger.
func NewProfitabilityServiceWithLogger(jobs JobLister, employees EmployeeDirectory, loc *time.Location, logger *slog.Logger) *ProfitabilityService {
	if loc == nil {
		loc = time.UTC
	}
	return &ProfitabilityService{jobs: jobs, employees: employees, loc: loc, logger: defaultLogger(logger)}
}

// Trend buckets [startDate, endDate] and reports metrics per bucket. A
// bucket whose fetch fails is zeroed and flagged; the series still returns.
func (s *ProfitabilityService) Trend(ctx context.Context, startDate, endDate time.Time, hint trends.Granularity) (report ProfitabilityReport, err error) {
	if s == nil || s.jobs == nil {
		err = fmt.Errorf("job repository not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "ProfitabilityService", "Trend", "start", startDate, "end", endDate)

	buckets, err := trends.Buckets(startDate, endDate, hint, s.loc)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("endDate", err.Error())
		err = vErr
		return
	}

	rates := map[string]persistence.Employee{}
	if s.employees != nil {
		employees, listErr := s.employees.ListEmployees(ctx)
		if listErr != nil {
			logger.ErrorContext(ctx, "failed to load employees", "error", listErr, "error_kind", ErrorKind(listErr))
			err = listErr
			return
		}
		for _, e := range employees {
			rates[e.ID] = e
		}
	}

	points := trends.Collect(ctx, buckets, func(ctx context.Context, bucket trends.Bucket) (trends.Metrics, error) {
		return s.bucketMetrics(ctx, bucket, rates)
	})
	for _, p := range points {
		if p.Failed {
			logger.WarnContext(ctx, "trend bucket failed", "bucket", p.Bucket.Label, "error", p.Err)
		}
	}

	report = ProfitabilityReport{
		Granularity: buckets[0].Granularity,
		Points:      points,
		Totals:      trends.Totals(points),
	}
	return
}

func (s *ProfitabilityService) bucketMetrics(ctx context.Context, bucket trends.Bucket, staff map[string]persistence.Employee) (trends.Metrics, error) {
	from, to := bucket.Start, bucket.End
	jobs, err := s.jobs.ListJobs(ctx, persistence.JobFilter{
		From:     &from,
		To:       &to,
		Statuses: []string{string(availability.JobStatusCompleted)},
	})
	if err != nil {
		return trends.Metrics{}, err
	}

	var m trends.Metrics
	for _, job := range jobs {
		// Each job counts once, in the bucket holding its start.
		if job.ScheduledFor == nil || job.ScheduleInvalid || !bucket.Contains(*job.ScheduledFor) {
			continue
		}
		m.Jobs++
		m.Revenue += job.PricePence
		m.LabourCost += LabourCost(job, staff)
	}
	m.Profit = m.Revenue - m.LabourCost
	return m, nil
}

// LabourCost prices the staff time of a job in pence. An agreed pay amount
// wins; otherwise hourly staff cost their rate times the effective hours.
// Salaried staff cost nothing at job level.
func LabourCost(job persistence.Job, staff map[string]persistence.Employee) int64 {
	window, ok := availability.EffectiveWindow(toAvailabilityJob(job))
	var hours float64
	if ok {
		hours = window.Duration().Hours()
	}

	var total int64
	for _, a := range job.Assignments {
		employee, known := staff[a.EmployeeID]
		if known && employee.PayType == persistence.PayTypeSalaried {
			continue
		}
		if a.PayAmountPence != nil {
			total += *a.PayAmountPence
			continue
		}
		if known && employee.PayType == persistence.PayTypeHourly {
			total += int64(math.Round(float64(employee.HourlyRatePence) * hours))
		}
	}
	return total
}
