package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/cleaning-ops/internal/booking"
)

var _ booking.Submitter = (*Client)(nil)

// Availability sends GET /availability for the candidate window.
func (c *Client) Availability(ctx context.Context, q AvailabilityQuery) (*AvailabilityReport, error) {
	query := url.Values{}
	query.Set("start", q.Start.Format(time.RFC3339))
	if q.End != nil {
		query.Set("end", q.End.Format(time.RFC3339))
	}
	if q.DurationMinutes > 0 {
		query.Set("durationMinutes", strconv.Itoa(q.DurationMinutes))
	}
	if q.ExcludeJobID != "" {
		query.Set("excludeJobId", q.ExcludeJobID)
	}
	if len(q.EmployeeIDs) > 0 {
		query.Set("employeeIds", strings.Join(q.EmployeeIDs, ","))
	}

	var report AvailabilityReport
	if err := c.do(ctx, http.MethodGet, "/availability", query, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// CalendarView sends GET /calendar. An empty date means today on the server.
func (c *Client) CalendarView(ctx context.Context, view, date string) (*CalendarView, error) {
	query := url.Values{}
	query.Set("view", view)
	if date != "" {
		query.Set("date", date)
	}
	var out CalendarView
	if err := c.do(ctx, http.MethodGet, "/calendar", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Timeline sends GET /calendar/timeline.
func (c *Client) Timeline(ctx context.Context, date string) (*Timeline, error) {
	query := url.Values{}
	if date != "" {
		query.Set("date", date)
	}
	var out Timeline
	if err := c.do(ctx, http.MethodGet, "/calendar/timeline", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Drop sends POST /calendar/drop to move jobID onto date at hour:minute.
func (c *Client) Drop(ctx context.Context, jobID, date string, hour, minute int) (*JobResult, error) {
	var out JobResult
	req := dropRequest{JobID: jobID, Date: date, Hour: hour, Minute: minute}
	if err := c.do(ctx, http.MethodPost, "/calendar/drop", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetJob sends GET /jobs/{id}.
func (c *Client) GetJob(ctx context.Context, jobID string) (*JobResult, error) {
	var out JobResult
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListJobs sends GET /jobs with the given filters.
func (c *Client) ListJobs(ctx context.Context, params ListJobsParams) ([]Job, error) {
	query := url.Values{}
	if params.StartDate != "" {
		query.Set("startDate", params.StartDate)
	}
	if params.EndDate != "" {
		query.Set("endDate", params.EndDate)
	}
	if params.CustomerID != "" {
		query.Set("customerId", params.CustomerID)
	}
	if params.EmployeeID != "" {
		query.Set("employeeId", params.EmployeeID)
	}
	if len(params.Statuses) > 0 {
		query.Set("status", strings.Join(params.Statuses, ","))
	}

	var out struct {
		Jobs []Job `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, "/jobs", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// Reschedule sends POST /jobs/{id}/reschedule.
func (c *Client) Reschedule(ctx context.Context, jobID string, req RescheduleRequest) (*JobResult, error) {
	var out JobResult
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/jobs/%s/reschedule", url.PathEscape(jobID)), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trend sends GET /profitability for the inclusive date range.
func (c *Client) Trend(ctx context.Context, startDate, endDate, granularity string) (*Trend, error) {
	query := url.Values{}
	query.Set("startDate", startDate)
	query.Set("endDate", endDate)
	if granularity != "" {
		query.Set("granularity", granularity)
	}
	var out Trend
	if err := c.do(ctx, http.MethodGet, "/profitability", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Prices sends GET /bookings/prices.
func (c *Client) Prices(ctx context.Context) (*Prices, error) {
	var out Prices
	if err := c.do(ctx, http.MethodGet, "/bookings/prices", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitBooking sends POST /bookings. The server recomputes the estimate.
func (c *Client) SubmitBooking(ctx context.Context, form booking.Form) (booking.Record, error) {
	var out booking.Record
	if err := c.do(ctx, http.MethodPost, "/bookings", nil, form, &out); err != nil {
		return booking.Record{}, err
	}
	return out, nil
}

// ReviewPhoto sends PATCH /photos/{id}.
func (c *Client) ReviewPhoto(ctx context.Context, photoID int64, status, reason string) (*Photo, error) {
	var out Photo
	path := "/photos/" + strconv.FormatInt(photoID, 10)
	if err := c.do(ctx, http.MethodPatch, path, nil, reviewRequest{Status: status, Reason: reason}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkReview sends POST /photos/bulk-verify.
func (c *Client) BulkReview(ctx context.Context, photoIDs []int64, status, reason string) (*BulkReviewResult, error) {
	var out BulkReviewResult
	req := bulkReviewRequest{PhotoIDs: photoIDs, Status: status, Reason: reason}
	if err := c.do(ctx, http.MethodPost, "/photos/bulk-verify", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verification sends GET /jobs/{id}/verification.
func (c *Client) Verification(ctx context.Context, jobID string) (*Verification, error) {
	var out Verification
	path := fmt.Sprintf("/jobs/%s/verification", url.PathEscape(jobID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
