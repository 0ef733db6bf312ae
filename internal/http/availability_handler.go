package http

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/example/cleaning-ops/internal/application"
)

type availabilityService interface {
	Check(ctx context.Context, query application.AvailabilityQuery) (application.AvailabilityReport, error)
}

// AvailabilityHandler serves staff availability checks.
type AvailabilityHandler struct {
	service   availabilityService
	loc       *time.Location
	responder responder
}

func NewAvailabilityHandler(service availabilityService, loc *time.Location, logger *slog.Logger) *AvailabilityHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityHandler{service: service, loc: loc, responder: newResponder(logger)}
}

// Check handles GET /availability?start=&durationMinutes=&end=&excludeJobId=&employeeIds=.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	if strings.TrimSpace(query.Get("start")) == "" {
		h.responder.writeFieldError(r.Context(), w, "start", "start is required")
		return
	}
	start, err := parseInstant(query.Get("start"), h.loc)
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, "start", err.Error())
		return
	}
	end, err := parseOptionalInstant(query.Get("end"), h.loc)
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, "end", err.Error())
		return
	}
	duration, _, err := parseOptionalInt(query, "durationMinutes")
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, "durationMinutes", "must be a whole number of minutes")
		return
	}

	report, err := h.service.Check(r.Context(), application.AvailabilityQuery{
		Start:           start,
		DurationMinutes: duration,
		End:             end,
		ExcludeJobID:    strings.TrimSpace(query.Get("excludeJobId")),
		EmployeeIDs:     parseCSV(query.Get("employeeIds")),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAvailabilityResponse(report))
}

type availabilityResponse struct {
	Start     string              `json:"start"`
	End       string              `json:"end"`
	Known     bool                `json:"known"`
	Reason    string              `json:"reason,omitempty"`
	Employees []employeeStatusDTO `json:"employees"`
	Skipped   []skippedJobDTO     `json:"skipped,omitempty"`
}

type employeeStatusDTO struct {
	EmployeeID        string   `json:"employeeId"`
	Status            string   `json:"status"`
	ConflictingJobIDs []string `json:"conflictingJobIds,omitempty"`
}

type skippedJobDTO struct {
	JobID  string `json:"jobId"`
	Reason string `json:"reason"`
}

func toAvailabilityResponse(report application.AvailabilityReport) availabilityResponse {
	resp := availabilityResponse{
		Start:     formatTime(report.Window.Start),
		End:       formatTime(report.Window.End),
		Known:     report.Known,
		Reason:    report.Reason,
		Employees: make([]employeeStatusDTO, 0, len(report.Statuses)),
	}

	ids := make([]string, 0, len(report.Statuses))
	for id := range report.Statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		resp.Employees = append(resp.Employees, employeeStatusDTO{
			EmployeeID:        id,
			Status:            string(report.Statuses[id]),
			ConflictingJobIDs: append([]string(nil), report.Conflicts[id]...),
		})
	}
	for _, s := range report.Skipped {
		resp.Skipped = append(resp.Skipped, skippedJobDTO{JobID: s.JobID, Reason: string(s.Reason)})
	}
	return resp
}
