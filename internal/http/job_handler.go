package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/cleaning-ops/internal/application"
	"github.com/example/cleaning-ops/internal/persistence"
)

type jobService interface {
	CreateJob(ctx context.Context, input application.JobInput) (application.JobResult, error)
	GetJob(ctx context.Context, id string) (persistence.Job, error)
	ListJobs(ctx context.Context, params application.ListJobsParams) ([]persistence.Job, error)
	History(ctx context.Context, jobID string) ([]persistence.RescheduleRecord, error)
	Reschedule(ctx context.Context, input application.RescheduleInput) (persistence.Job, error)
	Assign(ctx context.Context, input application.AssignInput) (application.JobResult, error)
	ChangeStatus(ctx context.Context, jobID string, action application.StatusAction) (persistence.Job, error)
}

// JobHandler serves the /jobs resource.
type JobHandler struct {
	service   jobService
	loc       *time.Location
	responder responder
}

// NewJobHandler builds the handler. Times without an offset are read in loc.
func NewJobHandler(service jobService, loc *time.Location, logger *slog.Logger) *JobHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &JobHandler{service: service, loc: loc, responder: newResponder(logger)}
}

// Create handles POST /jobs.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, field, err := req.toInput(h.loc)
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, field, err.Error())
		return
	}

	result, err := h.service.CreateJob(r.Context(), input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toJobResponse(result.Job, result.Warnings))
}

// Get handles GET /jobs/{id}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	job, err := h.service.GetJob(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toJobResponse(job, nil))
}

// List handles GET /jobs?startDate=&endDate=&customerId=&employeeId=&status=.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	from, err := parseOptionalInstant(query.Get("startDate"), h.loc)
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, "startDate", err.Error())
		return
	}
	to, err := parseOptionalInstant(query.Get("endDate"), h.loc)
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, "endDate", err.Error())
		return
	}
	if to != nil && isDateOnly(query.Get("endDate")) {
		// A bare end date includes the whole day.
		next := to.AddDate(0, 0, 1)
		to = &next
	}

	jobs, err := h.service.ListJobs(r.Context(), application.ListJobsParams{
		From:       from,
		To:         to,
		CustomerID: strings.TrimSpace(query.Get("customerId")),
		EmployeeID: strings.TrimSpace(query.Get("employeeId")),
		Statuses:   parseCSV(query.Get("status")),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listJobsResponse{Jobs: toJobDTOs(jobs)})
}

// History handles GET /jobs/{id}/history.
func (h *JobHandler) History(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	records, err := h.service.History(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]rescheduleDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, rescheduleDTO{
			ID:        rec.ID,
			OldStart:  formatOptionalTime(rec.OldStart),
			OldEnd:    formatOptionalTime(rec.OldEnd),
			NewStart:  formatTime(rec.NewStart),
			NewEnd:    formatTime(rec.NewEnd),
			Reason:    rec.Reason,
			CreatedAt: formatTime(rec.CreatedAt),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, historyResponse{History: out})
}

// Reschedule handles POST /jobs/{id}/reschedule.
func (h *JobHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input := application.RescheduleInput{JobID: id, Reason: strings.TrimSpace(req.Reason)}
	if strings.TrimSpace(req.NewDate) != "" {
		start, err := parseInstant(req.NewDate, h.loc)
		if err != nil {
			h.responder.writeFieldError(r.Context(), w, "newDate", err.Error())
			return
		}
		input.NewStart = start
	}
	end, err := parseOptionalInstant(req.NewEndDate, h.loc)
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, "newEndDate", err.Error())
		return
	}
	input.NewEnd = end

	job, err := h.service.Reschedule(r.Context(), input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toJobResponse(job, nil))
}

// Assign handles POST /jobs/{id}/assign.
func (h *JobHandler) Assign(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.Assign(r.Context(), application.AssignInput{
		JobID:            id,
		EmployeeID:       strings.TrimSpace(req.EmployeeID),
		SendNotification: req.SendNotification,
		PayAmountPence:   req.PayAmount,
		Overrides:        append([]string(nil), req.Overrides...),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toJobResponse(result.Job, result.Warnings))
}

// ChangeStatus handles POST /jobs/{id}/status.
func (h *JobHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	action := application.StatusAction(strings.ToLower(strings.TrimSpace(req.Action)))
	switch action {
	case application.ActionStart, application.ActionComplete, application.ActionCancel:
	default:
		h.responder.writeFieldError(r.Context(), w, "action", "must be start, complete or cancel")
		return
	}

	job, err := h.service.ChangeStatus(r.Context(), id, action)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toJobResponse(job, nil))
}

func pathID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	return id, id != ""
}

func isDateOnly(value string) bool {
	_, err := time.Parse(dateLayout, strings.TrimSpace(value))
	return err == nil
}

type jobRequest struct {
	Title           string           `json:"title"`
	CustomerID      string           `json:"customerId"`
	CustomerName    string           `json:"customerName"`
	CustomerEmail   string           `json:"customerEmail"`
	Address         string           `json:"address"`
	ServiceType     string           `json:"serviceType"`
	ScheduledFor    string           `json:"scheduledFor"`
	ScheduledEnd    string           `json:"scheduledEnd"`
	DurationMinutes *int             `json:"durationMinutes"`
	Price           int64            `json:"price"`
	Notes           *string          `json:"notes"`
	EmployeeIDs     []string         `json:"employeeIds"`
	PayAmounts      map[string]int64 `json:"payAmounts"`
	Overrides       []string         `json:"overrides"`
}

func (r jobRequest) toInput(loc *time.Location) (application.JobInput, string, error) {
	start, err := parseOptionalInstant(r.ScheduledFor, loc)
	if err != nil {
		return application.JobInput{}, "scheduledFor", err
	}
	end, err := parseOptionalInstant(r.ScheduledEnd, loc)
	if err != nil {
		return application.JobInput{}, "scheduledEnd", err
	}

	return application.JobInput{
		Title:           strings.TrimSpace(r.Title),
		CustomerID:      strings.TrimSpace(r.CustomerID),
		CustomerName:    strings.TrimSpace(r.CustomerName),
		CustomerEmail:   strings.TrimSpace(r.CustomerEmail),
		Address:         strings.TrimSpace(r.Address),
		ServiceType:     strings.TrimSpace(r.ServiceType),
		ScheduledFor:    start,
		ScheduledEnd:    end,
		DurationMinutes: r.DurationMinutes,
		PricePence:      r.Price,
		Notes:           r.Notes,
		EmployeeIDs:     append([]string(nil), r.EmployeeIDs...),
		PayAmounts:      r.PayAmounts,
		Overrides:       append([]string(nil), r.Overrides...),
	}, "", nil
}

type rescheduleRequest struct {
	NewDate    string `json:"newDate"`
	NewEndDate string `json:"newEndDate"`
	Reason     string `json:"reason"`
}

type assignRequest struct {
	EmployeeID       string   `json:"employeeId"`
	SendNotification bool     `json:"sendNotification"`
	PayAmount        *int64   `json:"payAmount"`
	Overrides        []string `json:"overrides"`
}

type statusRequest struct {
	Action string `json:"action"`
}

type jobResponse struct {
	Job      jobDTO       `json:"job"`
	Warnings []warningDTO `json:"warnings,omitempty"`
}

type listJobsResponse struct {
	Jobs []jobDTO `json:"jobs"`
}

type historyResponse struct {
	History []rescheduleDTO `json:"history"`
}

type jobDTO struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	CustomerID      string          `json:"customerId"`
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail,omitempty"`
	Address         string          `json:"address"`
	ServiceType     string          `json:"serviceType,omitempty"`
	Status          string          `json:"status"`
	ScheduledFor    *string         `json:"scheduledFor,omitempty"`
	ScheduledEnd    *string         `json:"scheduledEnd,omitempty"`
	ScheduleInvalid bool            `json:"scheduleInvalid,omitempty"`
	DurationMinutes *int            `json:"durationMinutes,omitempty"`
	Price           int64           `json:"price"`
	Notes           *string         `json:"notes,omitempty"`
	Assignments     []assignmentDTO `json:"assignments"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

type assignmentDTO struct {
	EmployeeID string `json:"employeeId"`
	PayAmount  *int64 `json:"payAmount,omitempty"`
	AssignedAt string `json:"assignedAt"`
}

type warningDTO struct {
	EmployeeID        string   `json:"employeeId"`
	ConflictingJobIDs []string `json:"conflictingJobIds"`
}

type rescheduleDTO struct {
	ID        string  `json:"id"`
	OldStart  *string `json:"oldStart,omitempty"`
	OldEnd    *string `json:"oldEnd,omitempty"`
	NewStart  string  `json:"newStart"`
	NewEnd    string  `json:"newEnd"`
	Reason    string  `json:"reason"`
	CreatedAt string  `json:"createdAt"`
}

func toJobResponse(job persistence.Job, warnings []application.StaffWarning) jobResponse {
	return jobResponse{Job: toJobDTO(job), Warnings: toWarningDTOs(warnings)}
}

func toJobDTO(job persistence.Job) jobDTO {
	dto := jobDTO{
		ID:              job.ID,
		Title:           job.Title,
		CustomerID:      job.CustomerID,
		CustomerName:    job.CustomerName,
		CustomerEmail:   job.CustomerEmail,
		Address:         job.Address,
		ServiceType:     job.ServiceType,
		Status:          job.Status,
		ScheduledFor:    formatOptionalTime(job.ScheduledFor),
		ScheduledEnd:    formatOptionalTime(job.ScheduledEnd),
		ScheduleInvalid: job.ScheduleInvalid,
		DurationMinutes: job.DurationMinutes,
		Price:           job.PricePence,
		Notes:           job.Notes,
		Assignments:     make([]assignmentDTO, 0, len(job.Assignments)),
		CreatedAt:       formatTime(job.CreatedAt),
		UpdatedAt:       formatTime(job.UpdatedAt),
	}
	for _, a := range job.Assignments {
		dto.Assignments = append(dto.Assignments, assignmentDTO{
			EmployeeID: a.EmployeeID,
			PayAmount:  a.PayAmountPence,
			AssignedAt: formatTime(a.AssignedAt),
		})
	}
	return dto
}

func toJobDTOs(jobs []persistence.Job) []jobDTO {
	out := make([]jobDTO, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toJobDTO(job))
	}
	return out
}

func toWarningDTOs(warnings []application.StaffWarning) []warningDTO {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]warningDTO, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, warningDTO{
			EmployeeID:        w.EmployeeID,
			ConflictingJobIDs: append([]string(nil), w.ConflictingIDs...),
		})
	}
	return out
}
