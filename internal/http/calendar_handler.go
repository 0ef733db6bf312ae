package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/cleaning-ops/internal/application"
	"github.com/example/cleaning-ops/internal/calendar"
	"github.com/example/cleaning-ops/internal/persistence"
)

type calendarService interface {
	Location() *time.Location
	View(ctx context.Context, view calendar.View, ref time.Time) (application.CalendarView, error)
	Timeline(ctx context.Context, date time.Time) (application.DayTimeline, error)
	Drop(ctx context.Context, jobID string, date time.Time, hour, minute int) (persistence.Job, error)
}

// CalendarHandler serves grid views, the day timeline and drag and drop moves.
type CalendarHandler struct {
	service   calendarService
	now       func() time.Time
	responder responder
}

func NewCalendarHandler(service calendarService, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{service: service, now: time.Now, responder: newResponder(logger)}
}

// View handles GET /calendar?view=day|week|month&date=YYYY-MM-DD.
func (h *CalendarHandler) View(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	view, err := calendar.ParseView(query.Get("view"))
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, "view", "must be day, week or month")
		return
	}
	ref, ok := h.referenceDate(w, r, query.Get("date"))
	if !ok {
		return
	}

	result, err := h.service.View(r.Context(), view, ref)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	loc := h.service.Location()
	resp := calendarViewResponse{
		View:     string(result.View),
		First:    result.First.In(loc).Format(dateLayout),
		Last:     result.Last.In(loc).Format(dateLayout),
		Days:     make([]calendarDayDTO, 0, len(result.Days)),
		Unplaced: result.Unplaced,
	}
	for _, day := range result.Days {
		dto := calendarDayDTO{Date: day.Date.In(loc).Format(dateLayout), Jobs: make([]calendarJobDTO, 0, len(day.Jobs))}
		for _, job := range day.Jobs {
			dto.Jobs = append(dto.Jobs, toCalendarJobDTO(job))
		}
		resp.Days = append(resp.Days, dto)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Timeline handles GET /calendar/timeline?date=YYYY-MM-DD.
func (h *CalendarHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	date, ok := h.referenceDate(w, r, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	result, err := h.service.Timeline(r.Context(), date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := timelineResponse{
		Date:   result.Date.In(h.service.Location()).Format(dateLayout),
		Blocks: make([]timelineBlockDTO, 0, len(result.Blocks)),
		Slots:  make([]timelineSlotDTO, 0, len(result.Slots)),
	}
	for _, b := range result.Blocks {
		resp.Blocks = append(resp.Blocks, timelineBlockDTO{Job: toCalendarJobDTO(b.Job), Top: b.Top, Height: b.Height})
	}
	for _, s := range result.Slots {
		resp.Slots = append(resp.Slots, timelineSlotDTO{Label: s.Label(), Top: s.Top})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Drop handles POST /calendar/drop.
func (h *CalendarHandler) Drop(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req dropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.JobID) == "" {
		h.responder.writeFieldError(r.Context(), w, "jobId", "job id is required")
		return
	}
	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(req.Date), h.service.Location())
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, "date", "must be a YYYY-MM-DD date")
		return
	}

	job, err := h.service.Drop(r.Context(), strings.TrimSpace(req.JobID), date, req.Hour, req.Minute)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toJobResponse(job, nil))
}

func (h *CalendarHandler) referenceDate(w http.ResponseWriter, r *http.Request, value string) (time.Time, bool) {
	loc := h.service.Location()
	value = strings.TrimSpace(value)
	if value == "" {
		return h.now().In(loc), true
	}
	ref, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, "date", "must be a YYYY-MM-DD date")
		return time.Time{}, false
	}
	return ref, true
}

type dropRequest struct {
	JobID  string `json:"jobId"`
	Date   string `json:"date"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
}

type calendarViewResponse struct {
	View     string           `json:"view"`
	First    string           `json:"first"`
	Last     string           `json:"last"`
	Days     []calendarDayDTO `json:"days"`
	Unplaced []string         `json:"unplaced,omitempty"`
}

type calendarDayDTO struct {
	Date string           `json:"date"`
	Jobs []calendarJobDTO `json:"jobs"`
}

type calendarJobDTO struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Start           string   `json:"start"`
	End             string   `json:"end"`
	DurationMinutes int      `json:"durationMinutes"`
	Status          string   `json:"status"`
	EmployeeIDs     []string `json:"employeeIds"`
}

type timelineResponse struct {
	Date   string             `json:"date"`
	Blocks []timelineBlockDTO `json:"blocks"`
	Slots  []timelineSlotDTO  `json:"slots"`
}

type timelineBlockDTO struct {
	Job    calendarJobDTO `json:"job"`
	Top    float64        `json:"top"`
	Height float64        `json:"height"`
}

type timelineSlotDTO struct {
	Label string  `json:"label"`
	Top   float64 `json:"top"`
}

func toCalendarJobDTO(job calendar.Job) calendarJobDTO {
	ids := append([]string{}, job.AssignedEmployeeIDs...)
	return calendarJobDTO{
		ID:              job.ID,
		Title:           job.Title,
		Start:           formatTime(job.Start),
		End:             formatTime(job.End()),
		DurationMinutes: job.DurationMinutes,
		Status:          string(job.Status),
		EmployeeIDs:     ids,
	}
}
