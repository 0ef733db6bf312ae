package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/cleaning-ops/internal/application"
	"github.com/example/cleaning-ops/internal/email"
	"github.com/example/cleaning-ops/internal/trends"
)

type profitabilityService interface {
	Trend(ctx context.Context, startDate, endDate time.Time, hint trends.Granularity) (application.ProfitabilityReport, error)
}

type ProfitabilityHandler struct {
	service   profitabilityService
	loc       *time.Location
	responder responder
}

func NewProfitabilityHandler(service profitabilityService, loc *time.Location, logger *slog.Logger) *ProfitabilityHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ProfitabilityHandler{service: service, loc: loc, responder: newResponder(logger)}
}

// Trend handles GET /profitability?startDate=&endDate=&granularity=.
// Both dates are inclusive calendar days.
func (h *ProfitabilityHandler) Trend(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	start, err := time.ParseInLocation(dateLayout, strings.TrimSpace(query.Get("startDate")), h.loc)
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, "startDate", "must be a YYYY-MM-DD date")
		return
	}
	end, err := time.ParseInLocation(dateLayout, strings.TrimSpace(query.Get("endDate")), h.loc)
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, "endDate", "must be a YYYY-MM-DD date")
		return
	}
	hint, err := trends.ParseGranularity(query.Get("granularity"))
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, "granularity", "must be auto, day, week or month")
		return
	}

	report, err := h.service.Trend(r.Context(), start, end, hint)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := profitabilityResponse{
		Granularity: string(report.Granularity),
		Points:      make([]trendPointDTO, 0, len(report.Points)),
		Totals:      toMetricsDTO(report.Totals),
	}
	for _, p := range report.Points {
		resp.Points = append(resp.Points, trendPointDTO{
			Label:      p.Bucket.Label,
			Start:      p.Bucket.Start.In(h.loc).Format(dateLayout),
			End:        p.Bucket.End.In(h.loc).Format(dateLayout),
			Failed:     p.Failed,
			metricsDTO: toMetricsDTO(p.Metrics),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type profitabilityResponse struct {
	Granularity string          `json:"granularity"`
	Points      []trendPointDTO `json:"points"`
	Totals      metricsDTO      `json:"totals"`
}

type trendPointDTO struct {
	Label  string `json:"label"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Failed bool   `json:"failed,omitempty"`
	metricsDTO
}

type metricsDTO struct {
	Revenue         int64  `json:"revenue"`
	LabourCost      int64  `json:"labourCost"`
	Profit          int64  `json:"profit"`
	Jobs            int    `json:"jobs"`
	ProfitFormatted string `json:"profitFormatted"`
}

func toMetricsDTO(m trends.Metrics) metricsDTO {
	return metricsDTO{
		Revenue:         m.Revenue,
		LabourCost:      m.LabourCost,
		Profit:          m.Profit,
		Jobs:            m.Jobs,
		ProfitFormatted: email.FormatPence(m.Profit),
	}
}
