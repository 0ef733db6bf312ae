package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db        Pinger
	responder responder
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, responder: newResponder(logger)}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := healthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			handlerLogger(r.Context(), h.responder.logger, "HealthHandler", "Check").
				ErrorContext(r.Context(), "database ping failed", "error", err)
			resp = healthResponse{Status: "degraded", Database: "unreachable"}
			status = http.StatusServiceUnavailable
		}
	}
	h.responder.writeJSON(r.Context(), w, status, resp)
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
