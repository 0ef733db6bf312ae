package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/cleaning-ops/internal/events"
)

// EventName is the SSE event type carrying a JobsChanged payload.
const EventName = "jobs-changed"

type eventSource interface {
	Subscribe(buffer int) (<-chan events.JobsChanged, func())
}

// EventsHandler streams JobsChanged events as Server-Sent Events.
type EventsHandler struct {
	source    eventSource
	keepAlive time.Duration
	logger    *slog.Logger
	responder responder
}

// NewEventsHandler builds the handler. A comment line is written every
// keepAlive so idle proxies keep the stream open; zero means 15s.
func NewEventsHandler(source eventSource, keepAlive time.Duration, logger *slog.Logger) *EventsHandler {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return &EventsHandler{source: source, keepAlive: keepAlive, logger: defaultLogger(logger), responder: newResponder(logger)}
}

// Stream handles GET /events.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.source == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	ctx := r.Context()
	logger := handlerLogger(ctx, h.logger, "EventsHandler", "Stream")

	changes, cancel := h.source.Subscribe(events.DefaultBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()
	logger.InfoContext(ctx, "event stream opened")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "event stream closed")
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-changes:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				logger.ErrorContext(ctx, "failed to encode event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", EventName, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
