package handlers

import (
	"fmt"
	"net/http"

	"github.com/benvon/moodtask/internal/render"
	"github.com/benvon/moodtask/internal/request"
)

// EventsHandler streams view updates over server-sent events
type EventsHandler struct {
	hub *render.SSEHub
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hub *render.SSEHub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Stream handles GET /events. Each frame is one view update for the
// requesting session, delivered as an SSE data line.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	frames, unsubscribe := h.hub.Subscribe(s.ID())
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
