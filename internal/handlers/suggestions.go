package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/benvon/moodtask/internal/request"
)

// SuggestionHandler handles suggestion list requests
type SuggestionHandler struct{}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler() *SuggestionHandler {
	return &SuggestionHandler{}
}

// RegisterRoutes registers suggestion routes on the given router
func (h *SuggestionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListSuggestions).Methods("GET")
	r.HandleFunc("/refresh", h.RefreshSuggestions).Methods("POST")
}

// ListSuggestions returns the session's current suggestion list
func (h *SuggestionHandler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	respondJSON(w, http.StatusOK, s.Controller().Suggestions())
}

// RefreshSuggestions forces a synchronous suggestion refresh against
// the session's current mood and weather, bypassing the debounce
// window, and returns the refreshed list
func (h *SuggestionHandler) RefreshSuggestions(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	s.Mood().Refresh(r.Context())
	respondJSON(w, http.StatusOK, s.Controller().Suggestions())
}
