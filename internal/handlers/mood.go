package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/benvon/moodtask/internal/request"
	"github.com/benvon/moodtask/internal/validation"
)

// MoodHandler handles mood state requests
type MoodHandler struct{}

// NewMoodHandler creates a new mood handler
func NewMoodHandler() *MoodHandler {
	return &MoodHandler{}
}

// RegisterRoutes registers mood routes on the given router
func (h *MoodHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetMood).Methods("GET")
	r.HandleFunc("", h.SetMood).Methods("POST")
}

// SetMoodRequest represents a mood update. Settled marks the end of a
// slider adjustment; intermediate updates carry settled=false and only
// record the value.
type SetMoodRequest struct {
	Value   int  `json:"value" validate:"mood"`
	Settled bool `json:"settled"`
}

// MoodResponse represents the current mood state
type MoodResponse struct {
	Value   int    `json:"value"`
	Weather string `json:"weather"`
}

// GetMood returns the session's current mood and weather
func (h *MoodHandler) GetMood(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	respondJSON(w, http.StatusOK, MoodResponse{
		Value:   s.Mood().Mood(),
		Weather: s.Mood().Weather(),
	})
}

// SetMood records a mood value. A settled update schedules a debounced
// suggestion refresh; the refreshed list arrives on the event stream.
func (h *MoodHandler) SetMood(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	var req SetMoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if err := validation.ValidateMood(req.Value); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	s.Mood().SetMood(req.Value, req.Settled)
	respondJSON(w, http.StatusAccepted, MoodResponse{
		Value:   s.Mood().Mood(),
		Weather: s.Mood().Weather(),
	})
}
