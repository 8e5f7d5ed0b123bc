package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/benvon/moodtask/internal/request"
	"github.com/benvon/moodtask/internal/validation"
	"github.com/benvon/moodtask/internal/weather"
)

// WeatherHandler handles weather requests
type WeatherHandler struct {
	provider weather.Provider
}

// NewWeatherHandler creates a new weather handler
func NewWeatherHandler(provider weather.Provider) *WeatherHandler {
	return &WeatherHandler{provider: provider}
}

// RegisterRoutes registers weather routes on the given router
func (h *WeatherHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetWeather).Methods("GET")
	r.HandleFunc("", h.SetWeather).Methods("POST")
	r.HandleFunc("/randomize", h.RandomizeWeather).Methods("POST")
}

// SetWeatherRequest represents a weather override
type SetWeatherRequest struct {
	Condition string `json:"condition" validate:"weather_condition"`
}

// WeatherResponse represents the current weather state
type WeatherResponse struct {
	Condition  string   `json:"condition"`
	Conditions []string `json:"conditions"`
}

// GetWeather returns the session's current weather condition and the
// recognized condition set
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	respondJSON(w, http.StatusOK, WeatherResponse{
		Condition:  s.Mood().Weather(),
		Conditions: weather.Conditions,
	})
}

// SetWeather overrides the session's weather condition and refreshes
// suggestions immediately
func (h *WeatherHandler) SetWeather(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	var req SetWeatherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if err := validation.ValidateWeatherCondition(req.Condition); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	s.Mood().SetWeather(req.Condition)
	respondJSON(w, http.StatusAccepted, WeatherResponse{
		Condition:  req.Condition,
		Conditions: weather.Conditions,
	})
}

// RandomizeWeather draws a fresh observation from the provider and
// applies its condition to the session
func (h *WeatherHandler) RandomizeWeather(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	obs, err := h.provider.Observe(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Weather provider failed")
		return
	}

	s.Mood().SetWeather(obs.Condition)
	respondJSON(w, http.StatusOK, obs)
}
