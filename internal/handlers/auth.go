package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/benvon/moodtask/internal/models"
	"github.com/benvon/moodtask/internal/request"
	"github.com/benvon/moodtask/internal/services/oidc"
)

// AuthHandler handles authentication-related requests. Login switches
// the session's acting principal to the verified account; logout
// switches it back to the guest slot.
type AuthHandler struct {
	oidcProvider *oidc.Provider
	verifier     *oidc.Verifier
	client       *oidc.Client
}

// NewAuthHandler creates a new auth handler. Both dependencies may be
// nil when OIDC is not configured; login then responds 503.
func NewAuthHandler(oidcProvider *oidc.Provider, verifier *oidc.Verifier) *AuthHandler {
	h := &AuthHandler{oidcProvider: oidcProvider, verifier: verifier}
	if oidcProvider != nil {
		h.client = oidc.NewClient(oidcProvider.Config())
	}
	return h
}

// RegisterRoutes registers auth routes on the given router
// The router should already have the /api/v1/auth prefix
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/oidc/login", h.GetOIDCLogin).Methods("GET")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/callback", h.Callback).Methods("POST")
	r.HandleFunc("/logout", h.Logout).Methods("POST")
	r.HandleFunc("/me", h.GetMe).Methods("GET")
}

// LoginRequest carries the ID token obtained from the OIDC provider
type LoginRequest struct {
	Token string `json:"token"`
}

// CallbackRequest carries the authorization code from the OIDC redirect
type CallbackRequest struct {
	Code string `json:"code"`
}

// GetOIDCLogin returns OIDC configuration for frontend
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.oidcProvider == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "OIDC is not configured")
		return
	}

	loginConfig, err := h.oidcProvider.GetLoginConfig(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Failed to get OIDC configuration", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, loginConfig)
}

// Login verifies the token and switches the session to the account's
// task snapshot. The guest snapshot is saved before the switch, so
// logging out restores it.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}
	if h.verifier == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "OIDC is not configured")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Token is required")
		return
	}

	claims, err := h.verifier.Verify(r.Context(), req.Token)
	if err != nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Token verification failed")
		return
	}

	if err := s.SwitchTo(r.Context(), models.AuthenticatedIdentity(claims.Email)); err != nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Failed to switch account")
		return
	}

	respondJSON(w, http.StatusOK, s.Identity())
}

// Callback completes the authorization-code flow: the code is
// exchanged for tokens and the ID token goes through the same
// verification and identity switch as Login.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}
	if h.client == nil || h.verifier == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "OIDC is not configured")
		return
	}

	var req CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Authorization code is required")
		return
	}

	token, err := h.client.ExchangeCode(r.Context(), req.Code)
	if err != nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Code exchange failed")
		return
	}
	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Token response missing ID token")
		return
	}

	claims, err := h.verifier.Verify(r.Context(), idToken)
	if err != nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Token verification failed")
		return
	}

	if err := s.SwitchTo(r.Context(), models.AuthenticatedIdentity(claims.Email)); err != nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Failed to switch account")
		return
	}

	respondJSON(w, http.StatusOK, s.Identity())
}

// Logout switches the session back to its guest snapshot
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	if err := s.SwitchTo(r.Context(), models.GuestIdentity(s.ID())); err != nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Failed to switch account")
		return
	}

	respondJSON(w, http.StatusOK, s.Identity())
}

// GetMe returns the session's acting principal
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	respondJSON(w, http.StatusOK, s.Identity())
}
