package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benvon/moodtask/internal/request"
	"github.com/benvon/moodtask/internal/session"
)

// SessionHeader carries the client's session marker. Clients without
// one are assigned a fresh marker, echoed back on the response.
const SessionHeader = "X-Session-ID"

// Session resolves the request's session and attaches it to the
// context. Every request gets a session; the handler layer never sees
// a request without one.
func Session(manager *session.Manager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(SessionHeader)
			if sessionID == "" {
				sessionID = uuid.New().String()
			}
			w.Header().Set(SessionHeader, sessionID)

			s, err := manager.GetOrCreate(r.Context(), sessionID)
			if err != nil {
				logger.Error("session_resolve_failed",
					zap.String("session_id", sessionID),
					zap.Error(err),
				)
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithSession(r.Context(), s)))
		})
	}
}
