package middleware

import (
	"context"
	"net/http"
	"time"
)

const (
	// DefaultRequestTimeout bounds a single request (30 seconds). Task
	// mutations finish in milliseconds; the slow path is pool fetch on
	// a suggestion refresh, which carries its own shorter timeout.
	DefaultRequestTimeout = 30 * time.Second
)

// Timeout enforces a deadline on request handlers. Not applied to the
// SSE stream, which is registered outside this chain: TimeoutHandler
// buffers the response, which would break streaming.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			// Deadline on the context so downstream storage calls see
			// it, plus TimeoutHandler for the response side.
			r = r.WithContext(ctx)
			handler := http.TimeoutHandler(next, timeout, "Request Timeout")
			handler.ServeHTTP(w, r)
		})
	}
}
