package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// DefaultRequestTimeout covers a lock wait plus a classification and one synthesis round-trip.
const DefaultRequestTimeout = 90 * time.Second

// Deadline cancels the request context after d. Handlers that honour the context answer on their
// own (the assistant apologises); a handler that returns without writing anything after the
// deadline gets a 503 written for it.
func Deadline(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		d = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))

			if !rw.wroteHeader && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				respondErrorJSON(rw, r, http.StatusServiceUnavailable, "Request Timeout", "the request took too long", nil)
			}
		})
	}
}
