package middleware

import (
	"net/http"
	"time"

	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/request"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Logging assigns a request id (reusing X-Request-ID when the caller sent one), echoes it on the
// response and logs one http_request line per request.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := logger.Sanitize(r.Header.Get(request.RequestIDHeader), 64)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(request.RequestIDHeader, id)
			r = r.WithContext(request.WithRequestID(r.Context(), id))

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			log.Info("http_request",
				zap.String("request_id", id),
				zap.String("method", r.Method),
				zap.String("path", logger.SanitizePath(r.URL.Path)),
				zap.Int("status_code", wrapped.statusCode),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

// responseWriter captures the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
