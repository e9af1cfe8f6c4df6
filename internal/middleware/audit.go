package middleware

import (
	"net/http"

	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/request"
	"go.uber.org/zap"
)

// Audit logs rejected requests: rate-limit hits and bodies refused for size or content type.
func Audit(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			fields := func() []zap.Field {
				return []zap.Field{
					zap.String("request_id", request.RequestID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", logger.SanitizePath(r.URL.Path)),
					zap.String("ip", logger.Sanitize(request.ClientIP(r), 100)),
				}
			}

			switch wrapped.statusCode {
			case http.StatusTooManyRequests:
				log.Warn("rate_limit_violation", fields()...)
			case http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
				log.Warn("request_rejected", append(fields(), zap.Int("status_code", wrapped.statusCode))...)
			}
		})
	}
}
