package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/benvon/smart-planner/internal/request"
	"go.uber.org/zap"
)

// ErrorResponse is the body written when middleware rejects or aborts a request
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// Recover turns a handler panic into a 500 without leaking the panic value. If the handler had
// already started its response, the connection is left as is.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error("panic_recovered",
					zap.Any("panic", rec),
					zap.String("request_id", request.RequestID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Bool("response_started", rw.wroteHeader),
				)
				if !rw.wroteHeader {
					respondErrorJSON(rw, r, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred", log)
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

func respondErrorJSON(w http.ResponseWriter, r *http.Request, status int, errorType, message string, log *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(ErrorResponse{
		Success:   false,
		Error:     errorType,
		Message:   message,
		RequestID: request.RequestID(r.Context()),
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil && log != nil {
		log.Warn("error_response_write_failed", zap.Error(err), zap.Int("status_code", status))
	}
}
