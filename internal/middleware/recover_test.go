package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/smart-planner/internal/request"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecover(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		handler     http.HandlerFunc
		wantStatus  int
		wantBody    bool
		wantLogged  bool
		wantStarted bool
	}{
		{
			name: "no panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "panic with secret value",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic("postgres://planner:hunter2@db/planner")
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   true,
			wantLogged: true,
		},
		{
			name: "runtime panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var sessions map[string]string
				sessions["s-1"] = "x"
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   true,
			wantLogged: true,
		},
		{
			name: "panic after response started",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
				panic("late")
			},
			wantStatus:  http.StatusAccepted,
			wantLogged:  true,
			wantStarted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.ErrorLevel)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/messages", nil)
			req = req.WithContext(request.WithRequestID(req.Context(), "req-123"))
			w := httptest.NewRecorder()

			Recover(zap.New(core))(tt.handler).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}

			entries := logs.FilterMessage("panic_recovered").All()
			if tt.wantLogged != (len(entries) == 1) {
				t.Fatalf("Expected panic logged = %v, got %d entries", tt.wantLogged, len(entries))
			}
			if tt.wantLogged {
				fields := entries[0].ContextMap()
				if fields["request_id"] != "req-123" || fields["response_started"] != tt.wantStarted {
					t.Errorf("unexpected log fields: %v", fields)
				}
			}

			if !tt.wantBody {
				return
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %q", ct)
			}
			var body ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if body.Success || body.Error != "Internal Server Error" || body.Message != "An unexpected error occurred" {
				t.Errorf("unexpected body: %+v", body)
			}
			if body.RequestID != "req-123" || body.Path != "/api/v1/assistant/messages" || body.Timestamp == "" {
				t.Errorf("Expected request id, path and timestamp echoed, got %+v", body)
			}
		})
	}
}

func TestRecover_AbortHandlerPropagates(t *testing.T) {
	t.Parallel()

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("Expected http.ErrAbortHandler to propagate, got %v", rec)
		}
	}()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})
	Recover(zap.NewNop())(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
