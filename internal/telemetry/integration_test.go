package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Request spans from otelmux must parent the spans the assistant opens while handling a turn.
func TestRequestSpanParentsTurnSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("smart-planner"))
	r.HandleFunc("/api/v1/assistant/messages", func(w http.ResponseWriter, req *http.Request) {
		_, span := Tracer().Start(req.Context(), "assistant.classify")
		EndSpan(span, errors.New("provider unavailable"))
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	tests := []struct {
		name        string
		traceParent string
		wantTraceID string
	}{
		{name: "new trace"},
		{
			name:        "continues caller trace",
			traceParent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			wantTraceID: "4bf92f3577b34da6a3ce929d0e0e4736",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/messages", nil)
			if tt.traceParent != "" {
				req.Header.Set("traceparent", tt.traceParent)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("Expected status OK, got %d", rr.Code)
			}

			spans := exporter.GetSpans()
			if len(spans) != 2 {
				t.Fatalf("Expected request and turn spans, got %d", len(spans))
			}
			// Syncer exports on End, so the inner span comes first.
			turn, server := spans[0], spans[1]
			if turn.Name != "assistant.classify" {
				t.Errorf("Expected turn span first, got %q", turn.Name)
			}
			if turn.Parent.SpanID() != server.SpanContext.SpanID() {
				t.Error("Expected turn span to be a child of the request span")
			}
			if turn.Status.Code != codes.Error {
				t.Errorf("Expected error status on turn span, got %v", turn.Status.Code)
			}
			if tt.wantTraceID != "" && server.SpanContext.TraceID().String() != tt.wantTraceID {
				t.Errorf("Expected trace %s, got %s", tt.wantTraceID, server.SpanContext.TraceID())
			}
		})
	}
}
