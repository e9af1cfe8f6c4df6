// Package metrics exposes the assistant's Prometheus instruments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every instrument. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	DispatchTotal      *prometheus.CounterVec
	DispatchDuration   *prometheus.HistogramVec
	FallbackTotal      *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	JobsProcessed      *prometheus.CounterVec
	DeadLettersPurged  prometheus.Counter
}

// New registers all instruments on a fresh registry, alongside the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_dispatch_total",
				Help: "Total number of dispatched messages by resolved intent and outcome",
			},
			[]string{"intent", "outcome"},
		),
		DispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "planner_dispatch_duration_seconds",
				Help:    "Duration of a full dispatch cycle in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
			},
			[]string{"intent"},
		),
		FallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_synthesis_fallback_total",
				Help: "Total number of synthesized objects replaced by their fallback",
			},
			[]string{"component", "reason"},
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "planner_generation_duration_seconds",
				Help:    "Duration of text generation round-trips in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		JobsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_jobs_processed_total",
				Help: "Total number of background jobs processed by type and result",
			},
			[]string{"job_type", "result"},
		),
		DeadLettersPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "planner_dead_letters_purged_total",
			Help: "Total number of dead-lettered jobs dropped for exceeding retention",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDispatch records one completed dispatch.
func (m *Metrics) ObserveDispatch(intent, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DispatchTotal.WithLabelValues(intent, outcome).Inc()
	m.DispatchDuration.WithLabelValues(intent).Observe(elapsed.Seconds())
}

// ObserveFallback records a synthesis component falling back to its default.
func (m *Metrics) ObserveFallback(component, reason string) {
	if m == nil {
		return
	}
	m.FallbackTotal.WithLabelValues(component, reason).Inc()
}

// ObserveGeneration records one generator round-trip.
func (m *Metrics) ObserveGeneration(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.GenerationDuration.WithLabelValues(operation, status).Observe(elapsed.Seconds())
}

// ObserveJob records one processed background job.
func (m *Metrics) ObserveJob(jobType, result string) {
	if m == nil {
		return
	}
	m.JobsProcessed.WithLabelValues(jobType, result).Inc()
}

// ObservePurged records dead-lettered jobs removed by a sweep.
func (m *Metrics) ObservePurged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DeadLettersPurged.Add(float64(n))
}
