// Package metrics provides Prometheus metrics for the todo chat service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Chat metrics
	IntentsTotal     *prometheus.CounterVec
	FallbackTotal    *prometheus.CounterVec
	DispatchDuration prometheus.Histogram

	// Task store metrics
	TaskOperationsTotal *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.IntentsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_chat_intents_total",
			Help: "Total number of chat messages by recognized intent",
		},
		[]string{"intent"},
	)

	m.FallbackTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_chat_fallback_total",
			Help: "Total number of fallback replies by outcome",
		},
		[]string{"outcome"},
	)

	m.DispatchDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "todo_chat_dispatch_duration_seconds",
			Help:    "Duration of a full chat exchange in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	m.TaskOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_task_operations_total",
			Help: "Total number of task store operations",
		},
		[]string{"operation", "status"},
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler serving the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordIntent counts one handled chat message.
func (m *Metrics) RecordIntent(intent string) {
	if m == nil {
		return
	}
	m.IntentsTotal.WithLabelValues(intent).Inc()
}

// RecordFallback counts one fallback reply.
func (m *Metrics) RecordFallback(outcome string) {
	if m == nil {
		return
	}
	m.FallbackTotal.WithLabelValues(outcome).Inc()
}

// ObserveDispatch records the duration since start.
func (m *Metrics) ObserveDispatch(start time.Time) {
	if m == nil {
		return
	}
	m.DispatchDuration.Observe(time.Since(start).Seconds())
}

// RecordTaskOperation counts one task store operation with its outcome.
func (m *Metrics) RecordTaskOperation(operation string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.TaskOperationsTotal.WithLabelValues(operation, status).Inc()
}
