// Package metrics provides Prometheus metrics for the message pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for contextd.
type Metrics struct {
	TriggersTotal    *prometheus.CounterVec
	MessagesTotal    *prometheus.CounterVec
	ProcessDuration  prometheus.Histogram
	DispatchFailures prometheus.Counter
	ConsumerRestarts prometheus.Counter
	InFlightSessions prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		TriggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contextd_triggers_total",
				Help: "Session-processing triggers by outcome.",
			},
			[]string{"outcome"},
		),
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contextd_messages_processed_total",
				Help: "Messages reaching a terminal state, by status.",
			},
			[]string{"status"},
		),
		ProcessDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "contextd_session_process_duration_seconds",
				Help:    "Duration of one session-processing pass.",
				Buckets: prometheus.DefBuckets,
			},
		),
		DispatchFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "contextd_dispatch_failures_total",
				Help: "Downstream dispatch attempts that exhausted retries.",
			},
		),
		ConsumerRestarts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "contextd_consumer_restarts_total",
				Help: "Supervised restarts of the trigger consumer loop.",
			},
		),
		InFlightSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contextd_inflight_sessions",
				Help: "Session-processing passes currently running.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.TriggersTotal)
	reg.MustRegister(m.MessagesTotal)
	reg.MustRegister(m.ProcessDuration)
	reg.MustRegister(m.DispatchFailures)
	reg.MustRegister(m.ConsumerRestarts)
	reg.MustRegister(m.InFlightSessions)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
