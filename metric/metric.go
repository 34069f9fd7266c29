// Package metric provides Prometheus metrics for the mavros parameter client.
// The registry is self-contained; embedding applications expose it through
// their own HTTP surface if they want scraping.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics contains the client-level metrics
type Metrics struct {
	// Parameter operation metrics
	PullsTotal   *prometheus.CounterVec
	PullDuration prometheus.Histogram
	SetsTotal    *prometheus.CounterVec
	EventsTotal  prometheus.Counter
	CallErrors   *prometheus.CounterVec

	// NATS metrics
	NATSConnected prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all client metrics
func NewMetrics() *Metrics {
	return &Metrics{
		PullsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mavros",
				Subsystem: "param",
				Name:      "pulls_total",
				Help:      "Total number of parameter pulls",
			},
			[]string{"status"},
		),

		PullDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "mavros",
				Subsystem: "param",
				Name:      "pull_duration_seconds",
				Help:      "Duration of full parameter pulls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		SetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mavros",
				Subsystem: "param",
				Name:      "sets_total",
				Help:      "Total number of parameter set requests",
			},
			[]string{"result"},
		),

		EventsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "mavros",
				Subsystem: "param",
				Name:      "events_total",
				Help:      "Total number of parameter change events received",
			},
		),

		CallErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mavros",
				Subsystem: "remote",
				Name:      "call_errors_total",
				Help:      "Total number of remote call failures",
			},
			[]string{"call"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mavros",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

// RecordPull records a completed pull with its duration
func (m *Metrics) RecordPull(status string, d time.Duration) {
	m.PullsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.PullDuration.Observe(d.Seconds())
	}
}

// RecordSet records the outcome of a parameter set request
func (m *Metrics) RecordSet(result string) {
	m.SetsTotal.WithLabelValues(result).Inc()
}

// RecordEvent records a received parameter change event
func (m *Metrics) RecordEvent() {
	m.EventsTotal.Inc()
}

// RecordCallError records a remote call failure by call name
func (m *Metrics) RecordCallError(call string) {
	m.CallErrors.WithLabelValues(call).Inc()
}

// RecordNATSHealth records the connection health as a gauge value
func (m *Metrics) RecordNATSHealth(healthy bool) {
	if healthy {
		m.NATSConnected.Set(1)
	} else {
		m.NATSConnected.Set(0)
	}
}

// Registry manages the Prometheus registry with core client metrics
type Registry struct {
	prometheusRegistry *prometheus.Registry
	metrics            *Metrics
}

// NewRegistry creates a registry with core metrics and Go runtime collectors
func NewRegistry() *Registry {
	prometheusRegistry := prometheus.NewRegistry()

	r := &Registry{
		prometheusRegistry: prometheusRegistry,
		metrics:            NewMetrics(),
	}

	prometheusRegistry.MustRegister(
		r.metrics.PullsTotal,
		r.metrics.PullDuration,
		r.metrics.SetsTotal,
		r.metrics.EventsTotal,
		r.metrics.CallErrors,
		r.metrics.NATSConnected,
	)

	prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Core returns the core client metrics
func (r *Registry) Core() *Metrics {
	return r.metrics
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}
