// Package metrics defines the Prometheus metrics recorded by hellowasm.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values for ExportCalls.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Result label values for Alerts.
const (
	AlertDelivered = "delivered"
	AlertDropped   = "dropped"
	AlertInvalid   = "invalid"
)

// Metrics holds all collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// FibDuration is the wall-clock time of one Fibonacci computation,
	// labelled by implementation ("native" or "wasm").
	FibDuration *prometheus.HistogramVec

	// ExportCalls counts calls into guest exports.
	ExportCalls *prometheus.CounterVec

	// Alerts counts alert calls made by guests.
	Alerts *prometheus.CounterVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		FibDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hellowasm_fib_duration_seconds",
				Help:    "Time spent computing one Fibonacci number",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
			},
			[]string{"impl"},
		),
		ExportCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hellowasm_export_calls_total",
				Help: "Total number of calls into guest exports",
			},
			[]string{"export", "status"},
		),
		Alerts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hellowasm_alerts_total",
				Help: "Total number of alert calls received from guests",
			},
			[]string{"result"},
		),
	}
}

// ObserveFib records one Fibonacci computation.
func (m *Metrics) ObserveFib(impl string, d time.Duration) {
	if m == nil {
		return
	}
	m.FibDuration.WithLabelValues(impl).Observe(d.Seconds())
}

// ExportCalled records one call into a guest export.
func (m *Metrics) ExportCalled(export, status string) {
	if m == nil {
		return
	}
	m.ExportCalls.WithLabelValues(export, status).Inc()
}

// AlertReceived records one alert call.
func (m *Metrics) AlertReceived(result string) {
	if m == nil {
		return
	}
	m.Alerts.WithLabelValues(result).Inc()
}

// WriteTextfile writes the registry in the text exposition format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
