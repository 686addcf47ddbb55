// Package metrics implements ports.Metrics with Prometheus collectors written to a textfile.
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Metrics = (*Recorder)(nil)

// Recorder collects resolution metrics on a private registry.
type Recorder struct {
	registry    *prometheus.Registry
	resolutions *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	duration    prometheus.Histogram
}

// New creates a Recorder with its collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "knit_resolutions_total",
				Help: "Number of resolved call sites by outcome.",
			},
			[]string{"outcome"},
		),
		diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "knit_diagnostics_total",
				Help: "Number of reported diagnostics by kind and severity.",
			},
			[]string{"kind", "severity"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "knit_resolution_duration_seconds",
				Help:    "Time taken to resolve one call site.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
	}
	r.registry.MustRegister(r.resolutions, r.diagnostics, r.duration)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveResolution records the outcome and duration of one call site.
func (r *Recorder) ObserveResolution(outcome string, duration time.Duration) {
	r.resolutions.WithLabelValues(outcome).Inc()
	r.duration.Observe(duration.Seconds())
}

// ObserveDiagnostic counts one diagnostic.
func (r *Recorder) ObserveDiagnostic(kind, severity string) {
	r.diagnostics.WithLabelValues(kind, severity).Inc()
}

// Flush writes all metrics to path in the Prometheus text format.
func (r *Recorder) Flush(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create metrics directory"), "path", path)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write metrics"), "path", path)
	}
	return nil
}
