// Package metrics exposes scan counters as Prometheus collectors. There is no
// HTTP endpoint; a run can dump the registry in the node_exporter textfile
// format when it finishes.
package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nsxbet/sql-scanner/pkg/types"
)

const (
	namespace = "sql_scanner"
	subsystem = "scan"
)

// Metrics holds the collectors of one scanner instance. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	files    *prometheus.CounterVec
	issues   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "files_total",
			Help:      "Files processed by dialect and final status.",
		}, []string{"db_type", "status"}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "issues_total",
			Help:      "Issues detected by dialect and issue type.",
		}, []string{"db_type", "type"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "file_duration_seconds",
			Help:      "Time spent on one file, fetch and analysis included.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}, []string{"db_type"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "files_in_flight",
			Help:      "Files currently being processed.",
		}),
	}
	m.registry.MustRegister(m.files, m.issues, m.duration, m.inFlight)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Started marks a file as in flight.
func (m *Metrics) Started() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// Finished marks a file as no longer in flight.
func (m *Metrics) Finished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

// Observe records the outcome of a file.
func (m *Metrics) Observe(o types.Outcome) {
	if m == nil {
		return
	}
	dialect := o.Dialect.String()
	m.files.WithLabelValues(dialect, string(o.Status)).Inc()
	m.duration.WithLabelValues(dialect).Observe(o.Duration.Seconds())
	for _, issue := range o.Issues() {
		m.issues.WithLabelValues(dialect, string(issue.Type)).Inc()
	}
}

// WriteTextfile writes every collector to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", path)
	}
	return nil
}
