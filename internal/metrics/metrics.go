// Package metrics exposes Prometheus counters for card cycles and sweeps.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/five82/cardbridge/internal/outcome"
)

// Metrics holds the bridge's Prometheus collectors.
type Metrics struct {
	Outcomes        *prometheus.CounterVec
	Insertions      prometheus.Counter
	CaptureDuration prometheus.Histogram
	SweptFiles      prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cardbridge_outcomes_total",
			Help: "Outcomes reported, by kind",
		}, []string{"kind"}),
		Insertions: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardbridge_insertions_total",
			Help: "Valid card insertions that started a capture cycle",
		}),
		CaptureDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardbridge_capture_duration_seconds",
			Help:    "Duration of capture cycles from insertion to outcome",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		SweptFiles: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardbridge_swept_files_total",
			Help: "Image files removed by the retention sweep",
		}),
	}
	// Expose every kind at zero so dashboards see the full label set.
	for _, kind := range outcome.Kinds {
		m.Outcomes.WithLabelValues(string(kind))
	}
	return m
}

// Notify counts an outcome. It implements outcome.Notifier.
func (m *Metrics) Notify(o outcome.Outcome) {
	m.Outcomes.WithLabelValues(string(o.Kind)).Inc()
}

// Insertion records the start of a capture cycle.
func (m *Metrics) Insertion() {
	m.Insertions.Inc()
}

// CycleDone records how long a capture cycle took.
func (m *Metrics) CycleDone(elapsed time.Duration) {
	m.CaptureDuration.Observe(elapsed.Seconds())
}

// FilesSwept adds deleted files to the sweep counter.
func (m *Metrics) FilesSwept(n int) {
	m.SweptFiles.Add(float64(n))
}
