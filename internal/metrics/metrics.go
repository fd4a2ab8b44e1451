// Package metrics exposes Prometheus instrumentation for the chart session.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks chart mutations, snapshot saves and the session dirty flag.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Mutations    *prometheus.CounterVec
	Saves        *prometheus.CounterVec
	SaveDuration prometheus.Histogram
	Dirty        prometheus.Gauge
}

// New creates a Metrics instance on its own registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orgboard_chart_mutations_total",
			Help: "Chart mutations by operation and result",
		}, []string{"op", "result"}),
		Saves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orgboard_snapshot_saves_total",
			Help: "Snapshot saves by result",
		}, []string{"result"}),
		SaveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "orgboard_snapshot_save_duration_seconds",
			Help:    "Duration of snapshot saves through the persistence gateway",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		Dirty: f.NewGauge(prometheus.GaugeOpts{
			Name: "orgboard_session_dirty",
			Help: "1 when the session has unsaved edits",
		}),
	}
}

// ObserveMutation records the outcome of a chart operation.
func (m *Metrics) ObserveMutation(op string, err error) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op, result(err)).Inc()
}

// ObserveSave records a snapshot save started at start.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSave(start time.Time, err error) {
	if m == nil {
		return
	}
	m.Saves.WithLabelValues(result(err)).Inc()
	m.SaveDuration.Observe(time.Since(start).Seconds())
}

// SetDirty reflects the session dirty flag.
func (m *Metrics) SetDirty(dirty bool) {
	if m == nil {
		return
	}
	if dirty {
		m.Dirty.Set(1)
		return
	}
	m.Dirty.Set(0)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
