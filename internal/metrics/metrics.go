// Package metrics exposes coordinator activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dokzlo13/buildlight/internal/coordinator"
)

// Metrics counts coordinator events and update failures.
type Metrics struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	updates  *prometheus.CounterVec
}

// New creates metrics registered on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buildlight",
			Name:      "light_events_total",
			Help:      "Coordinator events by kind.",
		}, []string{"event"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buildlight",
			Name:      "updates_total",
			Help:      "Light updates by source and result.",
		}, []string{"source", "result"}),
	}
	m.registry.MustRegister(m.events, m.updates)
	return m
}

// Record implements coordinator.Recorder.
func (m *Metrics) Record(ev coordinator.Event) {
	m.events.WithLabelValues(string(ev.Kind)).Inc()
}

// ObserveUpdate counts an update attempt from source ("job" or "view").
func (m *Metrics) ObserveUpdate(source string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.updates.WithLabelValues(source, result).Inc()
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
