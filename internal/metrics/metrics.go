// Package metrics exposes Prometheus collectors describing relay activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signal_relay"

// Metrics holds the relay's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	connections  prometheus.Gauge
	connects     prometheus.Counter
	messages     *prometheus.CounterVec
	deliveries   prometheus.Counter
	sendFailures prometheus.Counter
}

// New creates a Metrics instance with all collectors registered, along with
// the standard Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of currently registered client connections.",
		}),
		connects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total number of client connections accepted.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Total number of inbound messages broadcast to at least one peer.",
		}, []string{"kind"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Total number of successful per-recipient sends.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Total number of per-recipient sends that failed.",
		}),
	}

	m.registry.MustRegister(
		m.connections,
		m.connects,
		m.messages,
		m.deliveries,
		m.sendFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the Prometheus text exposition of this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ConnectionOpened records a newly registered connection.
func (m *Metrics) ConnectionOpened() {
	m.connects.Inc()
	m.connections.Inc()
}

// ConnectionClosed records an unregistered connection.
func (m *Metrics) ConnectionClosed() {
	m.connections.Dec()
}

// MessageRelayed records one broadcast and the outcome of its deliveries.
func (m *Metrics) MessageRelayed(kind string, delivered, failed int) {
	m.messages.WithLabelValues(kind).Inc()
	m.deliveries.Add(float64(delivered))
	m.sendFailures.Add(float64(failed))
}
