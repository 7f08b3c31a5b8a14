// Package stream fans workspace change events out to websocket subscribers.
package stream

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricFeedConnections = "change_feed_connections"
	MetricFeedMessages    = "change_feed_messages_total"
)

// Message outcomes recorded in change_feed_messages_total.
const (
	OutcomeSent    = "sent"
	OutcomeDropped = "dropped"
	OutcomeFailed  = "failed"
)

// Metrics contains Prometheus metrics for the change feed.
// All operations are thread-safe.
type Metrics struct {
	connections prometheus.Gauge
	messages    *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricFeedConnections,
			Help: "Number of open change feed websocket connections",
		}),
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFeedMessages,
				Help: "Change events delivered to feed subscribers by outcome (sent, dropped, failed)",
			},
			[]string{"outcome"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// SetConnections sets the open connection gauge.
func (m *Metrics) SetConnections(n int) {
	m.connections.Set(float64(n))
}

// IncMessage counts one delivery attempt.
func (m *Metrics) IncMessage(outcome string) {
	m.messages.WithLabelValues(outcome).Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.connections,
		m.messages,
	}
}
