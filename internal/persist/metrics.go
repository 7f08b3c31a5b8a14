package persist

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricSaves        = "persist_saves_total"
	MetricSaveDuration = "persist_save_duration_seconds"
	MetricLoads        = "persist_loads_total"
)

// Metrics contains Prometheus metrics for state persistence.
// All operations are thread-safe.
type Metrics struct {
	saves        *prometheus.CounterVec
	saveDuration prometheus.Histogram
	loads        *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSaves,
			Help: "Total number of workspace saves by backend and outcome",
		}, []string{"backend", "outcome"}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricSaveDuration,
			Help:    "Histogram of workspace save duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricLoads,
			Help: "Total number of workspace loads by backend and outcome",
		}, []string{"backend", "outcome"}),
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

// ObserveSave records a save attempt.
func (m *Metrics) ObserveSave(backend string, seconds float64, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.saves.WithLabelValues(backend, outcome).Inc()
	m.saveDuration.Observe(seconds)
}

// IncLoad records a load attempt. outcome is "found", "empty" or "failure".
func (m *Metrics) IncLoad(backend, outcome string) {
	m.loads.WithLabelValues(backend, outcome).Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.saves,
		m.saveDuration,
		m.loads,
	}
}
