package region

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricMutations         = "region_mutations_total"
	MetricHistoryReplays    = "region_history_replays_total"
	MetricContainmentChecks = "region_containment_checks_total"
	MetricRegions           = "regions"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
)

// Metrics contains Prometheus metrics for region mutations and queries.
// All operations are thread-safe.
type Metrics struct {
	mutations         *prometheus.CounterVec
	historyReplays    *prometheus.CounterVec
	containmentChecks *prometheus.CounterVec
	regions           prometheus.Gauge
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricMutations,
			Help: "Total number of region mutations by operation and outcome",
		}, []string{"op", "outcome"}),
		historyReplays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricHistoryReplays,
			Help: "Total number of applied undo and redo steps",
		}, []string{"direction"}),
		containmentChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricContainmentChecks,
			Help: "Total number of point containment checks by shape type and result",
		}, []string{"type", "inside"}),
		regions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricRegions,
			Help: "Current number of regions in the workspace",
		}),
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

// IncMutation counts a mutation attempt.
func (m *Metrics) IncMutation(op Op, outcome string) {
	m.mutations.WithLabelValues(string(op), outcome).Inc()
}

// IncHistoryReplay counts an applied undo ("undo") or redo ("redo").
func (m *Metrics) IncHistoryReplay(direction string) {
	m.historyReplays.WithLabelValues(direction).Inc()
}

// IncContainmentCheck counts a containment test.
func (m *Metrics) IncContainmentCheck(kind string, inside bool) {
	v := "false"
	if inside {
		v = "true"
	}
	m.containmentChecks.WithLabelValues(kind, v).Inc()
}

// SetRegions records the current region count.
func (m *Metrics) SetRegions(n int) {
	m.regions.Set(float64(n))
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.mutations,
		m.historyReplays,
		m.containmentChecks,
		m.regions,
	}
}
