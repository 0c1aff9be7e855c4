package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricRecomputeTotal         = "scoring_recompute_total"
	MetricRecomputeErrors        = "scoring_recompute_errors_total"
	MetricRecomputeDuration      = "scoring_recompute_duration_seconds"
	MetricLastRecomputeTimestamp = "scoring_last_recompute_timestamp"
	MetricLastRecomputeUpdated   = "scoring_last_recompute_updated_count"
)

// Metrics contains Prometheus metrics for scoring recompute runs, labeled
// by entry point. All operations are thread-safe.
type Metrics struct {
	recomputeTotal         *prometheus.CounterVec
	recomputeErrors        *prometheus.CounterVec
	recomputeDuration      *prometheus.HistogramVec
	lastRecomputeTimestamp *prometheus.GaugeVec
	lastRecomputeUpdated   *prometheus.GaugeVec
}

// NewMetrics creates and returns a new Metrics instance with all
// collectors initialized. The metrics are not registered; call Register
// to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		recomputeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRecomputeTotal,
			Help: "Total number of scoring recompute runs by entry point",
		}, []string{"entry_point"}),
		recomputeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRecomputeErrors,
			Help: "Total number of scoring recompute errors by entry point",
		}, []string{"entry_point"}),
		recomputeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRecomputeDuration,
			Help:    "Histogram of scoring recompute duration in seconds by entry point",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		}, []string{"entry_point"}),
		lastRecomputeTimestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricLastRecomputeTimestamp,
			Help: "Unix timestamp of the last scoring recompute by entry point",
		}, []string{"entry_point"}),
		lastRecomputeUpdated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricLastRecomputeUpdated,
			Help: "Number of items updated in the last scoring recompute by entry point",
		}, []string{"entry_point"}),
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

// IncRecomputeTotal increments the recompute run counter for an entry point.
func (m *Metrics) IncRecomputeTotal(entryPoint string) {
	m.recomputeTotal.WithLabelValues(entryPoint).Inc()
}

// IncRecomputeErrors increments the recompute error counter for an entry point.
func (m *Metrics) IncRecomputeErrors(entryPoint string) {
	m.recomputeErrors.WithLabelValues(entryPoint).Inc()
}

// ObserveRecomputeDuration records a recompute duration sample.
func (m *Metrics) ObserveRecomputeDuration(entryPoint string, seconds float64) {
	m.recomputeDuration.WithLabelValues(entryPoint).Observe(seconds)
}

// SetLastRecompute records the completion timestamp and updated count of
// the latest run for an entry point.
func (m *Metrics) SetLastRecompute(entryPoint string, timestamp float64, updated float64) {
	m.lastRecomputeTimestamp.WithLabelValues(entryPoint).Set(timestamp)
	m.lastRecomputeUpdated.WithLabelValues(entryPoint).Set(updated)
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.recomputeTotal,
		m.recomputeErrors,
		m.recomputeDuration,
		m.lastRecomputeTimestamp,
		m.lastRecomputeUpdated,
	}
}
