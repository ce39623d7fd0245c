package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes store activity as Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	queries       *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	invalidations prometheus.Counter
	mutations     *prometheus.CounterVec
	entries       prometheus.Gauge
}

// NewMetrics registers the store collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "postboard_cache_queries_total",
			Help: "Cache queries by the state they found (fresh, stale, miss).",
		}, []string{"result"}),
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "postboard_cache_fetches_total",
			Help: "Completed fetches by outcome.",
		}, []string{"outcome"}),
		invalidations: f.NewCounter(prometheus.CounterOpts{
			Name: "postboard_cache_invalidations_total",
			Help: "Entries marked stale by invalidation.",
		}),
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "postboard_cache_mutations_total",
			Help: "Mutations by outcome.",
		}, []string{"outcome"}),
		entries: f.NewGauge(prometheus.GaugeOpts{
			Name: "postboard_cache_entries",
			Help: "Number of entries held by the store.",
		}),
	}
}

func (m *Metrics) query(result string) {
	if m != nil {
		m.queries.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) fetch(err error) {
	if m != nil {
		m.fetches.WithLabelValues(outcome(err)).Inc()
	}
}

func (m *Metrics) invalidated(n int) {
	if m != nil && n > 0 {
		m.invalidations.Add(float64(n))
	}
}

func (m *Metrics) mutation(err error) {
	if m != nil {
		m.mutations.WithLabelValues(outcome(err)).Inc()
	}
}

func (m *Metrics) setEntries(n int) {
	if m != nil {
		m.entries.Set(float64(n))
	}
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
