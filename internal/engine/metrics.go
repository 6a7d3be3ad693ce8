package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/refgraph/internal/model"
)

// Metrics holds the engine's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	operations      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	deleted         *prometheus.CounterVec
	failures        *prometheus.CounterVec
	purgedEdges     prometheus.Counter
	journalFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "refgraph_operations_total",
			Help: "Engine operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "refgraph_operation_duration_seconds",
			Help:    "Latency of engine operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		deleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "refgraph_cascade_deleted_total",
			Help: "Dependent records removed by account cascades.",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "refgraph_cascade_failures_total",
			Help: "Dependent records an account cascade failed to remove or update.",
		}, []string{"kind"}),
		purgedEdges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "refgraph_purged_edges_total",
			Help: "Subscription edges purged after the followed account was deleted.",
		}),
		journalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "refgraph_journal_failures_total",
			Help: "Journal appends that failed after the mutation committed.",
		}),
	}
	reg.MustRegister(
		m.operations,
		m.duration,
		m.deleted,
		m.failures,
		m.purgedEdges,
		m.journalFailures,
	)
	return m
}

func (m *Metrics) observe(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) cascadeDeleted(kind model.Kind) {
	if m == nil {
		return
	}
	m.deleted.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) cascadeFailure(kind model.Kind) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) edgePurged() {
	if m == nil {
		return
	}
	m.purgedEdges.Inc()
}

func (m *Metrics) journalFailure() {
	if m == nil {
		return
	}
	m.journalFailures.Inc()
}
