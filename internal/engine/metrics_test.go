package engine

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	return testutil.ToFloat64(c)
}

func TestMetrics_OperationOutcomes(t *testing.T) {
	e, m := newMeteredEngine(t)
	ctx := context.Background()

	a := mustAccount(t, e, "a")
	mustAccount(t, e, "b")
	_, err := e.GetAccount(ctx, "account-404")
	require.Error(t, err)
	_, err = e.Subscribe(ctx, a.ID, "account-404")
	require.Error(t, err)

	assert.Equal(t, 2.0, counterValue(t, m.operations.WithLabelValues(OpAccountCreate, "ok")))
	assert.Equal(t, 1.0, counterValue(t, m.operations.WithLabelValues(OpAccountGet, "NOT_FOUND")))
	assert.Equal(t, 1.0, counterValue(t, m.operations.WithLabelValues(OpAccountSubscribe, "INVALID_REFERENCE")))
}

func TestMetrics_CascadeCounters(t *testing.T) {
	e, m := newMeteredEngine(t)
	ctx := context.Background()

	a := mustAccount(t, e, "a")
	b := mustAccount(t, e, "b")
	c := mustAccount(t, e, "c")
	mustPost(t, e, a.ID, "one")
	mustPost(t, e, a.ID, "two")
	mustProfile(t, e, a.ID)
	mustSubscribe(t, e, b.ID, a.ID)
	mustSubscribe(t, e, c.ID, a.ID)

	_, err := e.DeleteAccount(ctx, a.ID)
	require.NoError(t, err)

	assert.Equal(t, 2.0, counterValue(t, m.deleted.WithLabelValues("post")))
	assert.Equal(t, 1.0, counterValue(t, m.deleted.WithLabelValues("profile")))
	assert.Equal(t, 2.0, counterValue(t, m.purgedEdges))
	assert.Equal(t, 0.0, counterValue(t, m.failures.WithLabelValues("post")))
}

func TestMetrics_Registration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	assert.Panics(t, func() { NewMetrics(reg) }, "duplicate registration must fail loudly")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observe(OpAccountCreate, "ok", 0)
		m.cascadeDeleted("post")
		m.cascadeFailure("post")
		m.edgePurged()
		m.journalFailure()
	})
}
