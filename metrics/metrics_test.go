package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncThreadsCreated()
	m.IncMessagesAppended()
	m.AddWindowEvictions(3)
	m.IncSelfHeals()
	m.IncMergeAmbiguities()
	m.IncContextsMerged()
	m.AddThreadsReset(2)
	m.ObserveThreadCount(5)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ThreadsCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.MessagesAppended))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.WindowEvictions))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SelfHeals))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.MergeAmbiguities))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ContextsMerged))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ThreadsReset))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.ThreadsActive))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	// Every helper must be a no-op on nil, not a panic.
	m.IncThreadsCreated()
	m.IncMessagesAppended()
	m.AddWindowEvictions(1)
	m.IncSelfHeals()
	m.IncMergeAmbiguities()
	m.IncContextsMerged()
	m.AddThreadsReset(1)
	m.ObserveThreadCount(1)
}

func TestNegativeAddsIgnored(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.AddWindowEvictions(-1)
	m.AddThreadsReset(0)

	assert.Equal(t, float64(0), testutil.ToFloat64(m.WindowEvictions))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ThreadsReset))
}
