// Package metrics exposes Prometheus instrumentation for the thread engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and disables instrumentation, so components can take it optionally.
type Metrics struct {
	ThreadsActive      prometheus.Gauge
	ThreadsCreated     prometheus.Counter
	MessagesAppended   prometheus.Counter
	WindowEvictions    prometheus.Counter
	SelfHeals          prometheus.Counter
	MergeAmbiguities   prometheus.Counter
	ContextsMerged     prometheus.Counter
	ThreadsReset       prometheus.Counter
}

// New creates the engine collectors and registers them on reg. Pass a
// dedicated registry in tests to keep them isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ThreadsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "threadflow_threads_active",
			Help: "Number of threads currently held by the store.",
		}),
		ThreadsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "threadflow_threads_created_total",
			Help: "Threads created, including self-healed recreations.",
		}),
		MessagesAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "threadflow_messages_appended_total",
			Help: "Messages appended to threads.",
		}),
		WindowEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "threadflow_window_evictions_total",
			Help: "Messages evicted by the windowing policy.",
		}),
		SelfHeals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "threadflow_self_heals_total",
			Help: "Appends against unknown thread ids recovered by creating a fresh thread.",
		}),
		MergeAmbiguities: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "threadflow_merge_ambiguities_total",
			Help: "Merges that saw multiple distinct upstream thread ids.",
		}),
		ContextsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "threadflow_contexts_merged_total",
			Help: "Context merge operations performed.",
		}),
		ThreadsReset: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "threadflow_threads_reset_total",
			Help: "Threads removed via reset or clear.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ThreadsActive,
			m.ThreadsCreated,
			m.MessagesAppended,
			m.WindowEvictions,
			m.SelfHeals,
			m.MergeAmbiguities,
			m.ContextsMerged,
			m.ThreadsReset,
		)
	}

	return m
}

// ObserveThreadCount sets the active-thread gauge. No-op on a nil receiver.
func (m *Metrics) ObserveThreadCount(n int) {
	if m == nil {
		return
	}
	m.ThreadsActive.Set(float64(n))
}

// IncThreadsCreated increments the creation counter. No-op on nil.
func (m *Metrics) IncThreadsCreated() {
	if m == nil {
		return
	}
	m.ThreadsCreated.Inc()
}

// IncMessagesAppended increments the append counter. No-op on nil.
func (m *Metrics) IncMessagesAppended() {
	if m == nil {
		return
	}
	m.MessagesAppended.Inc()
}

// AddWindowEvictions adds n to the eviction counter. No-op on nil.
func (m *Metrics) AddWindowEvictions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.WindowEvictions.Add(float64(n))
}

// IncSelfHeals increments the self-heal counter. No-op on nil.
func (m *Metrics) IncSelfHeals() {
	if m == nil {
		return
	}
	m.SelfHeals.Inc()
}

// IncMergeAmbiguities increments the ambiguity counter. No-op on nil.
func (m *Metrics) IncMergeAmbiguities() {
	if m == nil {
		return
	}
	m.MergeAmbiguities.Inc()
}

// IncContextsMerged increments the merge counter. No-op on nil.
func (m *Metrics) IncContextsMerged() {
	if m == nil {
		return
	}
	m.ContextsMerged.Inc()
}

// AddThreadsReset adds n to the reset counter. No-op on nil.
func (m *Metrics) AddThreadsReset(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ThreadsReset.Add(float64(n))
}
