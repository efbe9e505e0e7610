// Package merge combines conversation contexts arriving from multiple
// upstream nodes into the single view a node consumes.
package merge

import (
	"context"
	"log/slog"

	"github.com/c360studio/threadflow/events"
	"github.com/c360studio/threadflow/message"
	"github.com/c360studio/threadflow/metrics"
)

// Engine merges upstream contexts and resolves thread identity. It is
// stateless between calls; logger, event tap, and metrics are optional.
type Engine struct {
	logger    *slog.Logger
	publisher events.Publisher
	metrics   *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithPublisher sets the diagnostic event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates a merge engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Merge combines zero or more upstream contexts, in the order the upstream
// connections were declared, into one context.
//
// Thread resolution: a currentThreadID already held by the consuming node
// wins; otherwise the first non-empty upstream id in declared order is
// adopted; otherwise the result carries no id and the thread is "to be
// created". Messages are concatenated in upstream arrival order, preserving
// each upstream's internal order — pure concatenation, never a reorder or
// dedup pass, so identical inputs always produce identical output.
//
// When upstreams carry multiple distinct ids, only the first identity
// survives. That history from the losing threads is still concatenated; the
// discarded identities are surfaced through the log, event tap, and metrics
// rather than silently dropped.
func (e *Engine) Merge(currentThreadID string, upstreams []message.ConversationContext) message.ConversationContext {
	merged := message.ConversationContext{ThreadID: currentThreadID}

	var distinct []string
	for _, up := range upstreams {
		if up.ThreadID == "" {
			continue
		}
		if !contains(distinct, up.ThreadID) {
			distinct = append(distinct, up.ThreadID)
		}
	}

	if merged.ThreadID == "" && len(distinct) > 0 {
		merged.ThreadID = distinct[0]
	}

	total := 0
	for _, up := range upstreams {
		total += len(up.Messages)
	}
	if total > 0 {
		merged.Messages = make([]message.ChatMessage, 0, total)
		for _, up := range upstreams {
			for _, m := range up.Messages {
				merged.Messages = append(merged.Messages, m.Clone())
			}
		}
	}

	// Adopt the first non-empty session id for analytics continuity.
	for _, up := range upstreams {
		if up.SessionID != "" {
			merged.SessionID = up.SessionID
			break
		}
	}

	e.metrics.IncContextsMerged()

	if discarded := discardedIDs(merged.ThreadID, distinct); len(discarded) > 0 {
		e.logger.Warn("Multiple upstream thread ids, keeping first",
			"resolved_thread_id", merged.ThreadID,
			"discarded_thread_ids", discarded)
		e.metrics.IncMergeAmbiguities()
		e.publishAmbiguity(merged, discarded)
	}

	return merged
}

// discardedIDs returns the upstream identities lost to first-wins
// resolution.
func discardedIDs(resolved string, distinct []string) []string {
	if len(distinct) == 0 {
		return nil
	}
	var out []string
	for _, id := range distinct {
		if id != resolved {
			out = append(out, id)
		}
	}
	return out
}

func (e *Engine) publishAmbiguity(merged message.ConversationContext, discarded []string) {
	if e.publisher == nil {
		return
	}

	ev := events.New(events.TypeMergeAmbiguous, merged.ThreadID)
	ev.SessionID = merged.SessionID
	ev.MessageCount = len(merged.Messages)
	ev.DiscardedThreadIDs = discarded

	if err := e.publisher.Publish(context.Background(), ev); err != nil {
		e.logger.Warn("Failed to publish merge event", "error", err)
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
