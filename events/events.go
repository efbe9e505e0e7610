// Package events provides an optional diagnostic event tap for the thread
// engine. The engine is fully in-process; publishing is a side channel for
// observability, never part of the engine's API contract. All publishers
// degrade gracefully: a nil or failing publisher never affects engine state.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/threadflow/message"
)

// Type identifies a lifecycle or diagnostic event.
type Type string

// The engine's event types.
const (
	TypeThreadCreated  Type = "thread.created"
	TypeThreadAppended Type = "thread.appended"
	TypeThreadSelfHeal Type = "thread.selfhealed"
	TypeThreadReset    Type = "thread.reset"
	TypeThreadsCleared Type = "threads.cleared"
	TypeMergeAmbiguous Type = "merge.ambiguous"
)

// Event is the wire shape published to the event tap.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	ThreadID  string    `json:"thread_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// MessageCount is the thread length after the operation, when relevant.
	MessageCount int `json:"message_count,omitempty"`

	// Preview is a short rendering of the most recent textual turn.
	Preview string `json:"preview,omitempty"`

	// DiscardedThreadIDs lists upstream thread ids whose identity was
	// discarded by first-wins resolution (merge.ambiguous only).
	DiscardedThreadIDs []string `json:"discarded_thread_ids,omitempty"`
}

// New builds an event with a fresh id and the current time.
func New(t Type, threadID string) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      t,
		ThreadID:  threadID,
		Timestamp: time.Now(),
	}
}

// Publisher delivers engine events to an external sink.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Summary returns a short, log-friendly rendering of a context for event
// payloads, capped to avoid shipping full conversation bodies. The cap is
// applied per rune so multi-byte text is never cut mid-sequence.
func Summary(conv message.ConversationContext) string {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if text := conv.Messages[i].Text(); text != "" {
			if r := []rune(text); len(r) > 120 {
				return string(r[:120]) + "…"
			}
			return text
		}
	}
	return ""
}
