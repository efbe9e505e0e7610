// Package thread owns the authoritative conversation threads of the engine:
// keyed storage, the windowing policy that bounds them, persona injection at
// creation, and the Manager that external callers use.
package thread

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/threadflow/message"
)

// Thread is the authoritative record of one conversation. It is owned
// exclusively by the Store; callers only ever see copies.
type Thread struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`

	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`

	// Messages is the source of truth. Contexts returned to callers are
	// always derived from this slice, never the other way around.
	Messages []message.ChatMessage `json:"messages"`

	// BrandVoiceInjected is set exactly once at creation and never toggled.
	BrandVoiceInjected bool `json:"brand_voice_injected"`
}

// Clone returns a deep copy safe to hand outside the store.
func (t *Thread) Clone() *Thread {
	out := &Thread{
		ID:                 t.ID,
		SessionID:          t.SessionID,
		CreatedAt:          t.CreatedAt,
		LastMessageAt:      t.LastMessageAt,
		BrandVoiceInjected: t.BrandVoiceInjected,
	}
	if t.Messages != nil {
		out.Messages = make([]message.ChatMessage, len(t.Messages))
		for i, m := range t.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	return out
}

// Context materializes the conversation context callers receive.
func (t *Thread) Context() message.ConversationContext {
	conv := message.ConversationContext{
		ThreadID:  t.ID,
		SessionID: t.SessionID,
	}
	if t.Messages != nil {
		conv.Messages = make([]message.ChatMessage, len(t.Messages))
		for i, m := range t.Messages {
			conv.Messages[i] = m.Clone()
		}
	}
	return conv
}

// newThreadID generates a unique thread id. The timestamp prefix keeps ids
// roughly sortable in logs; the uuid suffix guarantees uniqueness.
func newThreadID() string {
	return fmt.Sprintf("t-%d-%s", time.Now().UnixMilli(), uuid.New().String()[:8])
}

// NewSessionID generates a session grouping identifier.
func NewSessionID() string {
	return fmt.Sprintf("s-%s", uuid.New().String())
}
