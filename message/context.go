package message

// ConversationContext is the snapshot of conversation state passed between
// workflow nodes. Messages are in conversation order; order is semantically
// significant and must survive every hop unchanged.
//
// ThreadID ties the context to an authoritative thread in the store. An
// empty ThreadID means no thread has been adopted yet. SessionID groups
// related threads for analytics and is not otherwise load-bearing.
type ConversationContext struct {
	Messages  []ChatMessage `json:"messages"`
	ThreadID  string        `json:"thread_id,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
}

// Clone returns a deep copy. Callers receive materialized copies from the
// store, never live references, so downstream mutation cannot corrupt
// authoritative history.
func (c ConversationContext) Clone() ConversationContext {
	out := ConversationContext{ThreadID: c.ThreadID, SessionID: c.SessionID}
	if c.Messages != nil {
		out.Messages = make([]ChatMessage, len(c.Messages))
		for i, m := range c.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	return out
}

// IsEmpty reports whether the context carries neither messages nor a thread.
func (c ConversationContext) IsEmpty() bool {
	return len(c.Messages) == 0 && c.ThreadID == ""
}
