package thread

import "github.com/c360studio/threadflow/message"

// windowMessages bounds a message list to cap entries, keeping the most
// recent messages. If the first message is the injected persona (role
// system) and naive truncation would drop it, it is re-prepended and the
// cap-1 most recent non-system messages are kept instead: the persona must
// never be silently lost mid-conversation, even under heavy windowing
// pressure.
//
// It returns the bounded slice and the number of messages evicted. A cap of
// zero or less disables windowing. Pure function: the input slice is not
// mutated.
func windowMessages(msgs []message.ChatMessage, limit int) ([]message.ChatMessage, int) {
	if limit <= 0 || len(msgs) <= limit {
		return msgs, 0
	}

	evicted := len(msgs) - limit

	if msgs[0].Role != message.RoleSystem {
		// Plain sliding window from the front.
		out := make([]message.ChatMessage, limit)
		copy(out, msgs[evicted:])
		return out, evicted
	}

	// Persona special case: keep the system message pinned at index 0 and
	// fill the remaining cap-1 slots with the most recent non-system
	// messages.
	out := make([]message.ChatMessage, 0, limit)
	out = append(out, msgs[0])
	tail := msgs[1:]
	if keep := limit - 1; len(tail) > keep {
		tail = tail[len(tail)-keep:]
	}
	out = append(out, tail...)
	return out, len(msgs) - len(out)
}
