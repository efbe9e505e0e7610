package thread

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/threadflow/message"
)

func turns(n int) []message.ChatMessage {
	msgs := make([]message.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			msgs = append(msgs, message.User(fmt.Sprintf("u%d", i)))
		} else {
			msgs = append(msgs, message.Assistant(fmt.Sprintf("a%d", i)))
		}
	}
	return msgs
}

func TestWindowMessages(t *testing.T) {
	t.Run("under cap unchanged", func(t *testing.T) {
		msgs := turns(5)
		out, evicted := windowMessages(msgs, 10)
		assert.Equal(t, msgs, out)
		assert.Zero(t, evicted)
	})

	t.Run("at cap unchanged", func(t *testing.T) {
		msgs := turns(10)
		out, evicted := windowMessages(msgs, 10)
		assert.Len(t, out, 10)
		assert.Zero(t, evicted)
	})

	t.Run("zero cap disables windowing", func(t *testing.T) {
		msgs := turns(50)
		out, evicted := windowMessages(msgs, 0)
		assert.Len(t, out, 50)
		assert.Zero(t, evicted)
	})

	t.Run("sliding window without persona", func(t *testing.T) {
		msgs := turns(10)
		out, evicted := windowMessages(msgs, 4)

		require.Len(t, out, 4)
		assert.Equal(t, 6, evicted)
		// Most recent 4 survive.
		assert.Equal(t, "u6", out[0].Text())
		assert.Equal(t, "a9", out[3].Text())
	})

	t.Run("persona pinned under truncation", func(t *testing.T) {
		msgs := append([]message.ChatMessage{message.System("Be concise.")}, turns(10)...)
		out, evicted := windowMessages(msgs, 4)

		require.Len(t, out, 4)
		assert.Equal(t, 7, evicted)
		assert.Equal(t, message.RoleSystem, out[0].Role)
		assert.Equal(t, "Be concise.", out[0].Text())
		// Remaining slots hold the most recent non-system messages.
		assert.Equal(t, "u8", out[1].Text())
		assert.Equal(t, "a9", out[3].Text())
	})

	t.Run("input slice is not mutated", func(t *testing.T) {
		msgs := append([]message.ChatMessage{message.System("P")}, turns(6)...)
		_, _ = windowMessages(msgs, 3)

		assert.Equal(t, "P", msgs[0].Text())
		assert.Len(t, msgs, 7)
	})

	t.Run("repeated application is stable", func(t *testing.T) {
		msgs := append([]message.ChatMessage{message.System("P")}, turns(10)...)
		once, _ := windowMessages(msgs, 5)
		twice, evicted := windowMessages(once, 5)

		assert.Equal(t, once, twice)
		assert.Zero(t, evicted)
	})
}
