package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleValidate(t *testing.T) {
	tests := []struct {
		role    Role
		wantErr bool
	}{
		{RoleSystem, false},
		{RoleUser, false},
		{RoleAssistant, false},
		{Role("tool"), true},
		{Role(""), true},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			err := tt.role.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChatMessageText(t *testing.T) {
	t.Run("single text part", func(t *testing.T) {
		m := User("hello")
		assert.Equal(t, "hello", m.Text())
	})

	t.Run("image parts are skipped", func(t *testing.T) {
		m := ChatMessage{
			Role: RoleUser,
			Parts: []Part{
				TextPart{Text: "look at "},
				ImagePart{ImageRef: "upload://123"},
				TextPart{Text: "this"},
			},
		}
		assert.Equal(t, "look at this", m.Text())
	})
}

func TestChatMessageClone(t *testing.T) {
	orig := ChatMessage{
		Role:  RoleUser,
		Parts: []Part{TextPart{Text: "a"}, ImagePart{ImageRef: "ref"}},
	}

	clone := orig.Clone()
	clone.Parts[0] = TextPart{Text: "mutated"}

	assert.Equal(t, "a", orig.Parts[0].(TextPart).Text)
	assert.Equal(t, orig.Role, clone.Role)
}

func TestChatMessageJSONRoundTrip(t *testing.T) {
	orig := ChatMessage{
		Role: RoleAssistant,
		Parts: []Part{
			TextPart{Text: "here is the chart"},
			ImagePart{ImageRef: "https://example.com/chart.png"},
		},
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var decoded ChatMessage
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Len(t, decoded.Parts, 2)
	assert.Equal(t, RoleAssistant, decoded.Role)
	assert.Equal(t, TextPart{Text: "here is the chart"}, decoded.Parts[0])
	assert.Equal(t, ImagePart{ImageRef: "https://example.com/chart.png"}, decoded.Parts[1])
}

func TestChatMessageUnmarshalRejectsBadInput(t *testing.T) {
	t.Run("unknown role", func(t *testing.T) {
		var m ChatMessage
		err := json.Unmarshal([]byte(`{"role":"tool","parts":[]}`), &m)
		assert.Error(t, err)
	})

	t.Run("unknown part kind", func(t *testing.T) {
		var m ChatMessage
		err := json.Unmarshal([]byte(`{"role":"user","parts":[{"kind":"audio"}]}`), &m)
		assert.Error(t, err)
	})
}

func TestConversationContextClone(t *testing.T) {
	orig := ConversationContext{
		Messages:  []ChatMessage{User("hi"), Assistant("hello")},
		ThreadID:  "t-1",
		SessionID: "s-1",
	}

	clone := orig.Clone()
	clone.Messages[0] = User("changed")
	clone.ThreadID = "t-2"

	assert.Equal(t, "hi", orig.Messages[0].Text())
	assert.Equal(t, "t-1", orig.ThreadID)
	assert.Equal(t, "s-1", clone.SessionID)
}

func TestConversationContextIsEmpty(t *testing.T) {
	assert.True(t, ConversationContext{}.IsEmpty())
	assert.False(t, ConversationContext{ThreadID: "t-1"}.IsEmpty())
	assert.False(t, ConversationContext{Messages: []ChatMessage{User("x")}}.IsEmpty())
}
