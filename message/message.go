// Package message defines the chat message and conversation context types
// shared by the thread engine and its callers.
package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the author of a chat message.
type Role string

// The closed set of message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Validate returns an error if the role is outside the closed enumeration.
// Role errors are programmer errors and should fail at construction time,
// not deep inside the store.
func (r Role) Validate() error {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("invalid message role: %q", string(r))
	}
}

// Part is one element of a message's content. Content is either plain text
// or an ordered sequence of typed parts, so multimodal turns can carry
// images alongside text.
type Part interface {
	// Kind returns the part's discriminator ("text" or "image").
	Kind() string
}

// TextPart is a plain text content part.
type TextPart struct {
	Text string `json:"text"`
}

// Kind implements Part.
func (TextPart) Kind() string { return "text" }

// ImagePart references an image by an opaque identifier (URL, data URI, or
// upload handle — the engine never dereferences it).
type ImagePart struct {
	ImageRef string `json:"image_ref"`
}

// Kind implements Part.
func (ImagePart) Kind() string { return "image" }

// ChatMessage is a single conversation turn. Role is immutable once created
// and Parts are never mutated in place: replace the message, don't edit it.
type ChatMessage struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewText builds a single-part text message for the given role.
func NewText(role Role, text string) ChatMessage {
	return ChatMessage{
		Role:  role,
		Parts: []Part{TextPart{Text: text}},
	}
}

// System builds a system-role text message.
func System(text string) ChatMessage { return NewText(RoleSystem, text) }

// User builds a user-role text message.
func User(text string) ChatMessage { return NewText(RoleUser, text) }

// Assistant builds an assistant-role text message.
func Assistant(text string) ChatMessage { return NewText(RoleAssistant, text) }

// Text concatenates the text parts of the message. Image parts are skipped.
func (m ChatMessage) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// Clone returns a copy with an independent parts slice. Parts themselves are
// value types, so a shallow slice copy is a full copy.
func (m ChatMessage) Clone() ChatMessage {
	out := ChatMessage{Role: m.Role}
	if m.Parts != nil {
		out.Parts = make([]Part, len(m.Parts))
		copy(out.Parts, m.Parts)
	}
	return out
}

// partEnvelope is the wire shape for a content part.
type partEnvelope struct {
	Kind     string `json:"kind"`
	Text     string `json:"text,omitempty"`
	ImageRef string `json:"image_ref,omitempty"`
}

// MarshalJSON encodes the message with a "kind" discriminator per part.
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	envelopes := make([]partEnvelope, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch v := p.(type) {
		case TextPart:
			envelopes = append(envelopes, partEnvelope{Kind: "text", Text: v.Text})
		case ImagePart:
			envelopes = append(envelopes, partEnvelope{Kind: "image", ImageRef: v.ImageRef})
		default:
			return nil, fmt.Errorf("unknown part kind: %T", p)
		}
	}
	return json.Marshal(struct {
		Role  Role           `json:"role"`
		Parts []partEnvelope `json:"parts"`
	}{Role: m.Role, Parts: envelopes})
}

// UnmarshalJSON decodes the discriminated part union.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role  Role           `json:"role"`
		Parts []partEnvelope `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := raw.Role.Validate(); err != nil {
		return err
	}
	m.Role = raw.Role
	m.Parts = make([]Part, 0, len(raw.Parts))
	for _, e := range raw.Parts {
		switch e.Kind {
		case "text":
			m.Parts = append(m.Parts, TextPart{Text: e.Text})
		case "image":
			m.Parts = append(m.Parts, ImagePart{ImageRef: e.ImageRef})
		default:
			return fmt.Errorf("unknown part kind: %q", e.Kind)
		}
	}
	return nil
}
