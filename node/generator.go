// Package node implements the workflow-side callers of the thread engine:
// entry, continuation, and pass-through nodes, plus a small runner that
// executes a node graph. The AI provider itself stays behind the Generator
// interface; this package only enforces the engine's calling contract.
package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/c360studio/threadflow/message"
)

// Generator is the opaque AI call capability. systemPrompt must be empty
// whenever the conversation already has a thread: the persona lives in the
// thread history and must never be sent twice.
type Generator interface {
	Generate(ctx context.Context, prompt, systemPrompt string, conv message.ConversationContext) (string, error)
}

// GeneratorCall records one Generate invocation for inspection in tests.
type GeneratorCall struct {
	Prompt       string
	SystemPrompt string
	ThreadID     string
	MessageCount int
}

// ScriptedGenerator returns canned replies in order. Once the script is
// exhausted it echoes the prompt, so demo workflows never fail on length.
type ScriptedGenerator struct {
	mu      sync.Mutex
	replies []string
	next    int
	calls   []GeneratorCall
}

// NewScriptedGenerator creates a generator with the given reply script.
func NewScriptedGenerator(replies ...string) *ScriptedGenerator {
	return &ScriptedGenerator{replies: replies}
}

// Generate implements Generator.
func (g *ScriptedGenerator) Generate(_ context.Context, prompt, systemPrompt string, conv message.ConversationContext) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, GeneratorCall{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		ThreadID:     conv.ThreadID,
		MessageCount: len(conv.Messages),
	})

	if g.next < len(g.replies) {
		reply := g.replies[g.next]
		g.next++
		return reply, nil
	}
	return fmt.Sprintf("echo: %s", prompt), nil
}

// Calls returns a snapshot of all recorded invocations.
func (g *ScriptedGenerator) Calls() []GeneratorCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]GeneratorCall, len(g.calls))
	copy(out, g.calls)
	return out
}
