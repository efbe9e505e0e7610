package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/threadflow/merge"
	"github.com/c360studio/threadflow/message"
	"github.com/c360studio/threadflow/thread"
)

func newHarness() (*thread.Manager, *merge.Engine) {
	return thread.NewManager(thread.NewStore(thread.DefaultWindowCap)), merge.NewEngine()
}

func TestEntryNode(t *testing.T) {
	mgr, _ := newHarness()
	gen := NewScriptedGenerator("Hi there!")

	n := NewEntryNode("entry", "Be concise.", "Hello", mgr, gen, nil)
	out, err := n.Execute(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, out.Messages, 3)
	assert.Equal(t, message.RoleSystem, out.Messages[0].Role)
	assert.Equal(t, "Hello", out.Messages[1].Text())
	assert.Equal(t, "Hi there!", out.Messages[2].Text())
	assert.NotEmpty(t, out.ThreadID)
	assert.True(t, mgr.HasBrandVoiceInjected(out.ThreadID))

	// The persona is already folded into history; it must not be sent as a
	// system prompt on top.
	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].SystemPrompt)
}

func TestContinuationNodeFollowsUpstreamThread(t *testing.T) {
	mgr, merger := newHarness()
	gen := NewScriptedGenerator("entry reply", "continuation reply")

	entry := NewEntryNode("entry", "Be concise.", "Hello", mgr, gen, nil)
	upstream, err := entry.Execute(context.Background(), nil)
	require.NoError(t, err)

	cont := NewContinuationNode("cont", "Tell me more", mgr, merger, gen, nil)
	out, err := cont.Execute(context.Background(), []message.ConversationContext{upstream})
	require.NoError(t, err)

	assert.Equal(t, upstream.ThreadID, out.ThreadID)
	assert.Equal(t, upstream.ThreadID, cont.AdoptedThreadID())
	require.Len(t, out.Messages, 5)
	assert.Equal(t, "continuation reply", out.Messages[4].Text())

	// Continuation turns never re-send a system prompt.
	for _, call := range gen.Calls() {
		assert.Empty(t, call.SystemPrompt)
	}
	// Exactly one system message in the final thread.
	systems := 0
	for _, m := range out.Messages {
		if m.Role == message.RoleSystem {
			systems++
		}
	}
	assert.Equal(t, 1, systems)
}

func TestContinuationNodeKeepsAdoptedThread(t *testing.T) {
	mgr, merger := newHarness()
	gen := NewScriptedGenerator()

	entryA := NewEntryNode("a", "", "from A", mgr, gen, nil)
	upA, err := entryA.Execute(context.Background(), nil)
	require.NoError(t, err)

	cont := NewContinuationNode("cont", "turn", mgr, merger, gen, nil)
	first, err := cont.Execute(context.Background(), []message.ConversationContext{upA})
	require.NoError(t, err)

	// A later run with a different upstream thread keeps the adoption.
	entryB := NewEntryNode("b", "", "from B", mgr, gen, nil)
	upB, err := entryB.Execute(context.Background(), nil)
	require.NoError(t, err)

	second, err := cont.Execute(context.Background(), []message.ConversationContext{upB})
	require.NoError(t, err)
	assert.Equal(t, first.ThreadID, second.ThreadID)
}

func TestContinuationNodeWithoutUpstreamThread(t *testing.T) {
	mgr, merger := newHarness()
	gen := NewScriptedGenerator("fresh reply")

	cont := NewContinuationNode("cont", "Hello?", mgr, merger, gen, nil)
	out, err := cont.Execute(context.Background(), nil)
	require.NoError(t, err)

	require.NotEmpty(t, out.ThreadID)
	require.Len(t, out.Messages, 2)
	assert.Equal(t, "Hello?", out.Messages[0].Text())
	assert.Equal(t, "fresh reply", out.Messages[1].Text())
	assert.False(t, mgr.HasBrandVoiceInjected(out.ThreadID))
}

func TestContinuationNodeSelfHealsStaleThread(t *testing.T) {
	mgr, merger := newHarness()
	gen := NewScriptedGenerator()

	stale := message.ConversationContext{ThreadID: "t-gone", Messages: []message.ChatMessage{message.User("old")}}

	cont := NewContinuationNode("cont", "still there?", mgr, merger, gen, nil)
	out, err := cont.Execute(context.Background(), []message.ConversationContext{stale})
	require.NoError(t, err)

	assert.NotEqual(t, "t-gone", out.ThreadID)
	assert.NotEmpty(t, out.ThreadID)
	assert.Equal(t, out.ThreadID, cont.AdoptedThreadID())
}

func TestPassthroughNode(t *testing.T) {
	// P5: pass-through preserves the thread id exactly, through any number
	// of hops.
	_, merger := newHarness()

	src := message.ConversationContext{
		ThreadID:  "t-src",
		SessionID: "s-1",
		Messages:  []message.ChatMessage{message.User("hi")},
	}

	conv := src
	for i := 0; i < 5; i++ {
		n := NewPassthroughNode("p", merger)
		out, err := n.Execute(context.Background(), []message.ConversationContext{conv})
		require.NoError(t, err)
		conv = out
	}

	assert.Equal(t, "t-src", conv.ThreadID)
	assert.Equal(t, "s-1", conv.SessionID)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "hi", conv.Messages[0].Text())
}

func TestTwoEntryFanInScenario(t *testing.T) {
	// Two entry threads of 2 messages each feed a continuation node: 4
	// merged messages plus the node's own two turns, thread id resolved to
	// the first upstream in declared order.
	mgr, merger := newHarness()
	gen := NewScriptedGenerator("ra", "rb", "merged reply")

	entryA := NewEntryNode("a", "", "hello A", mgr, gen, nil)
	upA, err := entryA.Execute(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, upA.Messages, 2)

	entryB := NewEntryNode("b", "", "hello B", mgr, gen, nil)
	upB, err := entryB.Execute(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, upB.Messages, 2)

	cont := NewContinuationNode("fanin", "combine", mgr, merger, gen, nil)
	out, err := cont.Execute(context.Background(), []message.ConversationContext{upA, upB})
	require.NoError(t, err)

	// Resolved to A's thread; the emitted view is both histories plus the
	// node's own two turns.
	assert.Equal(t, upA.ThreadID, out.ThreadID)
	require.Len(t, out.Messages, 6)
	assert.Equal(t, "hello A", out.Messages[0].Text())
	assert.Equal(t, "hello B", out.Messages[2].Text())
	assert.Equal(t, "combine", out.Messages[4].Text())
	assert.Equal(t, "merged reply", out.Messages[5].Text())

	// The authoritative thread only gained the node's own turns.
	authoritative, ok := mgr.GetThreadContext(upA.ThreadID)
	require.True(t, ok)
	assert.Len(t, authoritative.Messages, 4)
}
