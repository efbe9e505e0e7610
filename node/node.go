package node

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/c360studio/threadflow/merge"
	"github.com/c360studio/threadflow/message"
	"github.com/c360studio/threadflow/thread"
)

// Node is one executable step in a workflow graph. Execute receives the
// contexts of its upstream nodes in declared connection order and emits the
// context downstream nodes will see.
type Node interface {
	ID() string
	Execute(ctx context.Context, upstreams []message.ConversationContext) (message.ConversationContext, error)
}

// EntryNode starts a fresh conversation: it creates a thread (the one place
// persona injection happens), appends the user prompt, and folds in the
// assistant reply.
type EntryNode struct {
	id      string
	persona string
	prompt  string
	mgr     *thread.Manager
	gen     Generator
	logger  *slog.Logger
}

// NewEntryNode creates an entry node.
func NewEntryNode(id, persona, prompt string, mgr *thread.Manager, gen Generator, logger *slog.Logger) *EntryNode {
	if logger == nil {
		logger = slog.Default()
	}
	return &EntryNode{id: id, persona: persona, prompt: prompt, mgr: mgr, gen: gen, logger: logger}
}

// ID implements Node.
func (n *EntryNode) ID() string { return n.id }

// Execute implements Node. The persona is folded into thread history by
// CreateThread, so systemPrompt is left empty here; sending it again would
// duplicate the brand voice.
func (n *EntryNode) Execute(ctx context.Context, _ []message.ConversationContext) (message.ConversationContext, error) {
	threadID := n.mgr.CreateThread(n.persona, n.prompt)

	conv, ok := n.mgr.GetThreadContext(threadID)
	if !ok {
		// Unreachable unless the thread was reset between the two calls.
		return message.ConversationContext{}, fmt.Errorf("node %s: thread %s vanished after creation", n.id, threadID)
	}

	reply, err := n.gen.Generate(ctx, n.prompt, "", conv)
	if err != nil {
		// The thread keeps the user turn; the failed AI turn simply never
		// lands, which needs no rollback.
		return message.ConversationContext{}, fmt.Errorf("node %s: generate: %w", n.id, err)
	}

	out, err := n.mgr.AppendMessage(threadID, message.Assistant(reply))
	if err != nil {
		return message.ConversationContext{}, fmt.Errorf("node %s: append reply: %w", n.id, err)
	}

	n.logger.Debug("Entry node completed", "node", n.id, "thread_id", out.ThreadID, "messages", len(out.Messages))
	return out, nil
}

// ContinuationNode appends a turn to an existing conversation. It resolves
// the thread through the merge engine, remembers its adoption across runs,
// and always calls the generator with an empty systemPrompt, relying on the
// system message already embedded in thread history.
type ContinuationNode struct {
	id     string
	prompt string
	mgr    *thread.Manager
	merger *merge.Engine
	gen    Generator
	logger *slog.Logger

	mu       sync.Mutex
	threadID string // adopted on first successful run
}

// NewContinuationNode creates a continuation node.
func NewContinuationNode(id, prompt string, mgr *thread.Manager, merger *merge.Engine, gen Generator, logger *slog.Logger) *ContinuationNode {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContinuationNode{id: id, prompt: prompt, mgr: mgr, merger: merger, gen: gen, logger: logger}
}

// ID implements Node.
func (n *ContinuationNode) ID() string { return n.id }

// AdoptedThreadID returns the thread id this node resolved on its last run,
// or empty if it has not run yet.
func (n *ContinuationNode) AdoptedThreadID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.threadID
}

// Execute implements Node. The node consumes the merged upstream view (all
// upstream histories in declared order), appends its own user turn and the
// assistant reply to the authoritative thread, and re-emits the merged view
// extended with those two turns.
func (n *ContinuationNode) Execute(ctx context.Context, upstreams []message.ConversationContext) (message.ConversationContext, error) {
	merged := n.merger.Merge(n.AdoptedThreadID(), upstreams)

	var view message.ConversationContext

	if merged.ThreadID == "" {
		// No upstream or local thread: degrade to starting a fresh
		// conversation. No persona here; injection belongs to entry nodes.
		id := n.mgr.CreateThread("", n.prompt)
		view, _ = n.mgr.GetThreadContext(id)
		n.logger.Debug("Continuation node started fresh thread", "node", n.id, "thread_id", id)
	} else {
		// AppendMessage self-heals unknown ids; the returned context always
		// carries the authoritative thread id.
		appended, err := n.mgr.AppendMessage(merged.ThreadID, message.User(n.prompt))
		if err != nil {
			return message.ConversationContext{}, fmt.Errorf("node %s: append prompt: %w", n.id, err)
		}
		view = merged
		view.ThreadID = appended.ThreadID
		view.Messages = append(view.Messages, message.User(n.prompt))
		if view.SessionID == "" {
			view.SessionID = appended.SessionID
		}
	}

	n.adopt(view.ThreadID)

	reply, err := n.gen.Generate(ctx, n.prompt, "", view)
	if err != nil {
		return message.ConversationContext{}, fmt.Errorf("node %s: generate: %w", n.id, err)
	}

	if _, err := n.mgr.AppendMessage(view.ThreadID, message.Assistant(reply)); err != nil {
		return message.ConversationContext{}, fmt.Errorf("node %s: append reply: %w", n.id, err)
	}

	view.Messages = append(view.Messages, message.Assistant(reply))
	return view, nil
}

func (n *ContinuationNode) adopt(threadID string) {
	n.mu.Lock()
	n.threadID = threadID
	n.mu.Unlock()
}

// PassthroughNode forwards whatever context it receives unchanged, merging
// multiple upstreams without touching any thread. Display panels in the
// editor are pass-through nodes.
type PassthroughNode struct {
	id     string
	merger *merge.Engine
}

// NewPassthroughNode creates a pass-through node.
func NewPassthroughNode(id string, merger *merge.Engine) *PassthroughNode {
	return &PassthroughNode{id: id, merger: merger}
}

// ID implements Node.
func (n *PassthroughNode) ID() string { return n.id }

// Execute implements Node.
func (n *PassthroughNode) Execute(_ context.Context, upstreams []message.ConversationContext) (message.ConversationContext, error) {
	return n.merger.Merge("", upstreams), nil
}
