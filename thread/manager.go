package thread

import (
	"context"
	"log/slog"

	"github.com/c360studio/threadflow/events"
	"github.com/c360studio/threadflow/message"
	"github.com/c360studio/threadflow/metrics"
)

// Manager is the engine's public API surface. Node execution handlers use it
// to create threads, append turns, and materialize contexts; it composes the
// Store, the persona injector, and the windowing policy (applied inside the
// store on every append).
//
// Per-thread lifecycle: a thread exists from CreateThread until ResetThread
// or ClearAllThreads. BrandVoiceInjected is fixed at creation and never
// changes afterwards.
type Manager struct {
	store     *Store
	sessionID string
	logger    *slog.Logger
	publisher events.Publisher
	metrics   *metrics.Metrics
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithPublisher sets the diagnostic event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(m *Manager) {
		m.publisher = p
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mx
	}
}

// WithSessionID pins the session identifier instead of generating one.
func WithSessionID(id string) Option {
	return func(m *Manager) {
		m.sessionID = id
	}
}

// NewManager creates a Manager over the given store. The store is injected
// so tests can run against isolated instances.
func NewManager(store *Store, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		sessionID: NewSessionID(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// SessionID returns the session identifier assigned to threads created by
// this manager.
func (m *Manager) SessionID() string {
	return m.sessionID
}

// ThreadCount returns the number of threads currently held. There is no
// expiry, so this only shrinks through ResetThread or ClearAllThreads.
func (m *Manager) ThreadCount() int {
	return m.store.Len()
}

// CreateThread creates a new thread, running persona injection exactly once.
// A non-empty persona becomes the thread's first (system) message; an empty
// or whitespace persona is not an error and simply yields no system message.
// A non-empty initialUserMessage is appended as the first user turn. Always
// succeeds and returns the new thread id.
func (m *Manager) CreateThread(persona, initialUserMessage string) string {
	initial, injected := injectPersona(persona)
	if initialUserMessage != "" {
		initial = append(initial, message.User(initialUserMessage))
	}

	return m.createThread(initial, injected)
}

// CreateThreadWithMessage is CreateThread for non-text first turns, e.g. a
// message carrying image parts. The message is appended after the persona's
// system message.
func (m *Manager) CreateThreadWithMessage(persona string, msg message.ChatMessage) string {
	initial, injected := injectPersona(persona)
	initial = append(initial, msg.Clone())
	return m.createThread(initial, injected)
}

func (m *Manager) createThread(initial []message.ChatMessage, injected bool) string {
	t := m.store.Create(m.sessionID, initial, injected)

	m.logger.Debug("Created thread",
		"thread_id", t.ID,
		"session_id", t.SessionID,
		"brand_voice", injected,
		"messages", len(t.Messages))
	m.metrics.IncThreadsCreated()
	m.metrics.ObserveThreadCount(m.store.Len())
	m.publish(eventFor(events.TypeThreadCreated, t))

	return t.ID
}

// AppendMessage appends one turn to a thread and returns the resulting
// context. If threadID is unknown, the engine self-heals: a fresh thread is
// created seeded with just this message, and the returned context carries
// the new id. This path is logged, not swallowed. The only errors are an
// invalid message role and a system-role message, both programmer errors
// caught up front: system messages are created-with, never appended, so the
// system count of an existing thread can only ever stay flat.
func (m *Manager) AppendMessage(threadID string, msg message.ChatMessage) (message.ConversationContext, error) {
	if err := msg.Role.Validate(); err != nil {
		return message.ConversationContext{}, err
	}
	if msg.Role == message.RoleSystem {
		return message.ConversationContext{}, ErrSystemMessageAppend
	}

	t, evicted, err := m.store.Append(threadID, msg)
	if err == nil {
		m.metrics.IncMessagesAppended()
		m.metrics.AddWindowEvictions(evicted)
		m.publish(eventFor(events.TypeThreadAppended, t))
		return t.Context(), nil
	}

	// Unknown thread: degrade gracefully to "start a fresh conversation"
	// rather than failing the node. No persona is injected here; injection
	// belongs to CreateThread alone.
	t = m.store.Create(m.sessionID, []message.ChatMessage{msg}, false)

	m.logger.Warn("Append against unknown thread, created replacement",
		"requested_thread_id", threadID,
		"thread_id", t.ID)
	m.metrics.IncThreadsCreated()
	m.metrics.IncMessagesAppended()
	m.metrics.IncSelfHeals()
	m.metrics.ObserveThreadCount(m.store.Len())
	m.publish(eventFor(events.TypeThreadSelfHeal, t))

	return t.Context(), nil
}

// GetThreadContext materializes the conversation context for a thread. The
// second return is false for unknown ids, with a zero context; never an
// error, so callers can treat "no thread yet" as a normal state.
func (m *Manager) GetThreadContext(threadID string) (message.ConversationContext, bool) {
	t, err := m.store.Get(threadID)
	if err != nil {
		return message.ConversationContext{}, false
	}
	return t.Context(), true
}

// HasBrandVoiceInjected reports whether the thread was created with a
// persona. False for unknown ids.
func (m *Manager) HasBrandVoiceInjected(threadID string) bool {
	t, err := m.store.Get(threadID)
	if err != nil {
		return false
	}
	return t.BrandVoiceInjected
}

// ResetThread removes a thread. Idempotent: resetting an unknown id is a
// no-op.
func (m *Manager) ResetThread(threadID string) {
	if !m.store.Remove(threadID) {
		return
	}

	m.logger.Debug("Reset thread", "thread_id", threadID)
	m.metrics.AddThreadsReset(1)
	m.metrics.ObserveThreadCount(m.store.Len())

	ev := events.New(events.TypeThreadReset, threadID)
	ev.SessionID = m.sessionID
	m.publish(ev)
}

// ClearAllThreads empties the store, e.g. when a new workflow is opened.
func (m *Manager) ClearAllThreads() {
	n := m.store.Clear()

	m.logger.Debug("Cleared all threads", "removed", n)
	m.metrics.AddThreadsReset(n)
	m.metrics.ObserveThreadCount(0)

	ev := events.New(events.TypeThreadsCleared, "")
	ev.SessionID = m.sessionID
	m.publish(ev)
}

// publish sends an event to the configured tap. Failures are logged and
// otherwise ignored: the tap is diagnostic, never load-bearing.
func (m *Manager) publish(ev events.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(context.Background(), ev); err != nil {
		m.logger.Warn("Failed to publish engine event", "type", ev.Type, "error", err)
	}
}

// eventFor builds a lifecycle event from a thread copy.
func eventFor(t events.Type, th *Thread) events.Event {
	ev := events.New(t, th.ID)
	ev.SessionID = th.SessionID
	ev.MessageCount = len(th.Messages)
	ev.Preview = events.Summary(th.Context())
	return ev
}
