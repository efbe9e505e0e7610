package thread

import (
	"sort"
	"sync"
	"time"

	"github.com/c360studio/threadflow/message"
)

// DefaultWindowCap is the message cap applied when none is configured.
const DefaultWindowCap = 20

// Store provides keyed persistence of Thread records for the process
// lifetime. There is no expiry: threads live until Remove or Clear. The
// store is an explicit instance, not a package global, so tests can create
// isolated stores per case.
//
// Every mutating entry point holds the mutex for its full duration, giving
// the atomic-per-call guarantee the engine requires in a multi-goroutine
// host.
type Store struct {
	mu        sync.RWMutex
	threads   map[string]*Thread
	windowCap int
}

// NewStore creates an empty store. windowCap bounds the stored message count
// per thread; values <= 0 disable windowing.
func NewStore(windowCap int) *Store {
	return &Store{
		threads:   make(map[string]*Thread),
		windowCap: windowCap,
	}
}

// Create allocates a new thread seeded with initial messages. The caller
// pre-computes brandVoiceInjected because injection is decided above the
// store, at creation time only.
func (s *Store) Create(sessionID string, initial []message.ChatMessage, brandVoiceInjected bool) *Thread {
	now := time.Now()

	t := &Thread{
		ID:                 newThreadID(),
		SessionID:          sessionID,
		CreatedAt:          now,
		LastMessageAt:      now,
		BrandVoiceInjected: brandVoiceInjected,
	}
	t.Messages = make([]message.ChatMessage, len(initial))
	for i, m := range initial {
		t.Messages[i] = m.Clone()
	}

	// Clone while still holding the lock: the moment t is in the map a
	// concurrent Append can mutate it.
	s.mu.Lock()
	s.threads[t.ID] = t
	out := t.Clone()
	s.mu.Unlock()

	return out
}

// Get returns a defensive copy of the thread, or ErrThreadNotFound.
func (s *Store) Get(id string) (*Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[id]
	if !ok {
		return nil, ErrThreadNotFound
	}
	return t.Clone(), nil
}

// Append adds one message to the thread, bumps LastMessageAt, and applies
// the windowing policy so the stored thread itself never exceeds the cap.
// It returns the updated copy and the number of messages evicted. Unknown
// ids return ErrThreadNotFound; recovering from that is the Manager's job,
// not the store's.
func (s *Store) Append(id string, msg message.ChatMessage) (*Thread, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[id]
	if !ok {
		return nil, 0, ErrThreadNotFound
	}

	t.Messages = append(t.Messages, msg.Clone())
	t.LastMessageAt = time.Now()

	windowed, evicted := windowMessages(t.Messages, s.windowCap)
	t.Messages = windowed

	return t.Clone(), evicted, nil
}

// Remove deletes the thread. Removing an unknown id is a no-op, not an
// error. It reports whether a thread was actually removed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threads[id]; !ok {
		return false
	}
	delete(s.threads, id)
	return true
}

// Clear empties the store entirely and returns the number of threads
// removed. Used for full resets ("new workflow").
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.threads)
	s.threads = make(map[string]*Thread)
	return n
}

// Len returns the number of threads currently held. The store has no TTL,
// so this is the observable bound on growth.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}

// IDs returns all thread ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.threads))
	for id := range s.threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
