// Package store keeps flow state per session.
package store

import (
	"context"
	"sync"
	"time"

	"lineacaptura/internal/flow"
)

type session struct {
	state     flow.State
	expiresAt time.Time
}

// InMemoryStore keeps sessions in process memory with a sliding TTL.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
}

// Option configures an InMemoryStore.
type Option func(*InMemoryStore)

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryStore) { s.now = now }
}

func NewInMemory(ttl time.Duration, opts ...Option) *InMemoryStore {
	s := &InMemoryStore{sessions: make(map[string]session), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the session state, or an empty state for unknown or expired sessions.
func (s *InMemoryStore) Load(_ context.Context, sessionID string) (flow.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return flow.State{}, nil
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, sessionID)
		return flow.State{}, nil
	}
	return sess.state, nil
}

func (s *InMemoryStore) Save(_ context.Context, sessionID string, state flow.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session{state: state, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
