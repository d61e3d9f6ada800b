package auth

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory. Serve mode uses it when no
// persistent backend is wanted; tests use its error injection and counters.
type MemoryStore struct {
	sessions map[string]*Session
	saves    int
	mu       sync.RWMutex

	LoadError error
	SaveError error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Name() string { return "memory" }

// Load returns a copy of the stored session
func (m *MemoryStore) Load(ctx context.Context, service string) (*Session, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[service]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

// Save stores a copy of the session
func (m *MemoryStore) Save(ctx context.Context, session *Session) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if session == nil || session.Service == "" {
		return ErrInvalidSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[session.Service] = session.Clone()
	m.saves++
	return nil
}

// Delete removes the session for service
func (m *MemoryStore) Delete(ctx context.Context, service string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[service]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, service)
	return nil
}

// Saves returns how many times Save succeeded
func (m *MemoryStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Peek returns a copy of the stored session without going through Load
func (m *MemoryStore) Peek(service string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[service].Clone()
}
