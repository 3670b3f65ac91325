package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"clinic-scheduler/internal/model"
)

// MemoryStore keeps sessions in process. Used in tests and for
// SESSION_BACKEND=memory development runs.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*model.Session)}
}

func (m *MemoryStore) Create(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.TokenHash]; ok {
		return errors.New("duplicate session token")
	}
	cp := *s
	m.sessions[s.TokenHash] = &cp
	return nil
}

func (m *MemoryStore) Touch(_ context.Context, tokenHash string, now time.Time) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.ExpiresAt.After(now) {
		return nil, ErrExpired
	}
	if now.After(s.LastActivityAt) {
		s.LastActivityAt = now
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, tokenHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[tokenHash]; !ok {
		return false, nil
	}
	delete(m.sessions, tokenHash)
	return true, nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for h, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, h)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
