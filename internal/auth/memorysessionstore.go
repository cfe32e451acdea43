package auth

import (
	"context"
	"sync"
	"time"
)

// MemorySessionStore keeps sessions in process memory; they do not survive a restart.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time
	now      func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Create(_ context.Context, sessionID, _ string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.sessions[sessionID] = s.now().Add(ttl)
	return nil
}

func (s *MemorySessionStore) Exists(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.sessions[sessionID]
	if !ok {
		return false, nil
	}
	if !s.now().Before(expiresAt) {
		delete(s.sessions, sessionID)
		return false, nil
	}
	return true, nil
}

func (s *MemorySessionStore) Revoke(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemorySessionStore) Close() error {
	return nil
}

func (s *MemorySessionStore) pruneLocked() {
	now := s.now()
	for id, expiresAt := range s.sessions {
		if !now.Before(expiresAt) {
			delete(s.sessions, id)
		}
	}
}
