package memory

import (
	"sync"

	"vocab-battle/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu      sync.RWMutex
	matches map[string]*app.Match
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		matches: make(map[string]*app.Match),
	}
}

func (s *SessionStore) Save(m *app.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID()] = m
}

func (s *SessionStore) Get(matchID string) (*app.Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[matchID]
	return m, ok
}

func (s *SessionStore) Delete(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, matchID)
}
