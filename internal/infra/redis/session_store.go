package redis

import (
	"context"
	"sync"
	"time"

	"vocab-battle/internal/app"

	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Matches stay in a local map; a match is owned by the process that runs the
//     classroom screen.
//   - Redis only marks match liveness so other instances and dashboards can see
//     which matches are running.
type SessionStore struct {
	client  *redis.Client
	ttl     time.Duration
	mu      sync.RWMutex
	matches map[string]*app.Match
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:  client,
		ttl:     ttl,
		matches: make(map[string]*app.Match),
	}
}

func (s *SessionStore) Save(m *app.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID()] = m
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(m.ID()), "1", s.ttl).Err()
}

// Get returns a local match and pushes back the expiry of its liveness key, so
// a match that is still being played never shows as dead.
func (s *SessionStore) Get(matchID string) (*app.Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[matchID]
	if ok {
		_ = s.client.Expire(context.Background(), s.key(matchID), s.ttl).Err()
	}
	return m, ok
}

func (s *SessionStore) Delete(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[matchID]; !ok {
		return
	}
	delete(s.matches, matchID)
	_ = s.client.Del(context.Background(), s.key(matchID)).Err()
}

func (s *SessionStore) key(matchID string) string {
	return "battle:match:" + matchID
}
