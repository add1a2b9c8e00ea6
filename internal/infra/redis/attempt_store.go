package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Krusherk/ritquiz/internal/app"
)

// AttemptStore is a Redis-aware implementation of app.AttemptStore.
// Sessions themselves stay in the local map, since the countdown and answer
// state are owned by one process for the lifetime of an attempt. Redis holds
// a TTL'd liveness marker per attempt, giving operators visibility into
// active attempts across instances.
type AttemptStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *AttemptStore) Get(quizID, userID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key(quizID, userID)]
	return session, ok
}

func (s *AttemptStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key(session.QuizID(), session.UserID())] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), markerKey(session.QuizID(), session.UserID()), "1", s.ttl).Err()
}

func (s *AttemptStore) Delete(quizID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key(quizID, userID))
	_ = s.client.Del(context.Background(), markerKey(quizID, userID)).Err()
}

func key(quizID, userID string) string {
	return quizID + "/" + userID
}

func markerKey(quizID, userID string) string {
	return "attempt:" + quizID + ":" + userID
}
