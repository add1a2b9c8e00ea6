package memory

import (
	"sync"

	"github.com/Krusherk/ritquiz/internal/app"
)

// AttemptStore is an in-memory implementation of app.AttemptStore keyed by
// (quiz, user).
type AttemptStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{sessions: make(map[string]*app.Session)}
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
}

func (s *AttemptStore) Delete(quizID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key(quizID, userID))
}

func key(quizID, userID string) string {
	return quizID + "/" + userID
}
