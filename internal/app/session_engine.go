package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Krusherk/ritquiz/internal/domain"
)

// SessionEngine drives quiz attempts: it loads quiz content, owns the live
// session per (quiz, user) pair and persists exactly one result per pair.
type SessionEngine struct {
	quizzes  QuizReader
	results  ResultRepository
	attempts AttemptStore
	now      func() time.Time
	log      *logrus.Logger
}

func NewSessionEngine(quizzes QuizReader, results ResultRepository, attempts AttemptStore, log *logrus.Logger) *SessionEngine {
	return &SessionEngine{
		quizzes:  quizzes,
		results:  results,
		attempts: attempts,
		now:      time.Now,
		log:      log,
	}
}

// NewSessionEngineWithClock is test-only for deterministic timestamps.
func NewSessionEngineWithClock(quizzes QuizReader, results ResultRepository, attempts AttemptStore, log *logrus.Logger, now func() time.Time) *SessionEngine {
	e := NewSessionEngine(quizzes, results, attempts, log)
	e.now = now
	return e
}

// Load fetches the quiz and its ordered questions and checks for a
// pre-existing result. If one exists the session enters Finished
// immediately with that stored result; re-attempts are never permitted, no
// matter how many times Load is invoked. Otherwise a fresh Ready session
// replaces any abandoned one.
func (e *SessionEngine) Load(ctx context.Context, quizID string, user domain.User) (SessionView, error) {
	if user.ID == "" {
		return SessionView{}, domain.ErrUnauthenticated
	}
	quiz, err := e.quizzes.Get(ctx, quizID)
	if err != nil {
		return SessionView{}, err
	}
	// Drafts are playable only by their author; for anyone else the quiz
	// does not exist yet.
	if quiz.Status == domain.StatusDraft && quiz.CreatorID != user.ID && user.Role != domain.RoleAdmin {
		return SessionView{}, domain.ErrQuizNotFound
	}
	questions, err := e.quizzes.Questions(ctx, quizID)
	if err != nil {
		return SessionView{}, err
	}
	if len(questions) == 0 {
		return SessionView{}, domain.ErrQuizNotFound
	}

	logEntry := e.log.WithFields(logrus.Fields{"quiz": quizID, "user": user.ID})

	existing, err := e.results.Get(ctx, quizID, user.ID)
	if err == nil {
		session := newFinishedSession(quiz, questions, user, existing, e.now, logEntry)
		e.replace(session)
		return session.View(), nil
	}
	if err != domain.ErrResultNotFound {
		return SessionView{}, err
	}

	session := newSession(quiz, questions, user, e.results.Put, e.now, logEntry)
	e.replace(session)
	return session.View(), nil
}

// Start begins the countdown on a loaded attempt.
func (e *SessionEngine) Start(ctx context.Context, quizID, userID string) (SessionView, error) {
	session, err := e.session(quizID, userID)
	if err != nil {
		return SessionView{}, err
	}
	return session.Start()
}

// SelectAnswer records an answer for the attempt's current question.
func (e *SessionEngine) SelectAnswer(ctx context.Context, quizID, userID, questionID string, optionIndex int) (SessionView, error) {
	session, err := e.session(quizID, userID)
	if err != nil {
		return SessionView{}, err
	}
	return session.SelectAnswer(questionID, optionIndex)
}

// Advance moves the attempt forward; on the last question it submits,
// which is also how a failed submission is retried.
func (e *SessionEngine) Advance(ctx context.Context, quizID, userID string) (SessionView, error) {
	session, err := e.session(quizID, userID)
	if err != nil {
		return SessionView{}, err
	}
	return session.Advance(ctx)
}

// View returns the attempt's current snapshot.
func (e *SessionEngine) View(ctx context.Context, quizID, userID string) (SessionView, error) {
	session, err := e.session(quizID, userID)
	if err != nil {
		return SessionView{}, err
	}
	return session.View(), nil
}

// Discard drops an in-memory attempt, releasing its countdown. Nothing is
// written; navigating away never produces a partial result.
func (e *SessionEngine) Discard(ctx context.Context, quizID, userID string) {
	if session, ok := e.attempts.Get(quizID, userID); ok {
		session.Discard()
		e.attempts.Delete(quizID, userID)
	}
}

func (e *SessionEngine) session(quizID, userID string) (*Session, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	session, ok := e.attempts.Get(quizID, userID)
	if !ok {
		return nil, domain.ErrInvalidState
	}
	return session, nil
}

func (e *SessionEngine) replace(session *Session) {
	if old, ok := e.attempts.Get(session.QuizID(), session.UserID()); ok {
		old.Discard()
	}
	e.attempts.Put(session)
}
