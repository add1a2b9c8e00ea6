package app

import (
	"context"

	"github.com/Krusherk/ritquiz/internal/domain"
)

// UserRepository stores application users and their username reservations.
type UserRepository interface {
	// Get returns the user for the external identity ID or ErrUserNotFound.
	Get(ctx context.Context, id string) (domain.User, error)
	// FindByEmail scans users by email. A linear scan is acceptable at this
	// scale; returns ErrUserNotFound when no user matches.
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	// Create reserves the lowercased username and creates the user record
	// as one atomic unit. Returns ErrUsernameTaken if the reservation is
	// already held by another identity.
	Create(ctx context.Context, user domain.User) error
	// Update replaces the stored user record.
	Update(ctx context.Context, user domain.User) error
	// UsernameExists reports whether the lowercased username is reserved.
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// QuizReader is the read surface the session engine needs. Cache layers
// implement just this.
type QuizReader interface {
	Get(ctx context.Context, id string) (domain.Quiz, error)
	// Questions returns the quiz's questions ordered by their display order.
	Questions(ctx context.Context, quizID string) ([]domain.Question, error)
}

// QuizRepository is the full catalog storage surface. Question mutations
// maintain the quiz's denormalized QuestionCount in the same operation.
type QuizRepository interface {
	QuizReader
	Create(ctx context.Context, quiz domain.Quiz) error
	Update(ctx context.Context, quiz domain.Quiz) error
	List(ctx context.Context) ([]domain.Quiz, error)
	AddQuestion(ctx context.Context, q domain.Question) error
	UpdateQuestion(ctx context.Context, q domain.Question) error
	DeleteQuestion(ctx context.Context, quizID, questionID string) error
}

// ResultRepository stores quiz results keyed by (quiz, user); Put overwrites.
type ResultRepository interface {
	// Get returns the stored result or ErrResultNotFound.
	Get(ctx context.Context, quizID, userID string) (domain.QuizResult, error)
	Put(ctx context.Context, result domain.QuizResult) error
	// ListByQuiz returns all results for a quiz in arrival order
	// (completion time ascending). Ranking is applied by the aggregator.
	ListByQuiz(ctx context.Context, quizID string) ([]domain.QuizResult, error)
}

// ResultWatcher is an optional change feed over a quiz's results.
// Implementations push a signal on every Put under the quiz.
type ResultWatcher interface {
	Watch(ctx context.Context, quizID string) (<-chan struct{}, func(), error)
}

// AttemptStore keeps the live session for each (quiz, user) attempt.
type AttemptStore interface {
	Get(quizID, userID string) (*Session, bool)
	Put(session *Session)
	Delete(quizID, userID string)
}
