package redis

import (
	"context"

	"github.com/Krusherk/ritquiz/internal/app"
	"github.com/Krusherk/ritquiz/internal/domain"
)

// QuizRepository decorates the authoritative catalog store with cache
// invalidation: every mutation drops the quiz's cached entry, so readers
// going through the QuizCache see edits before the TTL lapses. Reads pass
// straight through to the store.
type QuizRepository struct {
	inner app.QuizRepository
	cache *QuizCache
}

func NewQuizRepository(inner app.QuizRepository, cache *QuizCache) *QuizRepository {
	return &QuizRepository{inner: inner, cache: cache}
}

func (r *QuizRepository) Get(ctx context.Context, id string) (domain.Quiz, error) {
	return r.inner.Get(ctx, id)
}

func (r *QuizRepository) Questions(ctx context.Context, quizID string) ([]domain.Question, error) {
	return r.inner.Questions(ctx, quizID)
}

func (r *QuizRepository) List(ctx context.Context) ([]domain.Quiz, error) {
	return r.inner.List(ctx)
}

// Create has no cached entry to drop; a fresh quiz misses into the store.
func (r *QuizRepository) Create(ctx context.Context, quiz domain.Quiz) error {
	return r.inner.Create(ctx, quiz)
}

func (r *QuizRepository) Update(ctx context.Context, quiz domain.Quiz) error {
	if err := r.inner.Update(ctx, quiz); err != nil {
		return err
	}
	r.cache.Invalidate(ctx, quiz.ID)
	return nil
}

func (r *QuizRepository) AddQuestion(ctx context.Context, q domain.Question) error {
	if err := r.inner.AddQuestion(ctx, q); err != nil {
		return err
	}
	r.cache.Invalidate(ctx, q.QuizID)
	return nil
}

func (r *QuizRepository) UpdateQuestion(ctx context.Context, q domain.Question) error {
	if err := r.inner.UpdateQuestion(ctx, q); err != nil {
		return err
	}
	r.cache.Invalidate(ctx, q.QuizID)
	return nil
}

func (r *QuizRepository) DeleteQuestion(ctx context.Context, quizID, questionID string) error {
	if err := r.inner.DeleteQuestion(ctx, quizID, questionID); err != nil {
		return err
	}
	r.cache.Invalidate(ctx, quizID)
	return nil
}
