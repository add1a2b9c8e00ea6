package redis

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/Krusherk/ritquiz/internal/app"
	"github.com/Krusherk/ritquiz/internal/domain"
)

// ResultRepository decorates an authoritative result store with Redis
// pub/sub fan-out, giving multi-instance deployments a shared change feed
// for live leaderboards. Reads and writes pass straight through.
type ResultRepository struct {
	inner  app.ResultRepository
	client *redis.Client
}

func NewResultRepository(client *redis.Client, inner app.ResultRepository) *ResultRepository {
	return &ResultRepository{inner: inner, client: client}
}

func (r *ResultRepository) Get(ctx context.Context, quizID, userID string) (domain.QuizResult, error) {
	return r.inner.Get(ctx, quizID, userID)
}

func (r *ResultRepository) Put(ctx context.Context, result domain.QuizResult) error {
	if err := r.inner.Put(ctx, result); err != nil {
		return err
	}
	// Best-effort notification; a lost publish only delays the next
	// leaderboard refresh until the following change.
	_ = r.client.Publish(ctx, r.channel(result.QuizID), result.UserID).Err()
	return nil
}

func (r *ResultRepository) ListByQuiz(ctx context.Context, quizID string) ([]domain.QuizResult, error) {
	return r.inner.ListByQuiz(ctx, quizID)
}

// Watch implements app.ResultWatcher over a Redis subscription.
func (r *ResultRepository) Watch(ctx context.Context, quizID string) (<-chan struct{}, func(), error) {
	sub := r.client.Subscribe(ctx, r.channel(quizID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	signals := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(signals)
		msgs := sub.Channel()
		for {
			select {
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case signals <- struct{}{}:
				default:
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
	return signals, cancel, nil
}

func (r *ResultRepository) channel(quizID string) string {
	return "quiz:" + quizID + ":results"
}
