package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Krusherk/ritquiz/internal/domain"
)

type countingReader struct {
	quiz      domain.Quiz
	questions []domain.Question
	loads     atomic.Int64
}

func (r *countingReader) Get(_ context.Context, id string) (domain.Quiz, error) {
	r.loads.Add(1)
	if id != r.quiz.ID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return r.quiz, nil
}

func (r *countingReader) Questions(_ context.Context, quizID string) ([]domain.Question, error) {
	if quizID != r.quiz.ID {
		return nil, domain.ErrQuizNotFound
	}
	return r.questions, nil
}

func newCacheFixture(t *testing.T) (*QuizCache, *countingReader, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reader := &countingReader{
		quiz: domain.Quiz{ID: "quiz-1", Title: "Capitals", QuestionCount: 1},
		questions: []domain.Question{
			{ID: "q1", QuizID: "quiz-1", Text: "Capital of France?", Options: []string{"Lyon", "Paris"}, CorrectIndex: 1, Order: 1},
		},
	}
	return NewQuizCache(client, reader, time.Minute), reader, mr
}

func TestQuizCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	cache, reader, _ := newCacheFixture(t)

	quiz, err := cache.Get(ctx, "quiz-1")
	if err != nil || quiz.Title != "Capitals" {
		t.Fatalf("first get: %+v %v", quiz, err)
	}
	if got := reader.loads.Load(); got != 1 {
		t.Fatalf("expected 1 backing load after miss, got %d", got)
	}

	// Both quiz and questions now come from the cached entry.
	if _, err := cache.Get(ctx, "quiz-1"); err != nil {
		t.Fatalf("second get: %v", err)
	}
	questions, err := cache.Questions(ctx, "quiz-1")
	if err != nil || len(questions) != 1 || questions[0].ID != "q1" {
		t.Fatalf("questions from cache: %+v %v", questions, err)
	}
	if got := reader.loads.Load(); got != 1 {
		t.Fatalf("expected cached reads to skip backing store, got %d loads", got)
	}
}

func TestQuizCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache, reader, mr := newCacheFixture(t)

	if _, err := cache.Get(ctx, "quiz-1"); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if !mr.Exists("quiz:quiz-1:content") {
		t.Fatal("expected cache key after warm read")
	}

	cache.Invalidate(ctx, "quiz-1")
	if mr.Exists("quiz:quiz-1:content") {
		t.Fatal("expected cache key dropped after invalidate")
	}

	if _, err := cache.Get(ctx, "quiz-1"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reader.loads.Load(); got != 2 {
		t.Fatalf("expected reload after invalidate, got %d loads", got)
	}
}

func TestQuizCacheMissPropagatesNotFound(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newCacheFixture(t)

	if _, err := cache.Get(ctx, "ghost"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}
