package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Krusherk/ritquiz/internal/domain"
	"github.com/Krusherk/ritquiz/internal/infra/memory"
)

func newDecoratedRepo(t *testing.T) (*QuizRepository, *QuizCache) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inner := memory.NewQuizRepository()
	cache := NewQuizCache(client, inner, time.Minute)
	return NewQuizRepository(inner, cache), cache
}

func TestAddQuestionVisibleThroughWarmCache(t *testing.T) {
	ctx := context.Background()
	repo, cache := newDecoratedRepo(t)

	if err := repo.Create(ctx, domain.Quiz{ID: "quiz-1", Title: "Capitals"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.AddQuestion(ctx, domain.Question{
		ID: "q1", QuizID: "quiz-1", Text: "Capital of France?",
		Options: []string{"Lyon", "Paris"}, CorrectIndex: 1, Order: 1,
	}); err != nil {
		t.Fatalf("add q1: %v", err)
	}

	// First reader warms the cache with the one-question quiz.
	questions, err := cache.Questions(ctx, "quiz-1")
	if err != nil || len(questions) != 1 {
		t.Fatalf("warm read: %+v %v", questions, err)
	}

	if err := repo.AddQuestion(ctx, domain.Question{
		ID: "q2", QuizID: "quiz-1", Text: "Capital of Japan?",
		Options: []string{"Tokyo", "Osaka"}, CorrectIndex: 0, Order: 2,
	}); err != nil {
		t.Fatalf("add q2: %v", err)
	}

	// A later reader must see both questions, not the cached single.
	questions, err = cache.Questions(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("read after edit: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions through the cache after edit, got %d", len(questions))
	}
	quiz, err := cache.Get(ctx, "quiz-1")
	if err != nil || quiz.QuestionCount != 2 {
		t.Fatalf("expected refreshed question count, got %+v %v", quiz, err)
	}
}

func TestUpdateQuestionRefreshesCachedAnswerKey(t *testing.T) {
	ctx := context.Background()
	repo, cache := newDecoratedRepo(t)

	_ = repo.Create(ctx, domain.Quiz{ID: "quiz-1", Title: "Capitals"})
	question := domain.Question{
		ID: "q1", QuizID: "quiz-1", Text: "Capital of France?",
		Options: []string{"Paris", "Lyon"}, CorrectIndex: 1, Order: 1,
	}
	_ = repo.AddQuestion(ctx, question)
	if _, err := cache.Questions(ctx, "quiz-1"); err != nil {
		t.Fatalf("warm read: %v", err)
	}

	// Author corrects the answer key; sessions must score against it.
	question.CorrectIndex = 0
	if err := repo.UpdateQuestion(ctx, question); err != nil {
		t.Fatalf("update question: %v", err)
	}
	questions, err := cache.Questions(ctx, "quiz-1")
	if err != nil || len(questions) != 1 {
		t.Fatalf("read after update: %+v %v", questions, err)
	}
	if questions[0].CorrectIndex != 0 {
		t.Fatalf("expected corrected index through cache, got %d", questions[0].CorrectIndex)
	}
}

func TestDeleteQuestionDropsCachedEntry(t *testing.T) {
	ctx := context.Background()
	repo, cache := newDecoratedRepo(t)

	_ = repo.Create(ctx, domain.Quiz{ID: "quiz-1", Title: "Capitals"})
	_ = repo.AddQuestion(ctx, domain.Question{ID: "q1", QuizID: "quiz-1", Options: []string{"a", "b"}, Order: 1})
	_ = repo.AddQuestion(ctx, domain.Question{ID: "q2", QuizID: "quiz-1", Options: []string{"a", "b"}, Order: 2})
	if _, err := cache.Questions(ctx, "quiz-1"); err != nil {
		t.Fatalf("warm read: %v", err)
	}

	if err := repo.DeleteQuestion(ctx, "quiz-1", "q2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	questions, err := cache.Questions(ctx, "quiz-1")
	if err != nil || len(questions) != 1 || questions[0].ID != "q1" {
		t.Fatalf("expected single question through cache after delete, got %+v %v", questions, err)
	}
}
