package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/Krusherk/ritquiz/internal/app"
	"github.com/Krusherk/ritquiz/internal/domain"
	"github.com/Krusherk/ritquiz/internal/infra/memory"
)

func newLeaderboardFixture(t *testing.T) (*app.LeaderboardService, *memory.QuizRepository, *memory.ResultRepository) {
	t.Helper()
	quizzes := memory.NewQuizRepository()
	results := memory.NewResultRepository()
	service := app.NewLeaderboardService(quizzes, quizzes, results, 50*time.Millisecond, testLogger())
	return service, quizzes, results
}

func liveQuiz(id string) domain.Quiz {
	return domain.Quiz{ID: id, Title: id, Status: domain.StatusLive, TimerSeconds: 30, CreatedAt: time.Now()}
}

func result(quizID, userID string, score, correct, total int, completedAt time.Time) domain.QuizResult {
	return domain.QuizResult{
		QuizID: quizID, UserID: userID, Username: userID,
		Score: score, CorrectAnswers: correct, TotalQuestions: total,
		CompletedAt: completedAt,
	}
}

func TestPerQuizRanking(t *testing.T) {
	ctx := context.Background()
	service, quizzes, results := newLeaderboardFixture(t)
	quizzes.Seed(liveQuiz("quiz-1"), []domain.Question{{ID: "q", QuizID: "quiz-1", Options: []string{"a", "b"}, Order: 1}})

	base := time.Unix(1700000000, 0)
	_ = results.Put(ctx, result("quiz-1", "bob", 50, 1, 2, base))
	_ = results.Put(ctx, result("quiz-1", "alice", 100, 2, 2, base.Add(time.Second)))
	_ = results.Put(ctx, result("quiz-1", "carol", 50, 1, 2, base.Add(2*time.Second)))

	entries, err := service.PerQuiz(ctx, "quiz-1", 10)
	if err != nil {
		t.Fatalf("perQuiz: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Username != "alice" || entries[0].Rank != 1 {
		t.Fatalf("expected alice first, got %+v", entries[0])
	}
	// Equal scores keep arrival order: bob before carol.
	if entries[1].Username != "bob" || entries[2].Username != "carol" {
		t.Fatalf("tie not stable: %+v", entries[1:])
	}

	// Re-running without intervening writes yields identical assignments.
	again, _ := service.PerQuiz(ctx, "quiz-1", 10)
	for i := range entries {
		if entries[i] != again[i] {
			t.Fatalf("rank drift at %d: %+v vs %+v", i, entries[i], again[i])
		}
	}

	top, _ := service.PerQuiz(ctx, "quiz-1", 1)
	if len(top) != 1 || top[0].Username != "alice" {
		t.Fatalf("limit not applied: %+v", top)
	}
}

func TestGlobalAggregatesAcrossQuizzes(t *testing.T) {
	ctx := context.Background()
	service, quizzes, results := newLeaderboardFixture(t)
	quizzes.Seed(liveQuiz("quiz-1"), []domain.Question{{ID: "q1", QuizID: "quiz-1", Options: []string{"a", "b"}, Order: 1}})
	quizzes.Seed(liveQuiz("quiz-2"), []domain.Question{{ID: "q2", QuizID: "quiz-2", Options: []string{"a", "b"}, Order: 1}})

	base := time.Unix(1700000000, 0)
	// A: 80 + 60 = 140 beats B's single 100.
	_ = results.Put(ctx, result("quiz-1", "userA", 80, 4, 5, base))
	_ = results.Put(ctx, result("quiz-2", "userA", 60, 3, 5, base.Add(time.Second)))
	_ = results.Put(ctx, result("quiz-1", "userB", 100, 5, 5, base.Add(2*time.Second)))

	entries, err := service.Global(ctx, 50)
	if err != nil {
		t.Fatalf("global: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].UserID != "userA" || entries[0].Score != 140 {
		t.Fatalf("expected userA with 140 on top, got %+v", entries[0])
	}
	if entries[0].CorrectAnswers != 7 || entries[0].TotalQuestions != 10 {
		t.Fatalf("totals not accumulated: %+v", entries[0])
	}
	if entries[1].UserID != "userB" || entries[1].Rank != 2 {
		t.Fatalf("expected userB second, got %+v", entries[1])
	}
}

func TestSubscribePushesOnResultChange(t *testing.T) {
	ctx := context.Background()
	service, quizzes, results := newLeaderboardFixture(t)
	quizzes.Seed(liveQuiz("quiz-1"), []domain.Question{{ID: "q", QuizID: "quiz-1", Options: []string{"a", "b"}, Order: 1}})

	updates, cancel, err := service.Subscribe(ctx, "quiz-1", 10)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := <-updates
	if len(initial) != 0 {
		t.Fatalf("expected empty initial board, got %+v", initial)
	}

	_ = results.Put(ctx, result("quiz-1", "alice", 100, 2, 2, time.Now()))

	select {
	case board := <-updates:
		if len(board) != 1 || board[0].Username != "alice" {
			t.Fatalf("unexpected board %+v", board)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no leaderboard update received")
	}
}
