package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Krusherk/ritquiz/internal/domain"
)

// LeaderboardService ranks submitted results per quiz and globally. Boards
// are never persisted; every call recomputes from the result records.
type LeaderboardService struct {
	quizzes      QuizReader
	lister       QuizLister
	results      ResultRepository
	pollInterval time.Duration
	log          *logrus.Logger
}

// QuizLister enumerates all quizzes; the global board needs every quiz.
type QuizLister interface {
	List(ctx context.Context) ([]domain.Quiz, error)
}

func NewLeaderboardService(quizzes QuizReader, lister QuizLister, results ResultRepository, pollInterval time.Duration, log *logrus.Logger) *LeaderboardService {
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	return &LeaderboardService{
		quizzes:      quizzes,
		lister:       lister,
		results:      results,
		pollInterval: pollInterval,
		log:          log,
	}
}

// PerQuiz ranks a quiz's results descending by score, ties stable by
// arrival order, truncated to limit. Rank is 1-based by position, so for a
// fixed result set repeated calls return identical assignments.
func (s *LeaderboardService) PerQuiz(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	if _, err := s.quizzes.Get(ctx, quizID); err != nil {
		return nil, err
	}
	results, err := s.results.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	entries := make([]domain.LeaderboardEntry, len(results))
	for i, r := range results {
		entries[i] = domain.LeaderboardEntry{
			Rank:           i + 1,
			UserID:         r.UserID,
			Username:       r.Username,
			AvatarURL:      r.AvatarURL,
			Score:          r.Score,
			CorrectAnswers: r.CorrectAnswers,
			TotalQuestions: r.TotalQuestions,
		}
	}
	return entries, nil
}

// Global accumulates per-user totals across every quiz a user has a result
// for, then ranks by summed score. This is a full recomputation per call;
// fine while both axes stay small.
func (s *LeaderboardService) Global(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	quizzes, err := s.lister.List(ctx)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]*domain.LeaderboardEntry)
	var order []string
	for _, quiz := range quizzes {
		results, err := s.results.ListByQuiz(ctx, quiz.ID)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			entry, ok := totals[r.UserID]
			if !ok {
				entry = &domain.LeaderboardEntry{
					UserID:    r.UserID,
					Username:  r.Username,
					AvatarURL: r.AvatarURL,
				}
				totals[r.UserID] = entry
				order = append(order, r.UserID)
			}
			entry.Score += r.Score
			entry.CorrectAnswers += r.CorrectAnswers
			entry.TotalQuestions += r.TotalQuestions
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(order))
	for _, userID := range order {
		entries = append(entries, *totals[userID])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Subscribe streams re-ranked boards for a quiz on every result change.
// When the result store exposes a change feed it is used directly;
// otherwise the stream degrades to polling. The caller must invoke the
// returned cancel function.
func (s *LeaderboardService) Subscribe(ctx context.Context, quizID string, limit int) (<-chan []domain.LeaderboardEntry, func(), error) {
	initial, err := s.PerQuiz(ctx, quizID, limit)
	if err != nil {
		return nil, nil, err
	}

	signals, stop, err := s.changes(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan []domain.LeaderboardEntry, 8)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			close(done)
		})
	}

	go func() {
		defer close(out)
		push(out, initial)
		for {
			select {
			case _, ok := <-signals:
				if !ok {
					return
				}
				board, err := s.PerQuiz(ctx, quizID, limit)
				if err != nil {
					s.log.WithError(err).WithField("quiz", quizID).Warn("leaderboard refresh failed")
					continue
				}
				push(out, board)
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, cancel, nil
}

func (s *LeaderboardService) changes(ctx context.Context, quizID string) (<-chan struct{}, func(), error) {
	if watcher, ok := s.results.(ResultWatcher); ok {
		return watcher.Watch(ctx, quizID)
	}

	signals := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		defer close(signals)
		for {
			select {
			case <-ticker.C:
				select {
				case signals <- struct{}{}:
				default:
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	var once sync.Once
	stop := func() { once.Do(func() { close(done) }) }
	return signals, stop, nil
}

// push drops the oldest pending board when the consumer is slow; a live
// scoreboard only needs the latest state.
func push(out chan []domain.LeaderboardEntry, board []domain.LeaderboardEntry) {
	select {
	case out <- board:
	default:
		select {
		case <-out:
		default:
		}
		out <- board
	}
}
