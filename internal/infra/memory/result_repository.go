package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Krusherk/ritquiz/internal/domain"
)

// ResultRepository stores quiz results keyed by (quiz, user) and offers the
// in-process change feed the live leaderboard stream consumes. Put under an
// existing key overwrites; there is never a second result for a pair.
type ResultRepository struct {
	mu       sync.RWMutex
	results  map[string]map[string]domain.QuizResult // quizID -> userID -> result
	arrival  map[string][]string                     // quizID -> userIDs in first-submission order
	watchers map[string]map[chan struct{}]struct{}
}

func NewResultRepository() *ResultRepository {
	return &ResultRepository{
		results:  make(map[string]map[string]domain.QuizResult),
		arrival:  make(map[string][]string),
		watchers: make(map[string]map[chan struct{}]struct{}),
	}
}

func (r *ResultRepository) Get(_ context.Context, quizID, userID string) (domain.QuizResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.results[quizID][userID]
	if !ok {
		return domain.QuizResult{}, domain.ErrResultNotFound
	}
	return result, nil
}

func (r *ResultRepository) Put(_ context.Context, result domain.QuizResult) error {
	r.mu.Lock()
	byUser, ok := r.results[result.QuizID]
	if !ok {
		byUser = make(map[string]domain.QuizResult)
		r.results[result.QuizID] = byUser
	}
	if _, seen := byUser[result.UserID]; !seen {
		r.arrival[result.QuizID] = append(r.arrival[result.QuizID], result.UserID)
	}
	byUser[result.UserID] = result
	// Fan-out stays under the lock so a concurrent Watch cancel cannot
	// close a channel mid-broadcast. Sends never block.
	for ch := range r.watchers[result.QuizID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	r.mu.Unlock()
	return nil
}

// ListByQuiz returns results in arrival order; ranking happens upstream.
func (r *ResultRepository) ListByQuiz(_ context.Context, quizID string) ([]domain.QuizResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userIDs := r.arrival[quizID]
	out := make([]domain.QuizResult, 0, len(userIDs))
	for _, userID := range userIDs {
		out = append(out, r.results[quizID][userID])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})
	return out, nil
}

// Watch implements app.ResultWatcher with an in-process broadcast.
func (r *ResultRepository) Watch(_ context.Context, quizID string) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)
	r.mu.Lock()
	if r.watchers[quizID] == nil {
		r.watchers[quizID] = make(map[chan struct{}]struct{})
	}
	r.watchers[quizID][ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if set, ok := r.watchers[quizID]; ok {
			if _, present := set[ch]; present {
				delete(set, ch)
				close(ch)
			}
		}
		r.mu.Unlock()
	}
	return ch, cancel, nil
}
