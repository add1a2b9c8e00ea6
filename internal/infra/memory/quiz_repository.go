package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Krusherk/ritquiz/internal/domain"
)

// QuizRepository is an in-memory implementation of app.QuizRepository.
// Question mutations adjust the quiz's QuestionCount under the same lock,
// keeping the denormalized counter consistent with its source.
type QuizRepository struct {
	mu        sync.RWMutex
	quizzes   map[string]domain.Quiz
	questions map[string][]domain.Question // quizID -> insertion order
	order     []string                     // quiz creation order for stable listings
}

func NewQuizRepository() *QuizRepository {
	return &QuizRepository{
		quizzes:   make(map[string]domain.Quiz),
		questions: make(map[string][]domain.Question),
	}
}

// Seed loads a quiz and its questions in one call, for demo mode and tests.
func (r *QuizRepository) Seed(quiz domain.Quiz, questions []domain.Question) {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz.QuestionCount = len(questions)
	r.quizzes[quiz.ID] = quiz
	r.questions[quiz.ID] = append([]domain.Question(nil), questions...)
	r.order = append(r.order, quiz.ID)
}

func (r *QuizRepository) Create(_ context.Context, quiz domain.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quizzes[quiz.ID] = quiz
	r.order = append(r.order, quiz.ID)
	return nil
}

func (r *QuizRepository) Get(_ context.Context, id string) (domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (r *QuizRepository) Update(_ context.Context, quiz domain.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quizzes[quiz.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	r.quizzes[quiz.ID] = quiz
	return nil
}

func (r *QuizRepository) List(_ context.Context) ([]domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(r.order))
	for _, id := range r.order {
		if quiz, ok := r.quizzes[id]; ok {
			out = append(out, quiz)
		}
	}
	return out, nil
}

func (r *QuizRepository) AddQuestion(_ context.Context, q domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[q.QuizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	r.questions[q.QuizID] = append(r.questions[q.QuizID], q)
	quiz.QuestionCount++
	r.quizzes[q.QuizID] = quiz
	return nil
}

func (r *QuizRepository) UpdateQuestion(_ context.Context, q domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	qs := r.questions[q.QuizID]
	for i := range qs {
		if qs[i].ID == q.ID {
			qs[i] = q
			return nil
		}
	}
	return domain.ErrQuestionNotFound
}

func (r *QuizRepository) DeleteQuestion(_ context.Context, quizID, questionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	qs := r.questions[quizID]
	for i := range qs {
		if qs[i].ID == questionID {
			r.questions[quizID] = append(qs[:i:i], qs[i+1:]...)
			if quiz.QuestionCount > 0 {
				quiz.QuestionCount--
			}
			r.quizzes[quizID] = quiz
			return nil
		}
	}
	return domain.ErrQuestionNotFound
}

func (r *QuizRepository) Questions(_ context.Context, quizID string) ([]domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.quizzes[quizID]; !ok {
		return nil, domain.ErrQuizNotFound
	}
	qs := append([]domain.Question(nil), r.questions[quizID]...)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
	return qs, nil
}
