package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Krusherk/ritquiz/internal/domain"
)

// CreateQuizInput is the author-provided part of a new quiz.
type CreateQuizInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	IsGeneral    bool       `json:"isGeneral"`
	TimerSeconds int        `json:"timerSeconds"`
	ScheduledAt  *time.Time `json:"scheduledAt,omitempty"`
}

// QuestionInput is the author-provided part of a question.
type QuestionInput struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

const defaultTimerSeconds = 30

// CatalogService is CRUD over quiz and question records with audience and
// lifecycle filtering.
type CatalogService struct {
	quizzes QuizRepository
	now     func() time.Time
	newID   func() string
}

func NewCatalogService(quizzes QuizRepository) *CatalogService {
	return &CatalogService{
		quizzes: quizzes,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// NewCatalogServiceWithClock is test-only for deterministic ids and times.
func NewCatalogServiceWithClock(quizzes QuizRepository, now func() time.Time, newID func() string) *CatalogService {
	return &CatalogService{quizzes: quizzes, now: now, newID: newID}
}

// Create assigns a fresh id and starts the quiz in draft with zero questions.
// Only hosts and admins may author.
func (s *CatalogService) Create(ctx context.Context, creator domain.User, in CreateQuizInput) (domain.Quiz, error) {
	if !creator.Role.CanHost() {
		return domain.Quiz{}, domain.ErrForbidden
	}
	if strings.TrimSpace(in.Title) == "" {
		return domain.Quiz{}, domain.ErrInvalidState
	}
	timer := in.TimerSeconds
	if timer <= 0 {
		timer = defaultTimerSeconds
	}
	creatorType := domain.CreatorHost
	if creator.Role == domain.RoleAdmin {
		creatorType = domain.CreatorAdmin
	}
	quiz := domain.Quiz{
		ID:              s.newID(),
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		CreatorID:       creator.ID,
		CreatorUsername: creator.Username,
		CreatorType:     creatorType,
		IsGeneral:       in.IsGeneral,
		Status:          domain.StatusDraft,
		TimerSeconds:    timer,
		ScheduledAt:     in.ScheduledAt,
		CreatedAt:       s.now(),
		QuestionCount:   0,
	}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// AddQuestion appends a question with order = current count + 1. The
// repository increments QuestionCount in the same mutation.
func (s *CatalogService) AddQuestion(ctx context.Context, caller domain.User, quizID string, in QuestionInput) (domain.Question, error) {
	quiz, err := s.authorizedQuiz(ctx, caller, quizID)
	if err != nil {
		return domain.Question{}, err
	}
	if strings.TrimSpace(in.Text) == "" || len(in.Options) < 2 {
		return domain.Question{}, domain.ErrInvalidState
	}
	if in.CorrectIndex < 0 || in.CorrectIndex >= len(in.Options) {
		return domain.Question{}, domain.ErrOptionOutOfRange
	}
	question := domain.Question{
		ID:           s.newID(),
		QuizID:       quiz.ID,
		Text:         strings.TrimSpace(in.Text),
		Options:      in.Options,
		CorrectIndex: in.CorrectIndex,
		Order:        quiz.QuestionCount + 1,
	}
	if err := s.quizzes.AddQuestion(ctx, question); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

// UpdateQuestion replaces a question's content, keeping its order.
func (s *CatalogService) UpdateQuestion(ctx context.Context, caller domain.User, quizID, questionID string, in QuestionInput) (domain.Question, error) {
	if _, err := s.authorizedQuiz(ctx, caller, quizID); err != nil {
		return domain.Question{}, err
	}
	if in.CorrectIndex < 0 || in.CorrectIndex >= len(in.Options) || len(in.Options) < 2 {
		return domain.Question{}, domain.ErrOptionOutOfRange
	}
	questions, err := s.quizzes.Questions(ctx, quizID)
	if err != nil {
		return domain.Question{}, err
	}
	for _, q := range questions {
		if q.ID == questionID {
			q.Text = strings.TrimSpace(in.Text)
			q.Options = in.Options
			q.CorrectIndex = in.CorrectIndex
			if err := s.quizzes.UpdateQuestion(ctx, q); err != nil {
				return domain.Question{}, err
			}
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

// DeleteQuestion removes a question; the repository decrements
// QuestionCount in the same mutation.
func (s *CatalogService) DeleteQuestion(ctx context.Context, caller domain.User, quizID, questionID string) error {
	if _, err := s.authorizedQuiz(ctx, caller, quizID); err != nil {
		return err
	}
	return s.quizzes.DeleteQuestion(ctx, quizID, questionID)
}

// Publish transitions draft -> live. A quiz without questions cannot go
// live; the guard lives here rather than in callers.
func (s *CatalogService) Publish(ctx context.Context, caller domain.User, quizID string) (domain.Quiz, error) {
	quiz, err := s.authorizedQuiz(ctx, caller, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.Status != domain.StatusDraft {
		return domain.Quiz{}, domain.ErrInvalidState
	}
	if quiz.QuestionCount == 0 {
		return domain.Quiz{}, domain.ErrNoQuestions
	}
	quiz.Status = domain.StatusLive
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// Get returns quiz metadata by id. Drafts exist only for their creator and
// admins; everyone else gets not-found so a draft id leaks nothing.
func (s *CatalogService) Get(ctx context.Context, caller domain.User, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.Status == domain.StatusDraft && quiz.CreatorID != caller.ID && caller.Role != domain.RoleAdmin {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

// Questions returns a quiz's questions for its creator or an admin. The
// correct index is authoring data and stays off player-facing surfaces.
func (s *CatalogService) Questions(ctx context.Context, caller domain.User, quizID string) ([]domain.Question, error) {
	if _, err := s.authorizedQuiz(ctx, caller, quizID); err != nil {
		return nil, err
	}
	return s.quizzes.Questions(ctx, quizID)
}

// List returns quizzes for a consumption audience. Drafts are never
// returned to non-creator audiences.
func (s *CatalogService) List(ctx context.Context, audience domain.Audience) ([]domain.Quiz, error) {
	all, err := s.quizzes.List(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]domain.Quiz, 0, len(all))
	for _, quiz := range all {
		if quiz.Status == domain.StatusDraft {
			continue
		}
		switch audience {
		case domain.AudienceGeneral:
			if quiz.IsGeneral {
				filtered = append(filtered, quiz)
			}
		case domain.AudienceHost:
			if !quiz.IsGeneral {
				filtered = append(filtered, quiz)
			}
		}
	}
	return filtered, nil
}

// ListByCreator is the creator-facing view and includes drafts.
func (s *CatalogService) ListByCreator(ctx context.Context, creatorID string) ([]domain.Quiz, error) {
	all, err := s.quizzes.List(ctx)
	if err != nil {
		return nil, err
	}
	mine := make([]domain.Quiz, 0)
	for _, quiz := range all {
		if quiz.CreatorID == creatorID {
			mine = append(mine, quiz)
		}
	}
	return mine, nil
}

func (s *CatalogService) authorizedQuiz(ctx context.Context, caller domain.User, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.CreatorID != caller.ID && caller.Role != domain.RoleAdmin {
		return domain.Quiz{}, domain.ErrForbidden
	}
	return quiz, nil
}
