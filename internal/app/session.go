package app

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Krusherk/ritquiz/internal/domain"
)

// SessionState is the lifecycle of one quiz attempt.
type SessionState string

const (
	StateUnloaded   SessionState = "unloaded"
	StateReady      SessionState = "ready"
	StateInProgress SessionState = "in_progress"
	// StateFinished is terminal for a (quiz, user) pair. Reaching it again
	// via a reload short-circuits to the stored result.
	StateFinished SessionState = "finished"
)

// QuestionView is the player-facing shape of a question. The correct index
// never leaves the session; scoring is done here, server-side.
type QuestionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Order   int      `json:"order"`
}

// SessionView is an immutable snapshot of an attempt for transport.
type SessionView struct {
	State            SessionState       `json:"state"`
	Quiz             domain.Quiz        `json:"quiz"`
	CurrentIndex     int                `json:"currentIndex"`
	CurrentQuestion  *QuestionView      `json:"currentQuestion,omitempty"`
	TotalQuestions   int                `json:"totalQuestions"`
	Answers          map[string]int     `json:"answers"`
	RemainingSeconds int                `json:"remainingSeconds"`
	Result           *domain.QuizResult `json:"result,omitempty"`
}

// Session drives one user through one quiz attempt: sequencing questions,
// enforcing the per-question countdown, recording answers and computing the
// final score. All mutable state is owned by this one instance and guarded
// by its mutex; it is discarded, not reused, between attempts.
type Session struct {
	mu sync.Mutex

	state     SessionState
	quiz      domain.Quiz
	questions []domain.Question
	user      domain.User

	current   int
	answers   map[string]int
	result    *domain.QuizResult
	startedAt time.Time
	deadline  time.Time

	// generation invalidates in-flight countdowns: a timer only fires for
	// the question it was armed for.
	generation int
	timer      *time.Timer

	now    func() time.Time
	submit func(ctx context.Context, result domain.QuizResult) error
	log    *logrus.Entry
}

func newSession(quiz domain.Quiz, questions []domain.Question, user domain.User, submit func(context.Context, domain.QuizResult) error, now func() time.Time, log *logrus.Entry) *Session {
	return &Session{
		state:     StateReady,
		quiz:      quiz,
		questions: questions,
		user:      user,
		answers:   make(map[string]int),
		now:       now,
		submit:    submit,
		log:       log,
	}
}

func newFinishedSession(quiz domain.Quiz, questions []domain.Question, user domain.User, result domain.QuizResult, now func() time.Time, log *logrus.Entry) *Session {
	s := newSession(quiz, questions, user, nil, now, log)
	s.state = StateFinished
	s.result = &result
	return s
}

// QuizID and UserID identify the attempt in the store.
func (s *Session) QuizID() string { return s.quiz.ID }
func (s *Session) UserID() string { return s.user.ID }

// Start moves Ready -> InProgress, arms the first countdown and resets
// progression to the first question.
func (s *Session) Start() (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return s.viewLocked(), domain.ErrInvalidState
	}
	s.state = StateInProgress
	s.current = 0
	s.startedAt = s.now()
	s.armTimerLocked()
	return s.viewLocked(), nil
}

// SelectAnswer records the chosen option for the current question. The
// first recorded answer locks the question: later selections are rejected
// until the session has advanced past it. This closes the race between a
// timer expiry and a rapid repeated click.
func (s *Session) SelectAnswer(questionID string, optionIndex int) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return s.viewLocked(), domain.ErrInvalidState
	}
	question := s.findQuestionLocked(questionID)
	if question == nil {
		return s.viewLocked(), domain.ErrQuestionNotFound
	}
	if _, answered := s.answers[questionID]; answered {
		return s.viewLocked(), domain.ErrQuestionLocked
	}
	if question.ID != s.questions[s.current].ID {
		return s.viewLocked(), domain.ErrInvalidState
	}
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return s.viewLocked(), domain.ErrOptionOutOfRange
	}
	s.answers[questionID] = optionIndex
	return s.viewLocked(), nil
}

// Advance moves to the next question, or submits on the last one. A manual
// advance requires a recorded answer for the current question; a timeout
// advance does not; that question simply scores as incorrect by absence.
func (s *Session) Advance(ctx context.Context) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked(ctx, false)
}

func (s *Session) advanceLocked(ctx context.Context, timeout bool) (SessionView, error) {
	if s.state != StateInProgress {
		return s.viewLocked(), domain.ErrInvalidState
	}
	if !timeout {
		if _, answered := s.answers[s.questions[s.current].ID]; !answered {
			return s.viewLocked(), domain.ErrAnswerRequired
		}
	}
	if s.current < len(s.questions)-1 {
		s.current++
		s.armTimerLocked()
		return s.viewLocked(), nil
	}
	return s.submitLocked(ctx)
}

// submitLocked computes the score and writes exactly one result for
// (quiz, user). On a store failure the session stays InProgress so the
// submission may be retried; no partial result is ever written.
func (s *Session) submitLocked(ctx context.Context) (SessionView, error) {
	correct := 0
	for _, q := range s.questions {
		if idx, ok := s.answers[q.ID]; ok && idx == q.CorrectIndex {
			correct++
		}
	}
	total := len(s.questions)
	score := int(math.Round(float64(correct) * 100 / float64(total)))

	now := s.now()
	result := domain.QuizResult{
		QuizID:         s.quiz.ID,
		UserID:         s.user.ID,
		Username:       s.user.Username,
		AvatarURL:      s.user.AvatarURL,
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: total,
		TimeSpent:      int(now.Sub(s.startedAt) / time.Second),
		CompletedAt:    now,
	}
	if err := s.submit(ctx, result); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"quiz": s.quiz.ID,
			"user": s.user.ID,
		}).Error("result submission failed")
		return s.viewLocked(), err
	}
	s.stopTimerLocked()
	s.state = StateFinished
	s.result = &result
	return s.viewLocked(), nil
}

// Discard releases the countdown and abandons in-memory progress. No
// partial result is written.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	if s.state == StateInProgress || s.state == StateReady {
		s.state = StateUnloaded
	}
}

// View returns a snapshot of the attempt.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// armTimerLocked replaces the countdown for the question that just became
// current. The generation guard means a countdown can never fire after its
// owning question has changed, so a stale expiry cannot double-advance.
func (s *Session) armTimerLocked() {
	s.stopTimerLocked()
	s.generation++
	gen := s.generation
	duration := time.Duration(s.quiz.TimerSeconds) * time.Second
	s.deadline = s.now().Add(duration)
	s.timer = time.AfterFunc(duration, func() { s.expire(gen) })
}

func (s *Session) stopTimerLocked() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) expire(generation int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress || generation != s.generation {
		return
	}
	if _, err := s.advanceLocked(context.Background(), true); err != nil {
		// Failed auto-submit keeps the session InProgress; the user
		// retries manually. Failures here are one-shot, reported once.
		s.log.WithError(err).WithField("quiz", s.quiz.ID).Warn("timeout advance failed")
	}
}

func (s *Session) findQuestionLocked(questionID string) *domain.Question {
	for i := range s.questions {
		if s.questions[i].ID == questionID {
			return &s.questions[i]
		}
	}
	return nil
}

func (s *Session) viewLocked() SessionView {
	answers := make(map[string]int, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	view := SessionView{
		State:          s.state,
		Quiz:           s.quiz,
		CurrentIndex:   s.current,
		TotalQuestions: len(s.questions),
		Answers:        answers,
		Result:         s.result,
	}
	if s.state == StateInProgress {
		if remaining := s.deadline.Sub(s.now()); remaining > 0 {
			view.RemainingSeconds = int(remaining / time.Second)
		}
		q := s.questions[s.current]
		view.CurrentQuestion = &QuestionView{
			ID:      q.ID,
			Text:    q.Text,
			Options: q.Options,
			Order:   q.Order,
		}
	}
	return view
}
