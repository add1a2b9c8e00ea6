package domain

import "time"

// Role is the application-level role of a user. Admin supersedes host
// everywhere a host check is made.
type Role string

const (
	RolePlayer Role = "player"
	RoleHost   Role = "host"
	RoleAdmin  Role = "admin"
)

// CanHost reports whether the role may author quizzes.
func (r Role) CanHost() bool {
	return r == RoleHost || r == RoleAdmin
}

// QuizStatus is the lifecycle state of a quiz.
type QuizStatus string

const (
	StatusDraft     QuizStatus = "draft"
	StatusScheduled QuizStatus = "scheduled"
	StatusLive      QuizStatus = "live"
	StatusCompleted QuizStatus = "completed"
)

// CreatorType records which kind of account authored a quiz.
type CreatorType string

const (
	CreatorAdmin CreatorType = "admin"
	CreatorHost  CreatorType = "host"
)

// User is the application user record keyed by the external identity ID.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Quiz is quiz metadata; questions are stored separately and counted here.
// QuestionCount is denormalized and maintained in the same mutation that
// changes the question set.
type Quiz struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	CreatorID       string      `json:"creatorId"`
	CreatorUsername string      `json:"creatorUsername"`
	CreatorType     CreatorType `json:"creatorType"`
	IsGeneral       bool        `json:"isGeneral"`
	Status          QuizStatus  `json:"status"`
	TimerSeconds    int         `json:"timerSeconds"`
	ScheduledAt     *time.Time  `json:"scheduledAt,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	QuestionCount   int         `json:"questionCount"`
}

// Question is a multiple-choice question owned by exactly one quiz.
// Order is 1-based and defines sequencing within the quiz.
type Question struct {
	ID           string   `json:"id"`
	QuizID       string   `json:"quizId"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Order        int      `json:"order"`
}

// QuizResult is the single stored outcome of an attempt. The storage key is
// exactly (QuizID, UserID), so a second submission overwrites rather than
// duplicates.
type QuizResult struct {
	QuizID         string    `json:"quizId"`
	UserID         string    `json:"userId"`
	Username       string    `json:"username"`
	AvatarURL      string    `json:"avatarUrl,omitempty"`
	Score          int       `json:"score"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	TimeSpent      int       `json:"timeSpent"`
	CompletedAt    time.Time `json:"completedAt"`
}

// LeaderboardEntry is derived from results on demand and never persisted.
type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	AvatarURL      string `json:"avatarUrl,omitempty"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correctAnswers"`
	TotalQuestions int    `json:"totalQuestions"`
}

// Audience selects which quizzes a listing returns.
type Audience string

const (
	// AudienceGeneral lists general quizzes, drafts excluded.
	AudienceGeneral Audience = "general"
	// AudienceHost lists host-authored quizzes, drafts excluded.
	AudienceHost Audience = "host"
)
