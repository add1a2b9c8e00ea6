package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/Krusherk/ritquiz/internal/domain"
)

// QuizRepository stores quizzes and their questions in Postgres. Question
// mutations adjust the quiz's denormalized question_count in the same
// transaction, so the counter cannot drift from its source.
type QuizRepository struct {
	pool *pgxpool.Pool
}

func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

const quizColumns = `id, title, description, creator_id, creator_username, creator_type, is_general, status, timer_seconds, scheduled_at, created_at, question_count`

func (r *QuizRepository) Create(ctx context.Context, quiz domain.Quiz) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO quizzes (`+quizColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		quiz.ID, quiz.Title, quiz.Description, quiz.CreatorID, quiz.CreatorUsername,
		string(quiz.CreatorType), quiz.IsGeneral, string(quiz.Status), quiz.TimerSeconds,
		quiz.ScheduledAt, quiz.CreatedAt, quiz.QuestionCount)
	if err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

func (r *QuizRepository) Get(ctx context.Context, id string) (domain.Quiz, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, id)
	return scanQuiz(row)
}

func (r *QuizRepository) Update(ctx context.Context, quiz domain.Quiz) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET title=$2, description=$3, is_general=$4, status=$5, timer_seconds=$6, scheduled_at=$7 WHERE id=$1`,
		quiz.ID, quiz.Title, quiz.Description, quiz.IsGeneral, string(quiz.Status),
		quiz.TimerSeconds, quiz.ScheduledAt)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (r *QuizRepository) List(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (r *QuizRepository) AddQuestion(ctx context.Context, q domain.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin add question: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO questions (id, quiz_id, text, options, correct_index, ord) VALUES ($1,$2,$3,$4,$5,$6)`,
		q.ID, q.QuizID, q.Text, options, q.CorrectIndex, q.Order)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE quizzes SET question_count = question_count + 1 WHERE id=$1`, q.QuizID)
	if err != nil {
		return fmt.Errorf("bump question count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return tx.Commit(ctx)
}

func (r *QuizRepository) UpdateQuestion(ctx context.Context, q domain.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE questions SET text=$3, options=$4, correct_index=$5 WHERE id=$1 AND quiz_id=$2`,
		q.ID, q.QuizID, q.Text, options, q.CorrectIndex)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (r *QuizRepository) DeleteQuestion(ctx context.Context, quizID, questionID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete question: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM questions WHERE id=$1 AND quiz_id=$2`, questionID, quizID)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}

	_, err = tx.Exec(ctx,
		`UPDATE quizzes SET question_count = GREATEST(question_count - 1, 0) WHERE id=$1`, quizID)
	if err != nil {
		return fmt.Errorf("drop question count: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *QuizRepository) Questions(ctx context.Context, quizID string) ([]domain.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quiz_id, text, options, correct_index, ord FROM questions WHERE quiz_id=$1 ORDER BY ord`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &options, &q.CorrectIndex, &q.Order); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var quiz domain.Quiz
	var creatorType, status string
	err := row.Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.CreatorID,
		&quiz.CreatorUsername, &creatorType, &quiz.IsGeneral, &status,
		&quiz.TimerSeconds, &quiz.ScheduledAt, &quiz.CreatedAt, &quiz.QuestionCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("scan quiz: %w", err)
	}
	quiz.CreatorType = domain.CreatorType(creatorType)
	quiz.Status = domain.QuizStatus(status)
	return quiz, nil
}
