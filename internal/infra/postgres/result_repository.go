package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/Krusherk/ritquiz/internal/domain"
)

// ResultRepository stores quiz results in Postgres. The primary key is
// exactly (quiz_id, user_id), so a re-submission upserts instead of
// duplicating.
type ResultRepository struct {
	pool *pgxpool.Pool
}

func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

const resultColumns = `quiz_id, user_id, username, avatar_url, score, correct_answers, total_questions, time_spent, completed_at`

func (r *ResultRepository) Get(ctx context.Context, quizID, userID string) (domain.QuizResult, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM results WHERE quiz_id=$1 AND user_id=$2`, quizID, userID)
	return scanResult(row)
}

func (r *ResultRepository) Put(ctx context.Context, result domain.QuizResult) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO results (`+resultColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (quiz_id, user_id) DO UPDATE SET
		   username=EXCLUDED.username, avatar_url=EXCLUDED.avatar_url,
		   score=EXCLUDED.score, correct_answers=EXCLUDED.correct_answers,
		   total_questions=EXCLUDED.total_questions, time_spent=EXCLUDED.time_spent,
		   completed_at=EXCLUDED.completed_at`,
		result.QuizID, result.UserID, result.Username, result.AvatarURL,
		result.Score, result.CorrectAnswers, result.TotalQuestions,
		result.TimeSpent, result.CompletedAt)
	if err != nil {
		return fmt.Errorf("put result: %w", err)
	}
	return nil
}

// ListByQuiz returns results in arrival order (completion time ascending);
// ranking happens in the aggregator.
func (r *ResultRepository) ListByQuiz(ctx context.Context, quizID string) ([]domain.QuizResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM results WHERE quiz_id=$1 ORDER BY completed_at`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []domain.QuizResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func scanResult(row pgx.Row) (domain.QuizResult, error) {
	var result domain.QuizResult
	err := row.Scan(&result.QuizID, &result.UserID, &result.Username,
		&result.AvatarURL, &result.Score, &result.CorrectAnswers,
		&result.TotalQuestions, &result.TimeSpent, &result.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizResult{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.QuizResult{}, fmt.Errorf("scan result: %w", err)
	}
	return result, nil
}
