package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/Krusherk/ritquiz/internal/domain"
)

// UserRepository stores users and username reservations in Postgres. A
// claim inserts the reservation and the user record in one transaction, so
// partial failure can never leave an orphaned reservation.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, username, display_name, email, avatar_url, role, created_at, updated_at`

func (r *UserRepository) Get(ctx context.Context, id string) (domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	return scanUser(row)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1 LIMIT 1`, email)
	return scanUser(row)
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO usernames (username, user_id) VALUES ($1, $2) ON CONFLICT (username) DO NOTHING`,
		strings.ToLower(user.Username), user.ID)
	if err != nil {
		return fmt.Errorf("reserve username: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUsernameTaken
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		user.ID, user.Username, user.DisplayName, user.Email, user.AvatarURL,
		string(user.Role), user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET username=$2, display_name=$3, email=$4, avatar_url=$5, role=$6, updated_at=$7 WHERE id=$1`,
		user.ID, user.Username, user.DisplayName, user.Email, user.AvatarURL,
		string(user.Role), user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM usernames WHERE username=$1)`,
		strings.ToLower(username)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	var role string
	err := row.Scan(&user.ID, &user.Username, &user.DisplayName, &user.Email,
		&user.AvatarURL, &role, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.Role = domain.Role(role)
	return user, nil
}
