package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo/facturo/internal/shared"
)

// User is a login account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// Repository provides PostgreSQL backed persistence for login users.
type Repository interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.scanOne(ctx, `
		SELECT id, username, password_hash, is_active, created_at
		FROM users WHERE username = $1`, username)
}

func (r *repository) GetByID(ctx context.Context, id int64) (User, error) {
	return r.scanOne(ctx, `
		SELECT id, username, password_hash, is_active, created_at
		FROM users WHERE id = $1`, id)
}

func (r *repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`,
		passwordHash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) scanOne(ctx context.Context, query string, args ...any) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}
