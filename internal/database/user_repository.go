package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/richarrd92/hobbymatch/internal/domain"
)

// userColumns must match the Scan order in scanUser.
const userColumns = `id, auth_uid, name, email, profile_pic_url, created_at`

// UserRepo implements domain.UserRepository backed by PostgreSQL.
type UserRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo creates a UserRepo from the shared connection pool.
func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID, &user.AuthUID, &user.Name, &user.Email,
		&user.ProfilePicURL, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert creates the user on first sign-in and refreshes name/email after.
func (r *UserRepo) Upsert(ctx context.Context, authUID, name, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (auth_uid, name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (auth_uid) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email
		RETURNING `+userColumns,
		authUID, name, email)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return user, nil
}

func (r *UserRepo) GetByAuthUID(ctx context.Context, authUID string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE auth_uid = $1`, authUID)
	return scanUser(row)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}
