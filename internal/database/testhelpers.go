package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/richarrd92/hobbymatch/internal/domain"
)

// CreateTestUser creates a user with default values for testing.
func CreateTestUser(t *testing.T, pool *pgxpool.Pool, authUID string) *domain.User {
	t.Helper()

	repo := NewUserRepo(pool)
	user, err := repo.Upsert(context.Background(), authUID, "testuser_"+authUID, authUID+"@example.com")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, user.ID)

	return user
}

// CreateTestPost creates a post for user expiring at expiresAt.
func CreateTestPost(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, imageKey string, expiresAt time.Time) *domain.Post {
	t.Helper()

	repo := NewPostRepo(pool)
	post := &domain.Post{
		UserID:    userID,
		Content:   "test post",
		ImageKey:  imageKey,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	require.NoError(t, repo.CreatePost(context.Background(), post))
	require.NotEqual(t, uuid.Nil, post.ID)

	return post
}
