package domain

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// PostRepository persists posts, comments and reactions.
type PostRepository interface {
	CreatePost(ctx context.Context, post *Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)
	ListFeed(ctx context.Context, now time.Time) ([]FeedPost, error)
	DeletePost(ctx context.Context, id, userID uuid.UUID) (*ExpiredPost, error)
	CreateComment(ctx context.Context, comment *Comment) error
	UpsertReaction(ctx context.Context, reaction *Reaction) error

	// FindExpired returns posts with expires_at at or before now.
	FindExpired(ctx context.Context, now time.Time) ([]ExpiredPost, error)
	// DeleteCascade removes the given posts and their comments and
	// reactions in a single transaction.
	DeleteCascade(ctx context.Context, ids []uuid.UUID) error
}

// UserRepository persists platform users.
type UserRepository interface {
	Upsert(ctx context.Context, authUID, name, email string) (*User, error)
	GetByAuthUID(ctx context.Context, authUID string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// MediaStore holds uploaded post images in external object storage.
// Delete is best-effort: the caller logs failures and moves on.
type MediaStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Identity is the verified subject of an identity token.
type Identity struct {
	AuthUID string
	Name    string
	Email   string
}

// TokenVerifier checks an identity token and returns the identity it
// asserts. Token issuance belongs to the external identity provider.
type TokenVerifier interface {
	Verify(token string) (*Identity, error)
}
