package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReactionType enumerates the reactions a user can give a post.
type ReactionType string

const (
	ReactionLike  ReactionType = "like"
	ReactionLove  ReactionType = "love"
	ReactionFire  ReactionType = "fire"
	ReactionLaugh ReactionType = "laugh"
	ReactionSad   ReactionType = "sad"
)

// Valid reports whether t is a known reaction type.
func (t ReactionType) Valid() bool {
	switch t {
	case ReactionLike, ReactionLove, ReactionFire, ReactionLaugh, ReactionSad:
		return true
	}
	return false
}

// User is a platform user. Only the fields the feed needs are carried here;
// authentication is handled by an external identity provider keyed by AuthUID.
type User struct {
	ID            uuid.UUID
	AuthUID       string
	Name          string
	Email         string
	ProfilePicURL string
	CreatedAt     time.Time
}

// Post is an ephemeral feed post. ExpiresAt is always CreatedAt + the
// configured TTL; the sweeper retires posts past it.
type Post struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Content   string
	ImageURL  string
	ImageKey  string
	HobbyID   uuid.NullUUID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// FeedPost is a post joined with author info and aggregate counts, as served
// by the feed listing.
type FeedPost struct {
	Post
	Name           string
	ProfilePicURL  string
	ReactionCounts map[string]int
	CommentCount   int
}

// Comment is a user comment on a post.
type Comment struct {
	ID        uuid.UUID
	PostID    uuid.UUID
	UserID    uuid.UUID
	Content   string
	CreatedAt time.Time
}

// Reaction is a user reaction on a post. One reaction per user per post.
type Reaction struct {
	ID        uuid.UUID
	PostID    uuid.UUID
	UserID    uuid.UUID
	Type      ReactionType
	CreatedAt time.Time
}

// ExpiredPost is the projection the sweeper works with: the post id plus the
// media object key to clean up, if any.
type ExpiredPost struct {
	ID       uuid.UUID
	ImageKey string
}
