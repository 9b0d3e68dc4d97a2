package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind discriminates feed event payloads.
type EventKind string

const (
	EventNewPost     EventKind = "new_post"
	EventNewComment  EventKind = "new_comment"
	EventNewReaction EventKind = "new_reaction"
	EventDeletePost  EventKind = "delete_post"
)

// Event is a transient feed message delivered to live clients.
// Implementations are immutable value types, one per kind.
type Event interface {
	Kind() EventKind
}

// NewPostEvent announces a freshly created post.
type NewPostEvent struct {
	ID             uuid.UUID      `json:"id"`
	Content        string         `json:"content"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
	UserID         uuid.UUID      `json:"user_id"`
	Name           string         `json:"name"`
	ProfilePicURL  string         `json:"profile_pic_url"`
	ImageURL       string         `json:"image_url"`
	HobbyID        string         `json:"hobby_id"`
	ReactionCounts map[string]int `json:"reaction_counts"`
	CommentCount   int            `json:"comment_count"`
}

func (NewPostEvent) Kind() EventKind { return EventNewPost }

// NewCommentEvent announces a comment added to a post.
type NewCommentEvent struct {
	ID            uuid.UUID `json:"id"`
	PostID        uuid.UUID `json:"post_id"`
	UserID        uuid.UUID `json:"user_id"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	UserName      string    `json:"user_name"`
	ProfilePicURL string    `json:"profile_pic_url"`
}

func (NewCommentEvent) Kind() EventKind { return EventNewComment }

// NewReactionEvent announces a reaction added to a post.
type NewReactionEvent struct {
	PostID       uuid.UUID `json:"post_id"`
	UserID       uuid.UUID `json:"user_id"`
	ReactionType string    `json:"reaction_type"`
}

func (NewReactionEvent) Kind() EventKind { return EventNewReaction }

// DeletePostEvent tells clients to evict a post from their local view.
type DeletePostEvent struct {
	PostID uuid.UUID `json:"post_id"`
}

func (DeletePostEvent) Kind() EventKind { return EventDeletePost }

// envelope is the wire format: {"type": "<kind>", "data": {...}}.
type envelope struct {
	Type EventKind       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalEvent serializes an event into its wire envelope.
func MarshalEvent(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", e.Kind(), err)
	}
	return json.Marshal(envelope{Type: e.Kind(), Data: data})
}

// UnmarshalEvent parses a wire envelope back into a typed event.
// Unknown kinds and malformed payloads return an error.
func UnmarshalEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	var (
		event Event
		err   error
	)
	switch env.Type {
	case EventNewPost:
		var e NewPostEvent
		err = json.Unmarshal(env.Data, &e)
		event = e
	case EventNewComment:
		var e NewCommentEvent
		err = json.Unmarshal(env.Data, &e)
		event = e
	case EventNewReaction:
		var e NewReactionEvent
		err = json.Unmarshal(env.Data, &e)
		event = e
	case EventDeletePost:
		var e DeletePostEvent
		err = json.Unmarshal(env.Data, &e)
		event = e
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
	}
	return event, nil
}
