package server

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/richarrd92/hobbymatch/internal/domain"
	apperrors "github.com/richarrd92/hobbymatch/internal/errors"
	"github.com/richarrd92/hobbymatch/internal/logging"
)

const (
	maxPostContentLen    = 500
	maxCommentContentLen = 300
	maxImageBytes        = 5 << 20
)

type feedPostJSON struct {
	ID             string         `json:"id"`
	Content        string         `json:"content"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
	UserID         string         `json:"user_id"`
	Name           string         `json:"name"`
	ProfilePicURL  string         `json:"profile_pic_url"`
	ImageURL       string         `json:"image_url"`
	HobbyID        string         `json:"hobby_id"`
	ReactionCounts map[string]int `json:"reaction_counts"`
	CommentCount   int            `json:"comment_count"`
}

func feedPostResponse(fp domain.FeedPost) feedPostJSON {
	return feedPostJSON{
		ID:             fp.ID.String(),
		Content:        fp.Content,
		CreatedAt:      fp.CreatedAt,
		ExpiresAt:      fp.ExpiresAt,
		UserID:         fp.UserID.String(),
		Name:           fp.Name,
		ProfilePicURL:  fp.ProfilePicURL,
		ImageURL:       fp.ImageURL,
		HobbyID:        nullUUIDString(fp.HobbyID),
		ReactionCounts: fp.ReactionCounts,
		CommentCount:   fp.CommentCount,
	}
}

func nullUUIDString(id uuid.NullUUID) string {
	if !id.Valid {
		return ""
	}
	return id.UUID.String()
}

func (s *Server) handleListFeed(c echo.Context) error {
	feed, err := s.posts.ListFeed(c.Request().Context(), s.clock.Now().UTC())
	if err != nil {
		return apperrors.Internal("failed to list feed", err)
	}

	out := make([]feedPostJSON, 0, len(feed))
	for _, fp := range feed {
		out = append(out, feedPostResponse(fp))
	}
	return c.JSON(200, map[string]any{"posts": out})
}

func (s *Server) handleCreatePost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	content := c.FormValue("content")
	if content == "" {
		return apperrors.Validation("content is required")
	}
	if len(content) > maxPostContentLen {
		return apperrors.Validation(fmt.Sprintf("content exceeds %d characters", maxPostContentLen))
	}

	var hobbyID uuid.NullUUID
	if raw := c.FormValue("hobby_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return apperrors.Validation("invalid hobby_id").WithField("hobby_id", raw)
		}
		hobbyID = uuid.NullUUID{UUID: parsed, Valid: true}
	}

	now := s.clock.Now().UTC()
	post := &domain.Post{
		UserID:    user.ID,
		Content:   content,
		HobbyID:   hobbyID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.PostTTL),
	}

	if file, err := c.FormFile("image"); err == nil {
		if s.media == nil {
			return apperrors.Validation("image uploads are not enabled")
		}
		if file.Size > maxImageBytes {
			return apperrors.Validation("image too large")
		}

		src, err := file.Open()
		if err != nil {
			return apperrors.Internal("failed to read upload", err)
		}
		defer src.Close()

		key := "posts/" + uuid.NewString() + filepath.Ext(file.Filename)
		url, err := s.media.Upload(ctx, key, src, file.Header.Get("Content-Type"))
		if err != nil {
			return apperrors.Internal("failed to store image", err)
		}
		post.ImageKey = key
		post.ImageURL = url
	}

	if err := s.posts.CreatePost(ctx, post); err != nil {
		return apperrors.Internal("failed to create post", err)
	}

	s.broadcaster.Broadcast(ctx, domain.NewPostEvent{
		ID:             post.ID,
		Content:        post.Content,
		CreatedAt:      post.CreatedAt,
		ExpiresAt:      post.ExpiresAt,
		UserID:         user.ID,
		Name:           user.Name,
		ProfilePicURL:  user.ProfilePicURL,
		ImageURL:       post.ImageURL,
		HobbyID:        nullUUIDString(post.HobbyID),
		ReactionCounts: map[string]int{},
		CommentCount:   0,
	})

	return c.JSON(201, feedPostResponse(domain.FeedPost{
		Post:           *post,
		Name:           user.Name,
		ProfilePicURL:  user.ProfilePicURL,
		ReactionCounts: map[string]int{},
	}))
}

func (s *Server) handleDeletePost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.Validation("invalid post id")
	}
	ctx := c.Request().Context()

	deleted, err := s.posts.DeletePost(ctx, postID, user.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return apperrors.NotFound("post not found").WithField("post_id", postID.String())
	}
	if err != nil {
		return apperrors.Internal("failed to delete post", err)
	}

	if s.media != nil && deleted.ImageKey != "" {
		// Best-effort; the record is already gone.
		if err := s.media.Delete(ctx, deleted.ImageKey); err != nil {
			logging.WithPost(postID.String()).Warn("Failed to delete media object", "key", deleted.ImageKey, "error", err)
		}
	}

	s.broadcaster.Broadcast(ctx, domain.DeletePostEvent{PostID: postID})

	return c.JSON(200, map[string]string{"status": "deleted"})
}

func (s *Server) handleCreateComment(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.Validation("invalid post id")
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&body); err != nil {
		return apperrors.Validation("invalid request body")
	}
	if body.Content == "" {
		return apperrors.Validation("content is required")
	}
	if len(body.Content) > maxCommentContentLen {
		return apperrors.Validation(fmt.Sprintf("content exceeds %d characters", maxCommentContentLen))
	}
	ctx := c.Request().Context()

	if _, err := s.posts.GetPost(ctx, postID); errors.Is(err, domain.ErrNotFound) {
		return apperrors.NotFound("post not found").WithField("post_id", postID.String())
	} else if err != nil {
		return apperrors.Internal("failed to load post", err)
	}

	comment := &domain.Comment{
		PostID:    postID,
		UserID:    user.ID,
		Content:   body.Content,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.posts.CreateComment(ctx, comment); err != nil {
		return apperrors.Internal("failed to create comment", err)
	}

	s.broadcaster.Broadcast(ctx, domain.NewCommentEvent{
		ID:            comment.ID,
		PostID:        postID,
		UserID:        user.ID,
		Content:       comment.Content,
		CreatedAt:     comment.CreatedAt,
		UserName:      user.Name,
		ProfilePicURL: user.ProfilePicURL,
	})

	return c.JSON(201, map[string]string{"id": comment.ID.String()})
}

func (s *Server) handleCreateReaction(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.Validation("invalid post id")
	}

	var body struct {
		ReactionType string `json:"reaction_type"`
	}
	if err := c.Bind(&body); err != nil {
		return apperrors.Validation("invalid request body")
	}
	reactionType := domain.ReactionType(body.ReactionType)
	if !reactionType.Valid() {
		return apperrors.Validation("unknown reaction type").WithField("reaction_type", body.ReactionType)
	}
	ctx := c.Request().Context()

	if _, err := s.posts.GetPost(ctx, postID); errors.Is(err, domain.ErrNotFound) {
		return apperrors.NotFound("post not found").WithField("post_id", postID.String())
	} else if err != nil {
		return apperrors.Internal("failed to load post", err)
	}

	reaction := &domain.Reaction{
		PostID:    postID,
		UserID:    user.ID,
		Type:      reactionType,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.posts.UpsertReaction(ctx, reaction); err != nil {
		return apperrors.Internal("failed to save reaction", err)
	}

	s.broadcaster.Broadcast(ctx, domain.NewReactionEvent{
		PostID:       postID,
		UserID:       user.ID,
		ReactionType: string(reactionType),
	})

	return c.JSON(200, map[string]string{"status": "ok"})
}
