package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/richarrd92/hobbymatch/internal/domain"
)

// PostRepo implements domain.PostRepository backed by PostgreSQL.
type PostRepo struct {
	pool *pgxpool.Pool
}

// NewPostRepo creates a PostRepo from the shared connection pool.
func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

func (r *PostRepo) CreatePost(ctx context.Context, post *domain.Post) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO user_posts (user_id, content, image_url, image_key, hobby_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, post.UserID, post.Content, post.ImageURL, post.ImageKey, post.HobbyID, post.CreatedAt, post.ExpiresAt).Scan(&post.ID)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

func (r *PostRepo) GetPost(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	var post domain.Post
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, content, image_url, image_key, hobby_id, created_at, expires_at
		FROM user_posts
		WHERE id = $1
	`, id).Scan(
		&post.ID, &post.UserID, &post.Content, &post.ImageURL, &post.ImageKey,
		&post.HobbyID, &post.CreatedAt, &post.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &post, nil
}

// ListFeed returns unexpired posts, newest first, with author info and
// aggregate counts.
func (r *PostRepo) ListFeed(ctx context.Context, now time.Time) ([]domain.FeedPost, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.user_id, p.content, p.image_url, p.image_key, p.hobby_id,
		       p.created_at, p.expires_at, u.name, u.profile_pic_url
		FROM user_posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.expires_at > $1
		ORDER BY p.created_at DESC
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}
	defer rows.Close()

	var (
		feed []domain.FeedPost
		ids  []uuid.UUID
	)
	for rows.Next() {
		var fp domain.FeedPost
		if err := rows.Scan(
			&fp.ID, &fp.UserID, &fp.Content, &fp.ImageURL, &fp.ImageKey, &fp.HobbyID,
			&fp.CreatedAt, &fp.ExpiresAt, &fp.Name, &fp.ProfilePicURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feed post: %w", err)
		}
		fp.ReactionCounts = make(map[string]int)
		feed = append(feed, fp)
		ids = append(ids, fp.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feed rows: %w", err)
	}
	if len(feed) == 0 {
		return feed, nil
	}

	if err := r.fillReactionCounts(ctx, feed, ids); err != nil {
		return nil, err
	}
	if err := r.fillCommentCounts(ctx, feed, ids); err != nil {
		return nil, err
	}
	return feed, nil
}

func (r *PostRepo) fillReactionCounts(ctx context.Context, feed []domain.FeedPost, ids []uuid.UUID) error {
	rows, err := r.pool.Query(ctx, `
		SELECT post_id, type, COUNT(*)
		FROM post_reactions
		WHERE post_id = ANY($1)
		GROUP BY post_id, type
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query reaction counts: %w", err)
	}
	defer rows.Close()

	byPost := make(map[uuid.UUID]map[string]int)
	for rows.Next() {
		var (
			postID       uuid.UUID
			reactionType string
			count        int
		)
		if err := rows.Scan(&postID, &reactionType, &count); err != nil {
			return fmt.Errorf("failed to scan reaction count: %w", err)
		}
		if byPost[postID] == nil {
			byPost[postID] = make(map[string]int)
		}
		byPost[postID][reactionType] = count
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read reaction count rows: %w", err)
	}

	for i := range feed {
		if counts, ok := byPost[feed[i].ID]; ok {
			feed[i].ReactionCounts = counts
		}
	}
	return nil
}

func (r *PostRepo) fillCommentCounts(ctx context.Context, feed []domain.FeedPost, ids []uuid.UUID) error {
	rows, err := r.pool.Query(ctx, `
		SELECT post_id, COUNT(*)
		FROM post_comments
		WHERE post_id = ANY($1)
		GROUP BY post_id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query comment counts: %w", err)
	}
	defer rows.Close()

	byPost := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			postID uuid.UUID
			count  int
		)
		if err := rows.Scan(&postID, &count); err != nil {
			return fmt.Errorf("failed to scan comment count: %w", err)
		}
		byPost[postID] = count
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read comment count rows: %w", err)
	}

	for i := range feed {
		feed[i].CommentCount = byPost[feed[i].ID]
	}
	return nil
}

// DeletePost removes one post owned by userID, cascading to its comments and
// reactions. Returns the media key for cleanup, or domain.ErrNotFound when
// the post does not exist or belongs to someone else.
func (r *PostRepo) DeletePost(ctx context.Context, id, userID uuid.UUID) (*domain.ExpiredPost, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var deleted domain.ExpiredPost
	err = tx.QueryRow(ctx, `
		SELECT id, image_key FROM user_posts WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&deleted.ID, &deleted.ImageKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up post: %w", err)
	}

	if err := deleteCascadeTx(ctx, tx, []uuid.UUID{id}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit delete: %w", err)
	}
	return &deleted, nil
}

func (r *PostRepo) CreateComment(ctx context.Context, comment *domain.Comment) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO post_comments (post_id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, comment.PostID, comment.UserID, comment.Content, comment.CreatedAt).Scan(&comment.ID)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// UpsertReaction inserts or replaces the user's reaction on a post.
func (r *PostRepo) UpsertReaction(ctx context.Context, reaction *domain.Reaction) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO post_reactions (post_id, user_id, type, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (post_id, user_id) DO UPDATE SET
			type = EXCLUDED.type,
			created_at = EXCLUDED.created_at
		RETURNING id
	`, reaction.PostID, reaction.UserID, reaction.Type, reaction.CreatedAt).Scan(&reaction.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert reaction: %w", err)
	}
	return nil
}

// FindExpired returns posts with expires_at at or before now, with their
// media keys for external cleanup.
func (r *PostRepo) FindExpired(ctx context.Context, now time.Time) ([]domain.ExpiredPost, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, image_key FROM user_posts WHERE expires_at <= $1
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired posts: %w", err)
	}
	defer rows.Close()

	var expired []domain.ExpiredPost
	for rows.Next() {
		var ep domain.ExpiredPost
		if err := rows.Scan(&ep.ID, &ep.ImageKey); err != nil {
			return nil, fmt.Errorf("failed to scan expired post: %w", err)
		}
		expired = append(expired, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read expired post rows: %w", err)
	}
	return expired, nil
}

// DeleteCascade removes the given posts with their comments and reactions in
// a single transaction. Dependents go first so no dangling references survive
// a partial failure.
func (r *PostRepo) DeleteCascade(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := deleteCascadeTx(ctx, tx, ids); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit cascade delete: %w", err)
	}
	return nil
}

func deleteCascadeTx(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM post_comments WHERE post_id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM post_reactions WHERE post_id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete reactions: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM user_posts WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete posts: %w", err)
	}
	return nil
}
