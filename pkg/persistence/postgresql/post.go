package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
)

// PostRepository handles scheduled-post database operations.
type PostRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const postColumns = `
	id
  , platform
  , content
  , media_urls
  , hashtags
  , scheduled_at
  , status
  , published_at
  , external_post_id
  , error
  , created_at
  , updated_at
`

func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE id = $1`

	post, err := r.scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewOpError("GetByID", id, persistence.ErrPostNotFound)
		}

		return nil, fmt.Errorf("failed to scan scheduled post: %w", err)
	}

	return post, nil
}

func (r *PostRepository) Save(ctx context.Context, post *models.ScheduledPost) error {
	mediaJSON, err := json.Marshal(post.MediaURLs)
	if err != nil {
		return fmt.Errorf("failed to marshal media urls: %w", err)
	}

	hashtagsJSON, err := json.Marshal(post.Hashtags)
	if err != nil {
		return fmt.Errorf("failed to marshal hashtags: %w", err)
	}

	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}

	post.UpdatedAt = now

	query := `
		INSERT INTO scheduled_posts
			(id, platform, content, media_urls, hashtags, scheduled_at, status,
			 published_at, external_post_id, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status
		  , published_at = EXCLUDED.published_at
		  , external_post_id = EXCLUDED.external_post_id
		  , error = EXCLUDED.error
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		post.ID, post.Platform, post.Content, mediaJSON, hashtagsJSON,
		post.ScheduledAt, string(post.Status), post.PublishedAt,
		post.ExternalPostID, post.Error, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save scheduled post: %w", err)
	}

	return nil
}

func (r *PostRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + `
		FROM scheduled_posts
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, string(models.PostStatusScheduled), now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due posts: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	posts := make([]*models.ScheduledPost, 0)

	for rows.Next() {
		post, err := r.scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled post: %w", err)
		}

		posts = append(posts, post)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating scheduled posts: %w", err)
	}

	return posts, nil
}

func (r *PostRepository) ClaimPublishing(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query,
		string(models.PostStatusPublishing), time.Now().UTC(), id,
		string(models.PostStatusScheduled))
	if err != nil {
		return false, fmt.Errorf("failed to claim scheduled post %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

func (r *PostRepository) scanPost(row rowScanner) (*models.ScheduledPost, error) {
	var (
		post         models.ScheduledPost
		status       string
		publishedAt  sql.NullTime
		mediaJSON    []byte
		hashtagsJSON []byte
	)

	err := row.Scan(&post.ID, &post.Platform, &post.Content, &mediaJSON, &hashtagsJSON,
		&post.ScheduledAt, &status, &publishedAt, &post.ExternalPostID, &post.Error,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.Status = models.PostStatus(status)

	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}

	err = json.Unmarshal(mediaJSON, &post.MediaURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal media urls: %w", err)
	}

	err = json.Unmarshal(hashtagsJSON, &post.Hashtags)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal hashtags: %w", err)
	}

	return &post, nil
}
