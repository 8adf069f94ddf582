// Package socialpost provides the SOCIAL_POST step executor. It never
// publishes inline: it creates a scheduled-post row due immediately (or
// after an optional delay) and hands off to the scheduled social publisher.
package socialpost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
	"github.com/bloomcart/marketing-core/pkg/template"
)

var (
	// ErrPlatformMissing is returned when the configuration has no platform.
	ErrPlatformMissing = errors.New("missing or invalid 'platform' in configuration")
	// ErrContentMissing is returned when the configuration has no content.
	ErrContentMissing = errors.New("missing or invalid 'content' in configuration")
)

// Schema describes the SOCIAL_POST configuration.
const Schema = `{
	"type": "object",
	"properties": {
		"platform": {"type": "string", "minLength": 1},
		"content": {"type": "string", "minLength": 1},
		"media_urls": {"type": "array", "items": {"type": "string"}},
		"hashtags": {"type": "array", "items": {"type": "string"}},
		"delay_mins": {"type": "number", "minimum": 0}
	},
	"required": ["platform", "content"]
}`

// Executor creates the scheduled-post row.
type Executor struct {
	Platform  string
	Content   string
	MediaURLs []string
	Hashtags  []string
	DelayMins int

	posts persistence.PostRepository
	now   func() time.Time
}

// NewExecutor creates a SOCIAL_POST executor from configuration.
func NewExecutor(config map[string]any, posts persistence.PostRepository, now func() time.Time) (*Executor, error) {
	platform, ok := config["platform"].(string)
	if !ok || platform == "" {
		return nil, ErrPlatformMissing
	}

	content, ok := config["content"].(string)
	if !ok || content == "" {
		return nil, ErrContentMissing
	}

	delayMins := 0
	if delay, ok := config["delay_mins"].(float64); ok && delay > 0 {
		delayMins = int(delay)
	}

	if now == nil {
		now = time.Now
	}

	return &Executor{
		Platform:  platform,
		Content:   content,
		MediaURLs: stringSlice(config["media_urls"]),
		Hashtags:  stringSlice(config["hashtags"]),
		DelayMins: delayMins,
		posts:     posts,
		now:       now,
	}, nil
}

func stringSlice(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	result := make([]string, 0, len(items))

	for _, item := range items {
		if str, ok := item.(string); ok {
			result = append(result, str)
		}
	}

	return result
}

func (e *Executor) Validate(_ context.Context) error {
	if e.Platform == "" {
		return ErrPlatformMissing
	}

	_, err := template.Parse(e.Content)
	if err != nil {
		return fmt.Errorf("invalid content template: %w", err)
	}

	return nil
}

// ContinueOnError reports that a failure to enqueue the post is recorded but
// does not fail the owning execution.
func (e *Executor) ContinueOnError() bool { return true }

func (e *Executor) Execute(ctx context.Context, ectx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	logger = logger.With("module", "social_post_step", "platform", e.Platform)

	content, err := template.RenderWithContext(e.Content, ectx)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()

	post := &models.ScheduledPost{
		ID:          uuid.New().String(),
		Platform:    e.Platform,
		Content:     content,
		MediaURLs:   e.MediaURLs,
		Hashtags:    e.Hashtags,
		ScheduledAt: now.Add(time.Duration(e.DelayMins) * time.Minute),
		Status:      models.PostStatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = e.posts.Save(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule social post: %w", err)
	}

	logger.InfoContext(ctx, "Social post scheduled", "post_id", post.ID, "scheduled_at", post.ScheduledAt)

	return &models.StepResult{
		Success:      true,
		ContextPatch: map[string]any{"scheduled_post_id": post.ID},
	}, nil
}
