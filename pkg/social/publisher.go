package social

import (
	"context"
	"log/slog"
	"time"

	"github.com/bloomcart/marketing-core/pkg/eventbus"
	"github.com/bloomcart/marketing-core/pkg/events"
	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
)

const defaultPublishBatchSize = 20

// Publisher drains due scheduled posts. Each post is claimed with a
// conditional scheduled→publishing flip before the platform call, so
// overlapping ticks never double-publish a row.
type Publisher struct {
	posts     persistence.PostRepository
	platforms Platforms
	fallback  Platform
	publisher eventbus.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
	batchSize int
}

func NewPublisher(
	persistence persistence.Persistence,
	platforms Platforms,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Publisher {
	return &Publisher{
		posts:     persistence.PostRepository(),
		platforms: platforms,
		fallback:  NewSimulatedPlatform(logger),
		publisher: publisher,
		logger:    logger.With("module", "social_publisher"),
		now:       time.Now,
		batchSize: defaultPublishBatchSize,
	}
}

// WithClock overrides the publisher clock.
func (p *Publisher) WithClock(now func() time.Time) *Publisher {
	p.now = now

	return p
}

// WithBatchSize overrides the per-tick publish bound.
func (p *Publisher) WithBatchSize(size int) *Publisher {
	if size > 0 {
		p.batchSize = size
	}

	return p
}

// ProcessDue claims and publishes due posts, bounded by the batch size. It
// returns how many posts were published and how many failed; one failing post
// never stops the rest of the batch.
func (p *Publisher) ProcessDue(ctx context.Context) (published, failed int, err error) {
	due, err := p.posts.ListDue(ctx, p.now().UTC(), p.batchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, post := range due {
		won, err := p.posts.ClaimPublishing(ctx, post.ID)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to claim post", "post_id", post.ID, "error", err)

			continue
		}

		if !won {
			continue
		}

		post.Status = models.PostStatusPublishing

		if p.publishOne(ctx, post) {
			published++
		} else {
			failed++
		}
	}

	return published, failed, nil
}

func (p *Publisher) publishOne(ctx context.Context, post *models.ScheduledPost) bool {
	logger := p.logger.With("post_id", post.ID, "platform", post.Platform)

	platform, ok := p.platforms[post.Platform]
	if !ok {
		platform = p.fallback
	}

	externalID, err := platform.Publish(ctx, post)

	now := p.now().UTC()
	post.UpdatedAt = now

	if err != nil {
		post.Status = models.PostStatusFailed
		post.Error = err.Error()

		logger.ErrorContext(ctx, "Post publish failed", "error", err)

		saveErr := p.posts.Save(ctx, post)
		if saveErr != nil {
			logger.ErrorContext(ctx, "Failed to persist failed post", "error", saveErr)
		}

		p.publish(ctx, post.ID, events.PostFailed{
			BaseEvent: events.NewBaseEvent(events.PostFailedEvent),
			PostID:    post.ID,
			Platform:  post.Platform,
			Error:     err.Error(),
		})

		return false
	}

	post.Status = models.PostStatusPublished
	post.PublishedAt = &now
	post.ExternalPostID = externalID
	post.Error = ""

	err = p.posts.Save(ctx, post)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to persist published post", "error", err)
	}

	logger.InfoContext(ctx, "Post published", "external_post_id", externalID)

	p.publish(ctx, post.ID, events.PostPublished{
		BaseEvent:      events.NewBaseEvent(events.PostPublishedEvent),
		PostID:         post.ID,
		Platform:       post.Platform,
		ExternalPostID: externalID,
	})

	return true
}

func (p *Publisher) publish(ctx context.Context, key string, event eventbus.Event) {
	if p.publisher == nil {
		return
	}

	err := p.publisher.Publish(ctx, key, event)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
