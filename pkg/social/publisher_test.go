package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence/memory"
)

type failingPlatform struct{}

func (failingPlatform) Publish(context.Context, *models.ScheduledPost) (string, error) {
	return "", errors.New("rate limited")
}

type countingPlatform struct {
	calls int
}

func (p *countingPlatform) Publish(_ context.Context, post *models.ScheduledPost) (string, error) {
	p.calls++

	return "ext-" + post.ID, nil
}

func newTestPublisher(t *testing.T, platforms Platforms, now time.Time) (*Publisher, *memory.Persistence) {
	t.Helper()

	p := memory.NewPersistence()
	publisher := NewPublisher(p, platforms, nil, slog.Default()).WithClock(func() time.Time { return now })

	return publisher, p
}

func savePost(t *testing.T, p *memory.Persistence, id, platform string, scheduledAt time.Time) {
	t.Helper()

	err := p.PostRepository().Save(context.Background(), &models.ScheduledPost{
		ID:          id,
		Platform:    platform,
		Content:     "hello",
		ScheduledAt: scheduledAt,
		Status:      models.PostStatusScheduled,
	})
	require.NoError(t, err)
}

func TestProcessDuePublishesOnlyDuePosts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	platform := &countingPlatform{}
	publisher, p := newTestPublisher(t, Platforms{"instagram": platform}, now)

	savePost(t, p, "post-due", "instagram", now.Add(-time.Minute))
	savePost(t, p, "post-future", "instagram", now.Add(time.Hour))

	published, failed, err := publisher.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, published)
	assert.Zero(t, failed)
	assert.Equal(t, 1, platform.calls)

	due, err := p.PostRepository().GetByID(context.Background(), "post-due")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, due.Status)
	assert.Equal(t, "ext-post-due", due.ExternalPostID)
	require.NotNil(t, due.PublishedAt)

	future, err := p.PostRepository().GetByID(context.Background(), "post-future")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusScheduled, future.Status)
}

func TestProcessDueMarksFailedPosts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	publisher, p := newTestPublisher(t, Platforms{"twitter": failingPlatform{}}, now)

	savePost(t, p, "post-1", "twitter", now.Add(-time.Minute))

	published, failed, err := publisher.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, published)
	assert.Equal(t, 1, failed)

	post, err := p.PostRepository().GetByID(context.Background(), "post-1")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusFailed, post.Status)
	assert.Contains(t, post.Error, "rate limited")
}

func TestProcessDueFailureDoesNotStopBatch(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	platform := &countingPlatform{}
	publisher, p := newTestPublisher(t, Platforms{
		"twitter":   failingPlatform{},
		"instagram": platform,
	}, now)

	savePost(t, p, "post-bad", "twitter", now.Add(-2*time.Minute))
	savePost(t, p, "post-good", "instagram", now.Add(-time.Minute))

	published, failed, err := publisher.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, published)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, platform.calls)
}

func TestProcessDueUnknownPlatformSimulates(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	publisher, p := newTestPublisher(t, Platforms{}, now)

	savePost(t, p, "post-1", "myspace", now.Add(-time.Minute))

	published, failed, err := publisher.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, published)
	assert.Zero(t, failed)

	post, err := p.PostRepository().GetByID(context.Background(), "post-1")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, post.Status)
	assert.NotEmpty(t, post.ExternalPostID)
}

func TestProcessDueClaimPreventsDoublePublish(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	platform := &countingPlatform{}
	publisher, p := newTestPublisher(t, Platforms{"instagram": platform}, now)

	savePost(t, p, "post-1", "instagram", now.Add(-time.Minute))

	// Simulate an overlapping tick that already claimed the row.
	claimed, err := p.PostRepository().ClaimPublishing(context.Background(), "post-1")
	require.NoError(t, err)
	require.True(t, claimed)

	published, failed, err := publisher.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, published)
	assert.Zero(t, failed)
	assert.Zero(t, platform.calls)
}

func TestProcessDueHonorsBatchSize(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	platform := &countingPlatform{}
	publisher, p := newTestPublisher(t, Platforms{"instagram": platform}, now)
	publisher.WithBatchSize(2)

	for i := range 3 {
		savePost(t, p, fmt.Sprintf("post-%d", i), "instagram", now.Add(-time.Minute))
	}

	published, _, err := publisher.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, published)

	published, _, err = publisher.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, published)
}
