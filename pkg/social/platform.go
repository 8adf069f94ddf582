// Package social publishes scheduled posts through per-platform clients. The
// real platform APIs live outside this core; platforms without a configured
// client get a simulated publish so content pipelines can run end to end.
package social

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bloomcart/marketing-core/pkg/models"
)

// Platform publishes one post and returns the external post id.
type Platform interface {
	Publish(ctx context.Context, post *models.ScheduledPost) (string, error)
}

// Platforms maps platform names to clients.
type Platforms map[string]Platform

// SimulatedPlatform fakes a successful publish.
type SimulatedPlatform struct {
	logger *slog.Logger
}

func NewSimulatedPlatform(logger *slog.Logger) *SimulatedPlatform {
	return &SimulatedPlatform{logger: logger.With("module", "simulated_platform")}
}

func (p *SimulatedPlatform) Publish(ctx context.Context, post *models.ScheduledPost) (string, error) {
	externalID := fmt.Sprintf("sim-%s", uuid.New().String()[:8])

	p.logger.InfoContext(ctx, "Simulated publish",
		"post_id", post.ID,
		"platform", post.Platform,
		"external_post_id", externalID)

	return externalID, nil
}
