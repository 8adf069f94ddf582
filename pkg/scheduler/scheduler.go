// Package scheduler drives time-based progress. Everything that happens "by
// itself" happens inside Tick: waking waiting executions, campaign activation
// and expiry, and publishing due social posts. Ticks are safe to overlap; the
// underlying claims guarantee each due item is processed exactly once.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bloomcart/marketing-core/pkg/campaign"
	"github.com/bloomcart/marketing-core/pkg/otelhelper"
	"github.com/bloomcart/marketing-core/pkg/social"
	"github.com/bloomcart/marketing-core/pkg/workflow"
)

// TickReport summarizes one scheduler pass.
type TickReport struct {
	ResumedExecutions  int           `json:"resumed_executions"`
	ActivatedCampaigns int           `json:"activated_campaigns"`
	ExpiredCampaigns   int           `json:"expired_campaigns"`
	PublishedPosts     int           `json:"published_posts"`
	FailedPosts        int           `json:"failed_posts"`
	Errors             []string      `json:"errors,omitempty"`
	Duration           time.Duration `json:"duration"`
}

// Scheduler runs the three tick phases. Each phase has its own error
// boundary; a failing phase is reported and never blocks the others.
type Scheduler struct {
	resumer   *workflow.Resumer
	campaigns *campaign.Manager
	posts     *social.Publisher
	tracer    trace.Tracer
	logger    *slog.Logger
	now       func() time.Time
}

func NewScheduler(
	resumer *workflow.Resumer,
	campaigns *campaign.Manager,
	posts *social.Publisher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		resumer:   resumer,
		campaigns: campaigns,
		posts:     posts,
		tracer:    tracer,
		logger:    logger.With("module", "scheduler"),
		now:       time.Now,
	}
}

// WithClock overrides the scheduler clock.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now

	return s
}

// Tick runs one scheduler pass. It always returns a report; phase errors are
// collected in the report and joined in the returned error.
func (s *Scheduler) Tick(ctx context.Context) (*TickReport, error) {
	started := s.now()
	report := &TickReport{}

	var span trace.Span
	if s.tracer != nil {
		ctx, span = otelhelper.StartSpan(ctx, s.tracer, "scheduler.tick")
		defer span.End()
	}

	var errs []error

	resumed, err := s.resumer.ResumeDue(ctx)
	report.ResumedExecutions = resumed

	if err != nil {
		errs = append(errs, err)

		s.logger.ErrorContext(ctx, "Resume phase reported errors", "error", err)
	}

	activated, expired, err := s.campaigns.ProcessScheduled(ctx)
	report.ActivatedCampaigns = activated
	report.ExpiredCampaigns = expired

	if err != nil {
		errs = append(errs, err)

		s.logger.ErrorContext(ctx, "Campaign phase reported errors", "error", err)
	}

	published, failed, err := s.posts.ProcessDue(ctx)
	report.PublishedPosts = published
	report.FailedPosts = failed

	if err != nil {
		errs = append(errs, err)

		s.logger.ErrorContext(ctx, "Post phase reported errors", "error", err)
	}

	report.Duration = s.now().Sub(started)

	for _, err := range errs {
		report.Errors = append(report.Errors, err.Error())
	}

	joined := errors.Join(errs...)

	if span != nil {
		span.SetAttributes(
			attribute.Int("marketing.tick.resumed_executions", report.ResumedExecutions),
			attribute.Int("marketing.tick.activated_campaigns", report.ActivatedCampaigns),
			attribute.Int("marketing.tick.expired_campaigns", report.ExpiredCampaigns),
			attribute.Int("marketing.tick.published_posts", report.PublishedPosts),
			attribute.Int("marketing.tick.failed_posts", report.FailedPosts),
		)

		if joined != nil {
			otelhelper.SetError(span, joined)
		}
	}

	s.logger.InfoContext(ctx, "Tick finished",
		"resumed_executions", report.ResumedExecutions,
		"activated_campaigns", report.ActivatedCampaigns,
		"expired_campaigns", report.ExpiredCampaigns,
		"published_posts", report.PublishedPosts,
		"failed_posts", report.FailedPosts,
		"errors", len(report.Errors),
		"duration", report.Duration)

	return report, joined
}
