// Package main provides the marketing scheduler service: a cron-driven loop
// invoking the tick.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/bloomcart/marketing-core/pkg/campaign"
	"github.com/bloomcart/marketing-core/pkg/cmd"
	"github.com/bloomcart/marketing-core/pkg/contacts"
	"github.com/bloomcart/marketing-core/pkg/eventbus"
	"github.com/bloomcart/marketing-core/pkg/notify"
	"github.com/bloomcart/marketing-core/pkg/otelhelper"
	"github.com/bloomcart/marketing-core/pkg/persistence"
	"github.com/bloomcart/marketing-core/pkg/scheduler"
	"github.com/bloomcart/marketing-core/pkg/social"
	"github.com/bloomcart/marketing-core/pkg/workflow"
)

// Runner owns the cron loop around Scheduler.Tick. Ticks are safe to overlap,
// so no skipping wrapper is needed around slow passes.
type Runner struct {
	id        string
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

func NewRunner(
	id string,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Runner {
	// The contact store is an external collaborator in production; this
	// in-process store only serves standalone runs, where resumed
	// executions that need a contact will fail until a real store is
	// wired here.
	contactStore := contacts.NewMemoryStore()

	registry := cmd.NewRegistry(logger, cmd.RegistryDeps{
		Contacts:    contactStore,
		EmailSender: notify.NewLogEmailSender(logger),
		SMSSender:   notify.NewLogSMSSender(logger),
		Posts:       p.PostRepository(),
		Notes:       p.NoteRepository(),
	})

	engine := workflow.NewEngine(p, contactStore, registry, eventBus, logger)
	resumer := workflow.NewResumer(p, engine, eventBus, logger)
	campaigns := campaign.NewManager(p, eventBus, logger)
	posts := social.NewPublisher(p, social.Platforms{}, eventBus, logger)

	tracer, err := otelhelper.NewTracer(context.Background(), "marketing-scheduler")
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	}

	return &Runner{
		id:        id,
		scheduler: scheduler.NewScheduler(resumer, campaigns, posts, tracer, logger),
		logger:    logger.With("module", "runner"),
	}
}

// Start runs the cron loop until SIGINT or SIGTERM.
func (r *Runner) Start(ctx context.Context, schedule string) error {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		_, err := r.scheduler.Tick(ctx)
		if err != nil {
			r.logger.ErrorContext(ctx, "Tick reported errors", "error", err)
		}
	})
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "Starting scheduler loop", "schedule", schedule)

	c.Start()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signals:
		r.logger.InfoContext(ctx, "Received signal, shutting down", "signal", sig)
	case <-ctx.Done():
	}

	stopCtx := c.Stop()
	<-stopCtx.Done()

	r.logger.InfoContext(ctx, "Scheduler stopped")

	return nil
}
