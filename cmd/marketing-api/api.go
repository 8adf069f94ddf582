// Package main provides the marketing core API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/redis/go-redis/v9"

	"github.com/bloomcart/marketing-core/pkg/campaign"
	"github.com/bloomcart/marketing-core/pkg/cmd"
	"github.com/bloomcart/marketing-core/pkg/contacts"
	"github.com/bloomcart/marketing-core/pkg/dedup"
	"github.com/bloomcart/marketing-core/pkg/eventbus"
	"github.com/bloomcart/marketing-core/pkg/loyalty"
	"github.com/bloomcart/marketing-core/pkg/notify"
	"github.com/bloomcart/marketing-core/pkg/persistence"
	"github.com/bloomcart/marketing-core/pkg/scheduler"
	"github.com/bloomcart/marketing-core/pkg/social"
	"github.com/bloomcart/marketing-core/pkg/web"
	"github.com/bloomcart/marketing-core/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	redisURL    string
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	redisURL string,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		redisURL:    redisURL,
	}
}

func (a *API) App() *fiber.App {
	contactStore := contacts.NewMemoryStore()

	registry := cmd.NewRegistry(a.logger, cmd.RegistryDeps{
		Contacts:    contactStore,
		EmailSender: notify.NewLogEmailSender(a.logger),
		SMSSender:   notify.NewLogSMSSender(a.logger),
		Posts:       a.persistence.PostRepository(),
		Notes:       a.persistence.NoteRepository(),
	})

	engine := workflow.NewEngine(a.persistence, contactStore, registry, a.eventBus, a.logger)
	dispatcher := workflow.NewDispatcher(
		a.persistence,
		engine,
		a.newDeduper(),
		loyalty.NewLogAwarder(a.logger),
		a.eventBus,
		a.logger,
	)
	resumer := workflow.NewResumer(a.persistence, engine, a.eventBus, a.logger)
	manager := workflow.NewManager(a.persistence, registry, a.eventBus, a.logger)

	campaigns := campaign.NewManager(a.persistence, a.eventBus, a.logger)
	posts := social.NewPublisher(a.persistence, social.Platforms{}, a.eventBus, a.logger)
	sched := scheduler.NewScheduler(resumer, campaigns, posts, nil, a.logger)

	handlers := web.NewAPIHandlers(a.persistence, manager, dispatcher, campaigns, sched, registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Marketing Core API")
	})

	app.Post("/triggers", handlers.HandleTrigger)
	app.Post("/scheduler/tick", handlers.Tick)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/activate", handlers.ActivateWorkflow)
	w.Post("/:id/pause", handlers.PauseWorkflow)

	e := app.Group("/executions")
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/cancel", handlers.CancelExecution)

	cp := app.Group("/campaigns")
	cp.Post("/", handlers.CreateCampaign)
	cp.Get("/:id", handlers.GetCampaign)
	cp.Post("/:id/activate", handlers.ActivateCampaign)
	cp.Post("/:id/pause", handlers.PauseCampaign)

	d := app.Group("/discounts")
	d.Post("/validate", handlers.ValidateDiscount)
	d.Post("/redeem", handlers.RedeemDiscount)

	p := app.Group("/posts")
	p.Post("/", handlers.SchedulePost)
	p.Get("/:id", handlers.GetPost)

	app.Get("/contacts/:id/notes", handlers.GetContactNotes)
	app.Get("/steps", handlers.AvailableSteps)
	app.Get("/health", handlers.HealthCheck)

	return app
}

// newDeduper selects Redis-backed trigger deduplication when a Redis URL is
// configured, otherwise in-process memory.
func (a *API) newDeduper() dedup.Deduper {
	if a.redisURL == "" {
		return dedup.NewMemoryDeduper()
	}

	opts, err := redis.ParseURL(a.redisURL)
	if err != nil {
		a.logger.Error("Invalid redis url, falling back to memory deduper", "error", err)

		return dedup.NewMemoryDeduper()
	}

	return dedup.NewRedisDeduper(redis.NewClient(opts))
}

func (a *API) Start(ctx context.Context, port int) error {
	err := a.eventBus.Subscribe(ctx)
	if err != nil {
		return err
	}

	return a.App().Listen(":" + strconv.Itoa(port))
}
