package scheduler

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomcart/marketing-core/pkg/campaign"
	"github.com/bloomcart/marketing-core/pkg/cmd"
	"github.com/bloomcart/marketing-core/pkg/contacts"
	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/notify"
	"github.com/bloomcart/marketing-core/pkg/persistence/memory"
	"github.com/bloomcart/marketing-core/pkg/social"
	"github.com/bloomcart/marketing-core/pkg/workflow"
)

type harness struct {
	persistence *memory.Persistence
	contacts    *contacts.MemoryStore
	scheduler   *Scheduler
	now         time.Time
}

func (h *harness) clock() time.Time { return h.now }

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := slog.Default()

	h := &harness{
		persistence: memory.NewPersistence(),
		contacts:    contacts.NewMemoryStore(),
		now:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	registry := cmd.NewRegistry(logger, cmd.RegistryDeps{
		Contacts:    h.contacts,
		EmailSender: notify.NewLogEmailSender(logger),
		SMSSender:   notify.NewLogSMSSender(logger),
		Posts:       h.persistence.PostRepository(),
		Notes:       h.persistence.NoteRepository(),
	})

	engine := workflow.NewEngine(h.persistence, h.contacts, registry, nil, logger).WithClock(h.clock)
	resumer := workflow.NewResumer(h.persistence, engine, nil, logger).WithClock(h.clock)
	campaigns := campaign.NewManager(h.persistence, nil, logger).WithClock(h.clock)
	posts := social.NewPublisher(h.persistence, social.Platforms{}, nil, logger).WithClock(h.clock)

	h.scheduler = NewScheduler(resumer, campaigns, posts, nil, logger).WithClock(h.clock)

	return h
}

func TestTickAdvancesAllThreePhases(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.contacts.Put(&models.Contact{ID: "contact-1", Email: "ada@example.com"})

	// Waiting execution due for resume.
	resumeAt := h.now.Add(-time.Minute)
	require.NoError(t, h.persistence.ExecutionRepository().Save(ctx, &models.WorkflowExecution{
		ID:               "exec-1",
		WorkflowID:       "wf-1",
		ContactID:        "contact-1",
		Status:           models.ExecutionStatusWaiting,
		CurrentStepIndex: 1,
		ResumeAt:         &resumeAt,
		StartedAt:        h.now.Add(-time.Hour),
	}))
	require.NoError(t, h.persistence.WorkflowRepository().Save(ctx, &models.WorkflowDefinition{
		ID:          "wf-1",
		Name:        "tag after wait",
		TriggerType: models.TriggerContactSignup,
		Status:      models.WorkflowStatusActive,
		Steps: []*models.Step{
			{ID: "wait", Order: 0, Type: models.StepWait, DelayMins: 60},
			{ID: "tag", Order: 1, Type: models.StepAddTag, Config: map[string]any{"tag": "warmed-up"}},
		},
	}))

	// Scheduled campaign whose window has opened.
	require.NoError(t, h.persistence.CampaignRepository().Save(ctx, &models.Campaign{
		ID:           "cmp-1",
		Name:         "June Drop",
		DiscountCode: "JUNE15",
		DiscountKind: models.DiscountPercent, DiscountValue: 15,
		Status:    models.CampaignStatusScheduled,
		StartDate: h.now.Add(-time.Minute),
		EndDate:   h.now.Add(30 * 24 * time.Hour),
	}))

	// Due social post.
	require.NoError(t, h.persistence.PostRepository().Save(ctx, &models.ScheduledPost{
		ID:          "post-1",
		Platform:    "instagram",
		Content:     "we are live",
		ScheduledAt: h.now.Add(-time.Minute),
		Status:      models.PostStatusScheduled,
	}))

	report, err := h.scheduler.Tick(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.ResumedExecutions)
	assert.Equal(t, 1, report.ActivatedCampaigns)
	assert.Zero(t, report.ExpiredCampaigns)
	assert.Equal(t, 1, report.PublishedPosts)
	assert.Zero(t, report.FailedPosts)
	assert.Empty(t, report.Errors)

	execution, err := h.persistence.ExecutionRepository().GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)

	contact, err := h.contacts.GetByID(ctx, "contact-1")
	require.NoError(t, err)
	assert.True(t, contact.HasTag("warmed-up"))

	cmp, err := h.persistence.CampaignRepository().GetByID(ctx, "cmp-1")
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusActive, cmp.Status)

	post, err := h.persistence.PostRepository().GetByID(ctx, "post-1")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, post.Status)
}

func TestTickOnEmptyStateIsANoOp(t *testing.T) {
	h := newHarness(t)

	report, err := h.scheduler.Tick(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.ResumedExecutions)
	assert.Zero(t, report.ActivatedCampaigns)
	assert.Zero(t, report.ExpiredCampaigns)
	assert.Zero(t, report.PublishedPosts)
	assert.Empty(t, report.Errors)
}

func TestOverlappingTicksProcessEachItemOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.persistence.PostRepository().Save(ctx, &models.ScheduledPost{
		ID:          "post-1",
		Platform:    "instagram",
		Content:     "only once",
		ScheduledAt: h.now.Add(-time.Minute),
		Status:      models.PostStatusScheduled,
	}))

	first, err := h.scheduler.Tick(ctx)
	require.NoError(t, err)

	second, err := h.scheduler.Tick(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, first.PublishedPosts+second.PublishedPosts)
}
