package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomcart/marketing-core/pkg/cmd"
	"github.com/bloomcart/marketing-core/pkg/contacts"
	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/notify"
	"github.com/bloomcart/marketing-core/pkg/persistence/memory"
)

// recordingEmailSender captures sends in order and can be told to fail.
type recordingEmailSender struct {
	mu        sync.Mutex
	templates []string
	fail      bool
}

func (s *recordingEmailSender) SendTemplate(_ context.Context, templateID, _ string, _ map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail {
		return errors.New("smtp unavailable")
	}

	s.templates = append(s.templates, templateID)

	return nil
}

type harness struct {
	persistence *memory.Persistence
	contacts    *contacts.MemoryStore
	emails      *recordingEmailSender
	engine      *Engine
	dispatcher  *Dispatcher
	resumer     *Resumer
	manager     *Manager
	now         time.Time
}

func (h *harness) clock() time.Time { return h.now }

func (h *harness) advance(d time.Duration) { h.now = h.now.Add(d) }

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := slog.Default()

	h := &harness{
		persistence: memory.NewPersistence(),
		contacts:    contacts.NewMemoryStore(),
		emails:      &recordingEmailSender{},
		now:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	registry := cmd.NewRegistry(logger, cmd.RegistryDeps{
		Contacts:    h.contacts,
		EmailSender: h.emails,
		SMSSender:   notify.NewLogSMSSender(logger),
		Posts:       h.persistence.PostRepository(),
		Notes:       h.persistence.NoteRepository(),
	})

	h.engine = NewEngine(h.persistence, h.contacts, registry, nil, logger).WithClock(h.clock)
	h.dispatcher = NewDispatcher(h.persistence, h.engine, nil, nil, nil, logger).WithClock(h.clock)
	h.resumer = NewResumer(h.persistence, h.engine, nil, logger).WithClock(h.clock)
	h.manager = NewManager(h.persistence, registry, nil, logger)

	h.contacts.Put(&models.Contact{
		ID:    "contact-1",
		Email: "ada@example.com",
		Phone: "+15550100",
	})

	return h
}

func (h *harness) saveActiveWorkflow(t *testing.T, id string, trigger models.TriggerType, steps ...*models.Step) {
	t.Helper()

	err := h.persistence.WorkflowRepository().Save(context.Background(), &models.WorkflowDefinition{
		ID:          id,
		Name:        "test " + id,
		TriggerType: trigger,
		Status:      models.WorkflowStatusActive,
		Steps:       steps,
	})
	require.NoError(t, err)
}

func emailStep(order int, templateID string) *models.Step {
	return &models.Step{
		ID:     "email-" + templateID,
		Order:  order,
		Type:   models.StepSendEmail,
		Config: map[string]any{"template_id": templateID},
	}
}

func waitStep(order, delayMins int) *models.Step {
	return &models.Step{
		ID:        "wait",
		Order:     order,
		Type:      models.StepWait,
		DelayMins: delayMins,
	}
}

func addTagStep(order int, tag string) *models.Step {
	return &models.Step{
		ID:     "tag-" + tag,
		Order:  order,
		Type:   models.StepAddTag,
		Config: map[string]any{"tag": tag},
	}
}

func (h *harness) trigger(t *testing.T, triggerType models.TriggerType) *models.WorkflowExecution {
	t.Helper()

	ids, err := h.dispatcher.HandleTrigger(context.Background(), Trigger{
		Type:      triggerType,
		ContactID: "contact-1",
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	execution, err := h.persistence.ExecutionRepository().GetByID(context.Background(), ids[0])
	require.NoError(t, err)

	return execution
}

func TestEngineRunsStepsInOrder(t *testing.T) {
	h := newHarness(t)

	h.saveActiveWorkflow(t, "wf-1", models.TriggerContactSignup,
		emailStep(0, "welcome"),
		emailStep(1, "follow-up"),
		addTagStep(2, "onboarded"),
	)

	execution := h.trigger(t, models.TriggerContactSignup)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, []string{"welcome", "follow-up"}, h.emails.templates)
	assert.Equal(t, "follow-up", execution.Context["last_email_template"])
	require.NotNil(t, execution.CompletedAt)

	contact, err := h.contacts.GetByID(context.Background(), "contact-1")
	require.NoError(t, err)
	assert.True(t, contact.HasTag("onboarded"))
}

func TestEngineWaitSuspendsAndResumerContinues(t *testing.T) {
	h := newHarness(t)

	h.saveActiveWorkflow(t, "wf-1", models.TriggerContactSignup,
		emailStep(0, "welcome"),
		waitStep(1, 60),
		addTagStep(2, "vip"),
	)

	execution := h.trigger(t, models.TriggerContactSignup)

	require.Equal(t, models.ExecutionStatusWaiting, execution.Status)
	require.NotNil(t, execution.ResumeAt)
	assert.Equal(t, h.now.Add(60*time.Minute), *execution.ResumeAt)
	assert.Equal(t, 2, execution.CurrentStepIndex)
	assert.Equal(t, []string{"welcome"}, h.emails.templates)

	contact, err := h.contacts.GetByID(context.Background(), "contact-1")
	require.NoError(t, err)
	assert.False(t, contact.HasTag("vip"))

	// One minute early nothing is due.
	h.advance(59 * time.Minute)

	resumed, err := h.resumer.ResumeDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, resumed)

	h.advance(time.Minute)

	resumed, err = h.resumer.ResumeDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, resumed)

	execution, err = h.persistence.ExecutionRepository().GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Nil(t, execution.ResumeAt)

	contact, err = h.contacts.GetByID(context.Background(), "contact-1")
	require.NoError(t, err)
	assert.True(t, contact.HasTag("vip"))
}

func TestEngineConditionFalseStopsWithoutFailing(t *testing.T) {
	h := newHarness(t)

	h.saveActiveWorkflow(t, "wf-1", models.TriggerOrderCompleted,
		&models.Step{
			ID:    "check-vip",
			Order: 0,
			Type:  models.StepCondition,
			Config: map[string]any{
				"operator": "has_tag",
				"value":    "vip",
				"label":    "is_vip",
			},
		},
		emailStep(1, "vip-reward"),
	)

	execution := h.trigger(t, models.TriggerOrderCompleted)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Empty(t, execution.Error)
	assert.Empty(t, h.emails.templates)
	assert.Equal(t, false, execution.Context["condition:is_vip"])
}

func TestEngineConditionTrueContinues(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.contacts.AddTag(context.Background(), "contact-1", "vip"))

	h.saveActiveWorkflow(t, "wf-1", models.TriggerOrderCompleted,
		&models.Step{
			ID:    "check-vip",
			Order: 0,
			Type:  models.StepCondition,
			Config: map[string]any{
				"operator": "has_tag",
				"value":    "vip",
				"label":    "is_vip",
			},
		},
		emailStep(1, "vip-reward"),
	)

	execution := h.trigger(t, models.TriggerOrderCompleted)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, []string{"vip-reward"}, h.emails.templates)
	assert.Equal(t, true, execution.Context["condition:is_vip"])
}

func TestEngineConditionSeesTagAddedEarlierInRun(t *testing.T) {
	h := newHarness(t)

	h.saveActiveWorkflow(t, "wf-1", models.TriggerOrderCompleted,
		addTagStep(0, "vip"),
		&models.Step{
			ID:    "check-vip",
			Order: 1,
			Type:  models.StepCondition,
			Config: map[string]any{
				"operator": "has_tag",
				"value":    "vip",
				"label":    "is_vip",
			},
		},
		emailStep(2, "vip-welcome"),
	)

	execution := h.trigger(t, models.TriggerOrderCompleted)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, true, execution.Context["condition:is_vip"])
	assert.Equal(t, []string{"vip-welcome"}, h.emails.templates)
}

func TestEngineEmailFailureIsRecordedAndSkipped(t *testing.T) {
	h := newHarness(t)
	h.emails.fail = true

	h.saveActiveWorkflow(t, "wf-1", models.TriggerContactSignup,
		emailStep(0, "welcome"),
		addTagStep(1, "signed-up"),
	)

	execution := h.trigger(t, models.TriggerContactSignup)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Contains(t, execution.Context["error:email-welcome"], "smtp unavailable")

	contact, err := h.contacts.GetByID(context.Background(), "contact-1")
	require.NoError(t, err)
	assert.True(t, contact.HasTag("signed-up"))
}

func TestEngineWebhookFailureFailsExecution(t *testing.T) {
	h := newHarness(t)

	h.saveActiveWorkflow(t, "wf-1", models.TriggerCartAbandoned,
		&models.Step{
			ID:    "notify-erp",
			Order: 0,
			Type:  models.StepWebhook,
			Config: map[string]any{
				// Port 1 is never listening; the request fails immediately.
				"url":             "http://127.0.0.1:1/hooks/cart",
				"timeout_seconds": float64(1),
			},
		},
		addTagStep(1, "never-reached"),
	)

	execution := h.trigger(t, models.TriggerCartAbandoned)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.NotEmpty(t, execution.Error)
	require.NotNil(t, execution.CompletedAt)

	contact, err := h.contacts.GetByID(context.Background(), "contact-1")
	require.NoError(t, err)
	assert.False(t, contact.HasTag("never-reached"))
}

func TestEngineSocialPostStepQueuesPost(t *testing.T) {
	h := newHarness(t)

	h.saveActiveWorkflow(t, "wf-1", models.TriggerOrderCompleted,
		&models.Step{
			ID:    "brag",
			Order: 0,
			Type:  models.StepSocialPost,
			Config: map[string]any{
				"platform": "instagram",
				"content":  "Another happy customer!",
			},
		},
	)

	execution := h.trigger(t, models.TriggerOrderCompleted)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)

	postID, ok := execution.Context["scheduled_post_id"].(string)
	require.True(t, ok)

	post, err := h.persistence.PostRepository().GetByID(context.Background(), postID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusScheduled, post.Status)
	assert.Equal(t, "instagram", post.Platform)
}

func TestCancelWaitingExecution(t *testing.T) {
	h := newHarness(t)

	h.saveActiveWorkflow(t, "wf-1", models.TriggerContactSignup,
		waitStep(0, 30),
		addTagStep(1, "late"),
	)

	execution := h.trigger(t, models.TriggerContactSignup)
	require.Equal(t, models.ExecutionStatusWaiting, execution.Status)

	cancelled, err := h.manager.CancelExecution(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.True(t, cancelled)

	// Cancelling again reports the execution as already terminal.
	cancelled, err = h.manager.CancelExecution(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.False(t, cancelled)

	h.advance(time.Hour)

	resumed, err := h.resumer.ResumeDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, resumed)

	execution, err = h.persistence.ExecutionRepository().GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, execution.Status)
}
