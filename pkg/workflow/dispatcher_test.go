package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomcart/marketing-core/pkg/dedup"
	"github.com/bloomcart/marketing-core/pkg/models"
)

func TestDispatcherFansOutToMatchingActiveWorkflows(t *testing.T) {
	h := newHarness(t)

	h.saveActiveWorkflow(t, "wf-signup-1", models.TriggerContactSignup, emailStep(0, "welcome"))
	h.saveActiveWorkflow(t, "wf-signup-2", models.TriggerContactSignup, addTagStep(0, "lead"))
	h.saveActiveWorkflow(t, "wf-order", models.TriggerOrderCompleted, emailStep(0, "receipt"))

	// A paused workflow of the matching type must not start an execution.
	err := h.persistence.WorkflowRepository().Save(context.Background(), &models.WorkflowDefinition{
		ID:          "wf-paused",
		Name:        "paused signup",
		TriggerType: models.TriggerContactSignup,
		Status:      models.WorkflowStatusPaused,
		Steps:       []*models.Step{emailStep(0, "never")},
	})
	require.NoError(t, err)

	ids, err := h.dispatcher.HandleTrigger(context.Background(), Trigger{
		Type:      models.TriggerContactSignup,
		ContactID: "contact-1",
	})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.NotContains(t, h.emails.templates, "receipt")
	assert.NotContains(t, h.emails.templates, "never")
}

func TestDispatcherNoMatchingWorkflows(t *testing.T) {
	h := newHarness(t)

	ids, err := h.dispatcher.HandleTrigger(context.Background(), Trigger{
		Type:      models.TriggerBirthday,
		ContactID: "contact-1",
	})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDispatcherDeduplicatesByEventID(t *testing.T) {
	h := newHarness(t)
	h.dispatcher.deduper = dedup.NewMemoryDeduper()

	h.saveActiveWorkflow(t, "wf-1", models.TriggerOrderCompleted, emailStep(0, "receipt"))

	trigger := Trigger{
		Type:      models.TriggerOrderCompleted,
		ContactID: "contact-1",
		EventID:   "order-778",
	}

	ids, err := h.dispatcher.HandleTrigger(context.Background(), trigger)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	// Redelivery of the same event id is a no-op.
	ids, err = h.dispatcher.HandleTrigger(context.Background(), trigger)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, []string{"receipt"}, h.emails.templates)

	// A different event id goes through.
	trigger.EventID = "order-779"

	ids, err = h.dispatcher.HandleTrigger(context.Background(), trigger)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestDispatcherTriggerDataReachesSteps(t *testing.T) {
	h := newHarness(t)

	h.saveActiveWorkflow(t, "wf-1", models.TriggerCartAbandoned,
		&models.Step{
			ID:    "cart-check",
			Order: 0,
			Type:  models.StepCondition,
			Config: map[string]any{
				"field":    "trigger.cart_value",
				"operator": "gte",
				"value":    float64(50),
				"label":    "big_cart",
			},
		},
		emailStep(1, "come-back"),
	)

	ids, err := h.dispatcher.HandleTrigger(context.Background(), Trigger{
		Type:      models.TriggerCartAbandoned,
		ContactID: "contact-1",
		Data:      map[string]any{"cart_value": float64(80)},
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	execution, err := h.persistence.ExecutionRepository().GetByID(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, true, execution.Context["condition:big_cart"])
	assert.Equal(t, []string{"come-back"}, h.emails.templates)
}
