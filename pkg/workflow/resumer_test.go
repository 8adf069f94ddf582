package workflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomcart/marketing-core/pkg/models"
)

func TestResumerClaimsPreventDoubleResume(t *testing.T) {
	h := newHarness(t)

	h.saveActiveWorkflow(t, "wf-1", models.TriggerContactSignup,
		waitStep(0, 10),
		emailStep(1, "after-wait"),
	)

	execution := h.trigger(t, models.TriggerContactSignup)
	require.Equal(t, models.ExecutionStatusWaiting, execution.Status)

	h.advance(15 * time.Minute)

	// Another tick already claimed the row between listing and claiming.
	claimed, err := h.persistence.ExecutionRepository().ClaimWaiting(context.Background(), execution.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	resumed, err := h.resumer.ResumeDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, resumed)
	assert.Empty(t, h.emails.templates)
}

func TestResumerSecondPassFindsNothing(t *testing.T) {
	h := newHarness(t)

	h.saveActiveWorkflow(t, "wf-1", models.TriggerContactSignup,
		waitStep(0, 10),
		emailStep(1, "after-wait"),
	)

	h.trigger(t, models.TriggerContactSignup)
	h.advance(15 * time.Minute)

	resumed, err := h.resumer.ResumeDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, resumed)

	resumed, err = h.resumer.ResumeDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, resumed)

	assert.Equal(t, []string{"after-wait"}, h.emails.templates)
}

func TestResumerHonorsBatchSize(t *testing.T) {
	h := newHarness(t)
	h.resumer.WithBatchSize(3)

	h.saveActiveWorkflow(t, "wf-1", models.TriggerContactSignup,
		waitStep(0, 5),
		addTagStep(1, "done"),
	)

	for i := range 5 {
		h.contacts.Put(&models.Contact{
			ID:    fmt.Sprintf("contact-batch-%d", i),
			Email: fmt.Sprintf("c%d@example.com", i),
		})

		ids, err := h.dispatcher.HandleTrigger(context.Background(), Trigger{
			Type:      models.TriggerContactSignup,
			ContactID: fmt.Sprintf("contact-batch-%d", i),
		})
		require.NoError(t, err)
		require.Len(t, ids, 1)
	}

	h.advance(10 * time.Minute)

	resumed, err := h.resumer.ResumeDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, resumed)

	resumed, err = h.resumer.ResumeDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resumed)
}

func TestResumerMultiWaitChain(t *testing.T) {
	h := newHarness(t)

	h.saveActiveWorkflow(t, "wf-1", models.TriggerContactSignup,
		emailStep(0, "first"),
		waitStep(1, 30),
		emailStep(2, "second"),
		&models.Step{ID: "wait-2", Order: 3, Type: models.StepWait, DelayMins: 30},
		emailStep(4, "third"),
	)

	execution := h.trigger(t, models.TriggerContactSignup)
	require.Equal(t, models.ExecutionStatusWaiting, execution.Status)

	h.advance(30 * time.Minute)

	resumed, err := h.resumer.ResumeDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, resumed)

	execution, err = h.persistence.ExecutionRepository().GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusWaiting, execution.Status)
	assert.Equal(t, []string{"first", "second"}, h.emails.templates)

	h.advance(30 * time.Minute)

	resumed, err = h.resumer.ResumeDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, resumed)

	execution, err = h.persistence.ExecutionRepository().GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, []string{"first", "second", "third"}, h.emails.templates)
}
