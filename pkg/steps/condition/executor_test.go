package condition

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomcart/marketing-core/pkg/models"
)

func ectxWith(contact *models.Contact, data map[string]any) models.ExecutionContext {
	return models.ExecutionContext{
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		Contact:     contact,
		Data:        data,
	}
}

func TestNewExecutorRequiresOperator(t *testing.T) {
	_, err := NewExecutor(map[string]any{"field": "context.x"})
	require.ErrorIs(t, err, ErrOperatorMissing)
}

func TestNewExecutorRequiresFieldForValueOperators(t *testing.T) {
	_, err := NewExecutor(map[string]any{"operator": "eq", "value": "x"})
	require.ErrorIs(t, err, ErrFieldMissing)
}

func TestNewExecutorTagOperatorsNeedNoField(t *testing.T) {
	executor, err := NewExecutor(map[string]any{"operator": "has_tag", "value": "vip"})
	require.NoError(t, err)
	assert.Equal(t, "has_tag", executor.Label)
}

func TestExecutePassingConditionDoesNotHalt(t *testing.T) {
	executor, err := NewExecutor(map[string]any{
		"field":    "context.score",
		"operator": "gte",
		"value":    float64(10),
		"label":    "engaged",
	})
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), ectxWith(nil, map[string]any{"score": float64(15)}), slog.Default())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.Halt)
	assert.Equal(t, true, result.ContextPatch["condition:engaged"])
}

func TestExecuteFailingConditionHalts(t *testing.T) {
	executor, err := NewExecutor(map[string]any{
		"field":    "context.score",
		"operator": "gte",
		"value":    float64(10),
		"label":    "engaged",
	})
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), ectxWith(nil, map[string]any{"score": float64(3)}), slog.Default())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.Halt)
	assert.Equal(t, false, result.ContextPatch["condition:engaged"])
}

func TestExecuteHasTag(t *testing.T) {
	executor, err := NewExecutor(map[string]any{"operator": "has_tag", "value": "vip"})
	require.NoError(t, err)

	contact := &models.Contact{ID: "c1", Tags: []string{"vip"}}

	result, err := executor.Execute(context.Background(), ectxWith(contact, nil), slog.Default())
	require.NoError(t, err)
	assert.False(t, result.Halt)

	contact.RemoveTag("vip")

	result, err = executor.Execute(context.Background(), ectxWith(contact, nil), slog.Default())
	require.NoError(t, err)
	assert.True(t, result.Halt)
}

func TestExecuteBadNumericComparisonErrors(t *testing.T) {
	executor, err := NewExecutor(map[string]any{
		"field":    "context.name",
		"operator": "gt",
		"value":    float64(10),
	})
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), ectxWith(nil, map[string]any{"name": []string{"x"}}), slog.Default())
	require.Error(t, err)
}
