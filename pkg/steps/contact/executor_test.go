package contact

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomcart/marketing-core/pkg/contacts"
	"github.com/bloomcart/marketing-core/pkg/models"
)

func newStoreWithContact(t *testing.T) (*contacts.MemoryStore, models.ExecutionContext) {
	t.Helper()

	store := contacts.NewMemoryStore()
	store.Put(&models.Contact{ID: "c1", Email: "ada@example.com"})

	ectx := models.ExecutionContext{
		ExecutionID: "exec-1",
		Contact:     &models.Contact{ID: "c1", Email: "ada@example.com"},
		TriggerData: map[string]any{"plan": "gold"},
	}

	return store, ectx
}

func TestUpdateExecutorMergesAttributes(t *testing.T) {
	store, ectx := newStoreWithContact(t)

	executor, err := NewUpdateExecutor(map[string]any{
		"attributes": map[string]any{
			"plan":   "{{.trigger_data.plan}}",
			"scored": true,
		},
	}, store)
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), ectx, slog.Default())
	require.NoError(t, err)
	assert.True(t, result.Success)

	contact, err := store.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "gold", contact.Attributes["plan"])
	assert.Equal(t, true, contact.Attributes["scored"])
}

func TestUpdateExecutorRequiresAttributes(t *testing.T) {
	store := contacts.NewMemoryStore()

	_, err := NewUpdateExecutor(map[string]any{}, store)
	require.ErrorIs(t, err, ErrAttributesMissing)
}

func TestAddTagIsIdempotent(t *testing.T) {
	store, ectx := newStoreWithContact(t)

	executor, err := NewAddTagExecutor(map[string]any{"tag": "vip"}, store)
	require.NoError(t, err)

	for range 2 {
		_, err = executor.Execute(context.Background(), ectx, slog.Default())
		require.NoError(t, err)
	}

	contact, err := store.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"vip"}, contact.Tags)
}

func TestRemoveMissingTagIsNoOp(t *testing.T) {
	store, ectx := newStoreWithContact(t)

	executor, err := NewRemoveTagExecutor(map[string]any{"tag": "ghost"}, store)
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), ectx, slog.Default())
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestTagExecutorUnknownContactFails(t *testing.T) {
	store := contacts.NewMemoryStore()

	executor, err := NewAddTagExecutor(map[string]any{"tag": "vip"}, store)
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), models.ExecutionContext{
		Contact: &models.Contact{ID: "nobody"},
	}, slog.Default())
	require.Error(t, err)
}
