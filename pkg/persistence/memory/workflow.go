package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
)

// WorkflowRepository stores workflow definitions in a map.
type WorkflowRepository struct {
	mu        sync.RWMutex
	workflows map[string]*models.WorkflowDefinition
}

func NewWorkflowRepository() *WorkflowRepository {
	return &WorkflowRepository{workflows: make(map[string]*models.WorkflowDefinition)}
}

func (r *WorkflowRepository) GetAll(_ context.Context) ([]*models.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.WorkflowDefinition, 0, len(r.workflows))
	for _, w := range r.workflows {
		result = append(result, cloneWorkflow(w))
	}

	slices.SortFunc(result, func(a, b *models.WorkflowDefinition) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return result, nil
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workflows[id]
	if !ok {
		return nil, persistence.NewOpError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return cloneWorkflow(w), nil
}

func (r *WorkflowRepository) GetActiveByTrigger(_ context.Context, trigger models.TriggerType) ([]*models.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.WorkflowDefinition

	for _, w := range r.workflows {
		if w.Status == models.WorkflowStatusActive && w.TriggerType == trigger {
			result = append(result, cloneWorkflow(w))
		}
	}

	slices.SortFunc(result, func(a, b *models.WorkflowDefinition) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return result, nil
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.WorkflowDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.workflows[workflow.ID] = cloneWorkflow(workflow)

	return nil
}

func cloneWorkflow(w *models.WorkflowDefinition) *models.WorkflowDefinition {
	clone := *w
	clone.Config = maps.Clone(w.Config)
	clone.Steps = make([]*models.Step, len(w.Steps))

	for i, step := range w.Steps {
		stepClone := *step
		stepClone.Config = maps.Clone(step.Config)
		clone.Steps[i] = &stepClone
	}

	return &clone
}
