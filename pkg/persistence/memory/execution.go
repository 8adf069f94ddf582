package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
)

// ExecutionRepository stores workflow executions in a map. Claims are
// compare-and-swap under the write lock.
type ExecutionRepository struct {
	mu         sync.RWMutex
	executions map[string]*models.WorkflowExecution
}

func NewExecutionRepository() *ExecutionRepository {
	return &ExecutionRepository{executions: make(map[string]*models.WorkflowExecution)}
}

func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.executions[id]
	if !ok {
		return nil, persistence.NewOpError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	return cloneExecution(e), nil
}

func (r *ExecutionRepository) Save(_ context.Context, execution *models.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.executions[execution.ID] = cloneExecution(execution)

	return nil
}

func (r *ExecutionRepository) ListWaitingDue(_ context.Context, now time.Time, limit int) ([]*models.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*models.WorkflowExecution

	for _, e := range r.executions {
		if e.Status == models.ExecutionStatusWaiting && e.ResumeAt != nil && !e.ResumeAt.After(now) {
			due = append(due, cloneExecution(e))
		}
	}

	slices.SortFunc(due, func(a, b *models.WorkflowExecution) int {
		return a.ResumeAt.Compare(*b.ResumeAt)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

func (r *ExecutionRepository) ClaimWaiting(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.executions[id]
	if !ok {
		return false, persistence.NewOpError("ClaimWaiting", id, persistence.ErrExecutionNotFound)
	}

	if e.Status != models.ExecutionStatusWaiting {
		return false, nil
	}

	e.Status = models.ExecutionStatusRunning
	e.ResumeAt = nil

	return true, nil
}

func (r *ExecutionRepository) Cancel(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.executions[id]
	if !ok {
		return false, persistence.NewOpError("Cancel", id, persistence.ErrExecutionNotFound)
	}

	if e.Status.IsTerminal() {
		return false, nil
	}

	now := time.Now().UTC()
	e.Status = models.ExecutionStatusCancelled
	e.ResumeAt = nil
	e.CompletedAt = &now

	return true, nil
}

func cloneExecution(e *models.WorkflowExecution) *models.WorkflowExecution {
	clone := *e
	clone.Context = maps.Clone(e.Context)
	clone.TriggerData = maps.Clone(e.TriggerData)

	if e.ResumeAt != nil {
		t := *e.ResumeAt
		clone.ResumeAt = &t
	}

	if e.CompletedAt != nil {
		t := *e.CompletedAt
		clone.CompletedAt = &t
	}

	return &clone
}
