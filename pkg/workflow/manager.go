package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bloomcart/marketing-core/pkg/eventbus"
	"github.com/bloomcart/marketing-core/pkg/events"
	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
	"github.com/bloomcart/marketing-core/pkg/registry"
)

var (
	// ErrWorkflowHasNoSteps is returned when activating a workflow without steps.
	ErrWorkflowHasNoSteps = errors.New("workflow has no steps")
	// ErrInvalidStepOrder is returned when step orders are not dense from zero.
	ErrInvalidStepOrder = errors.New("step orders must be dense starting at zero")
	// ErrInvalidStatusChange is returned for a disallowed lifecycle transition.
	ErrInvalidStatusChange = errors.New("invalid workflow status change")
)

// Manager owns workflow definition lifecycle (create, activate, pause) and
// execution cancellation. Definitions are never deleted.
type Manager struct {
	workflows  persistence.WorkflowRepository
	executions persistence.ExecutionRepository
	registry   *registry.Registry
	publisher  eventbus.EventPublisher
	validator  *validator.Validate
	logger     *slog.Logger
	now        func() time.Time
}

func NewManager(
	persistence persistence.Persistence,
	registry *registry.Registry,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		workflows:  persistence.WorkflowRepository(),
		executions: persistence.ExecutionRepository(),
		registry:   registry,
		publisher:  publisher,
		validator:  validator.New(),
		logger:     logger.With("module", "workflow_manager"),
		now:        time.Now,
	}
}

// Create validates and stores a new workflow definition in draft status.
func (m *Manager) Create(ctx context.Context, wf *models.WorkflowDefinition) error {
	if wf.ID == "" {
		wf.ID = uuid.New().String()
	}

	wf.Status = models.WorkflowStatusDraft
	wf.CreatedAt = m.now().UTC()
	wf.UpdatedAt = wf.CreatedAt

	err := m.validate(ctx, wf)
	if err != nil {
		return err
	}

	err = m.workflows.Save(ctx, wf)
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "Workflow created", "workflow_id", wf.ID, "name", wf.Name)

	return nil
}

// Update replaces the definition of an existing workflow, keeping its status.
func (m *Manager) Update(ctx context.Context, wf *models.WorkflowDefinition) error {
	existing, err := m.workflows.GetByID(ctx, wf.ID)
	if err != nil {
		return err
	}

	wf.Status = existing.Status
	wf.CreatedAt = existing.CreatedAt
	wf.UpdatedAt = m.now().UTC()

	err = m.validate(ctx, wf)
	if err != nil {
		return err
	}

	return m.workflows.Save(ctx, wf)
}

// Activate makes the workflow eligible for trigger matching. A workflow must
// have at least one step to activate.
func (m *Manager) Activate(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	wf, err := m.workflows.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if wf.Status == models.WorkflowStatusActive {
		return wf, nil
	}

	if len(wf.Steps) == 0 {
		return nil, ErrWorkflowHasNoSteps
	}

	err = m.validate(ctx, wf)
	if err != nil {
		return nil, err
	}

	wf.Status = models.WorkflowStatusActive
	wf.UpdatedAt = m.now().UTC()

	err = m.workflows.Save(ctx, wf)
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "Workflow activated", "workflow_id", wf.ID)

	return wf, nil
}

// Pause excludes an active workflow from trigger matching. In-flight
// executions are not touched.
func (m *Manager) Pause(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	wf, err := m.workflows.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if wf.Status != models.WorkflowStatusActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrInvalidStatusChange, id, wf.Status)
	}

	wf.Status = models.WorkflowStatusPaused
	wf.UpdatedAt = m.now().UTC()

	err = m.workflows.Save(ctx, wf)
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "Workflow paused", "workflow_id", wf.ID)

	return wf, nil
}

// CancelExecution marks a non-terminal execution cancelled. Returns false
// when the execution was already terminal.
func (m *Manager) CancelExecution(ctx context.Context, id string) (bool, error) {
	cancelled, err := m.executions.Cancel(ctx, id)
	if err != nil || !cancelled {
		return cancelled, err
	}

	execution, err := m.executions.GetByID(ctx, id)
	if err != nil {
		return true, err
	}

	m.logger.InfoContext(ctx, "Execution cancelled", "execution_id", id)

	if m.publisher != nil {
		err = m.publisher.Publish(ctx, id, events.ExecutionCancelled{
			BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent),
			ExecutionID: id,
			WorkflowID:  execution.WorkflowID,
		})
		if err != nil {
			m.logger.ErrorContext(ctx, "Failed to publish event",
				"event_type", events.ExecutionCancelledEvent, "error", err)
		}
	}

	return true, nil
}

// validate checks struct tags, dense step ordering and every step's
// configuration against its registered schema.
func (m *Manager) validate(ctx context.Context, wf *models.WorkflowDefinition) error {
	err := m.validator.Struct(wf)
	if err != nil {
		return fmt.Errorf("invalid workflow: %w", err)
	}

	seen := make(map[int]bool, len(wf.Steps))

	for _, step := range wf.Steps {
		if step.Order < 0 || step.Order >= len(wf.Steps) || seen[step.Order] {
			return fmt.Errorf("%w: step %s has order %d", ErrInvalidStepOrder, step.ID, step.Order)
		}

		seen[step.Order] = true

		if step.ID == "" {
			step.ID = uuid.New().String()
		}

		if step.Type == models.StepWait {
			if step.DelayMins < 1 {
				return fmt.Errorf("wait step %s: delay_mins must be at least 1", step.ID)
			}

			continue
		}

		if m.registry != nil {
			_, err := m.registry.CreateExecutor(ctx, step.Type, step.Config)
			if err != nil {
				return err
			}
		}
	}

	return nil
}
