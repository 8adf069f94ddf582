// Package workflow implements the execution state machine: triggers fan out
// into executions, executions run steps in order, WAIT suspends them and the
// resumer picks them back up on later ticks.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bloomcart/marketing-core/pkg/contacts"
	"github.com/bloomcart/marketing-core/pkg/eventbus"
	"github.com/bloomcart/marketing-core/pkg/events"
	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
	"github.com/bloomcart/marketing-core/pkg/registry"
)

// Engine advances one execution until it suspends on a WAIT step or reaches a
// terminal status. It owns the step loop; trigger fan-out and resume claiming
// live in Dispatcher and Resumer.
type Engine struct {
	workflows  persistence.WorkflowRepository
	executions persistence.ExecutionRepository
	contacts   contacts.Store
	registry   *registry.Registry
	publisher  eventbus.EventPublisher
	logger     *slog.Logger
	now        func() time.Time
}

func NewEngine(
	persistence persistence.Persistence,
	contactStore contacts.Store,
	registry *registry.Registry,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		workflows:  persistence.WorkflowRepository(),
		executions: persistence.ExecutionRepository(),
		contacts:   contactStore,
		registry:   registry,
		publisher:  publisher,
		logger:     logger.With("module", "workflow_engine"),
		now:        time.Now,
	}
}

// WithClock overrides the engine clock.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now

	return e
}

// Run executes steps starting at the execution's current index. The execution
// must already be in running status; callers transition it there (fresh from a
// trigger, or claimed by the resumer).
func (e *Engine) Run(ctx context.Context, execution *models.WorkflowExecution) error {
	logger := e.logger.With("execution_id", execution.ID, "workflow_id", execution.WorkflowID)

	workflow, err := e.workflows.GetByID(ctx, execution.WorkflowID)
	if err != nil {
		return e.fail(ctx, execution, execution.CurrentStepIndex, fmt.Errorf("failed to fetch workflow: %w", err))
	}

	ectx, err := e.buildExecutionContext(ctx, execution)
	if err != nil {
		return e.fail(ctx, execution, execution.CurrentStepIndex, err)
	}

	for {
		step := workflow.StepAt(execution.CurrentStepIndex)
		if step == nil {
			return e.complete(ctx, execution)
		}

		stepLogger := logger.With("step_id", step.ID, "step_type", step.Type, "step_index", step.Order)

		if step.Type == models.StepWait {
			return e.suspend(ctx, execution, step, stepLogger)
		}

		executor, err := e.registry.CreateExecutor(ctx, step.Type, step.Config)
		if err != nil {
			// A config or registration problem is never skippable.
			return e.fail(ctx, execution, step.Order, fmt.Errorf("step %s: %w", step.ID, err))
		}

		result, err := e.executeStep(ctx, executor, ectx, stepLogger)
		if err != nil {
			if !executor.ContinueOnError() {
				return e.fail(ctx, execution, step.Order, fmt.Errorf("step %s failed: %w", step.ID, err))
			}

			stepLogger.WarnContext(ctx, "Step failed, continuing", "error", err)
			execution.MergeContext(map[string]any{"error:" + step.ID: err.Error()})
		} else if result != nil {
			execution.MergeContext(result.ContextPatch)

			if result.Halt {
				stepLogger.InfoContext(ctx, "Step requested stop, completing execution")

				return e.complete(ctx, execution)
			}
		}

		ectx.Data = execution.Context

		// Re-read the contact after a mutating step so later conditions
		// and templates see the fresh state.
		if step.Type.MutatesContact() {
			contact, err := e.contacts.GetByID(ctx, execution.ContactID)
			if err != nil {
				return e.fail(ctx, execution, step.Order, fmt.Errorf("failed to refresh contact %s: %w", execution.ContactID, err))
			}

			ectx.Contact = contact
		}

		execution.CurrentStepIndex++

		err = e.executions.Save(ctx, execution)
		if err != nil {
			return fmt.Errorf("failed to persist execution progress: %w", err)
		}
	}
}

func (e *Engine) buildExecutionContext(ctx context.Context, execution *models.WorkflowExecution) (models.ExecutionContext, error) {
	ectx := models.ExecutionContext{
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		Data:        execution.Context,
		TriggerData: execution.TriggerData,
	}

	contact, err := e.contacts.GetByID(ctx, execution.ContactID)
	if err != nil {
		return ectx, fmt.Errorf("failed to fetch contact %s: %w", execution.ContactID, err)
	}

	ectx.Contact = contact

	return ectx, nil
}

func (e *Engine) executeStep(ctx context.Context, executor models.StepExecutor, ectx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	result, err := executor.Execute(ctx, ectx, logger)
	if err != nil {
		return nil, err
	}

	if result != nil && !result.Success {
		return nil, fmt.Errorf("step reported failure: %s", result.Error)
	}

	return result, nil
}

// suspend parks the execution until resume_at. The step index is advanced
// first, so resuming continues at the step after the WAIT.
func (e *Engine) suspend(ctx context.Context, execution *models.WorkflowExecution, step *models.Step, logger *slog.Logger) error {
	resumeAt := e.now().UTC().Add(time.Duration(step.DelayMins) * time.Minute)

	execution.Status = models.ExecutionStatusWaiting
	execution.ResumeAt = &resumeAt
	execution.CurrentStepIndex = step.Order + 1

	err := e.executions.Save(ctx, execution)
	if err != nil {
		return fmt.Errorf("failed to suspend execution: %w", err)
	}

	logger.InfoContext(ctx, "Execution suspended", "resume_at", resumeAt, "delay_mins", step.DelayMins)

	e.publish(ctx, execution.ID, events.ExecutionWaiting{
		BaseEvent:   events.NewBaseEvent(events.ExecutionWaitingEvent),
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		StepIndex:   step.Order,
		ResumeAt:    resumeAt,
	})

	return nil
}

func (e *Engine) complete(ctx context.Context, execution *models.WorkflowExecution) error {
	completedAt := e.now().UTC()

	execution.Status = models.ExecutionStatusCompleted
	execution.ResumeAt = nil
	execution.CompletedAt = &completedAt

	err := e.executions.Save(ctx, execution)
	if err != nil {
		return fmt.Errorf("failed to complete execution: %w", err)
	}

	e.logger.InfoContext(ctx, "Execution completed", "execution_id", execution.ID, "workflow_id", execution.WorkflowID)

	e.publish(ctx, execution.ID, events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent),
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		Duration:    completedAt.Sub(execution.StartedAt),
	})

	return nil
}

func (e *Engine) fail(ctx context.Context, execution *models.WorkflowExecution, stepIndex int, cause error) error {
	completedAt := e.now().UTC()

	execution.Status = models.ExecutionStatusFailed
	execution.ResumeAt = nil
	execution.Error = cause.Error()
	execution.CompletedAt = &completedAt

	err := e.executions.Save(ctx, execution)
	if err != nil {
		return fmt.Errorf("failed to persist failed execution: %w", err)
	}

	e.logger.ErrorContext(ctx, "Execution failed",
		"execution_id", execution.ID,
		"workflow_id", execution.WorkflowID,
		"step_index", stepIndex,
		"error", cause)

	e.publish(ctx, execution.ID, events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent),
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		StepIndex:   stepIndex,
		Error:       cause.Error(),
	})

	return cause
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, key, event)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
