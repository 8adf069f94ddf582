package workflow

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/bloomcart/marketing-core/pkg/dedup"
	"github.com/bloomcart/marketing-core/pkg/eventbus"
	"github.com/bloomcart/marketing-core/pkg/events"
	"github.com/bloomcart/marketing-core/pkg/loyalty"
	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
)

// Trigger is one external event delivered to the core. EventID is optional;
// when present, redeliveries with the same id are processed at most once.
type Trigger struct {
	Type         models.TriggerType `json:"type"          validate:"required"`
	ContactID    string             `json:"contact_id"    validate:"required"`
	ContactEmail string             `json:"contact_email"`
	EventID      string             `json:"event_id,omitempty"`
	Data         map[string]any     `json:"data,omitempty"`
}

// Dispatcher fans a trigger out to every active workflow of that trigger type,
// creating one execution per workflow and running each until its first WAIT or
// a terminal status.
type Dispatcher struct {
	workflows  persistence.WorkflowRepository
	executions persistence.ExecutionRepository
	engine     *Engine
	deduper    dedup.Deduper
	awarder    loyalty.Awarder
	publisher  eventbus.EventPublisher
	logger     *slog.Logger
	now        func() time.Time
}

func NewDispatcher(
	persistence persistence.Persistence,
	engine *Engine,
	deduper dedup.Deduper,
	awarder loyalty.Awarder,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		workflows:  persistence.WorkflowRepository(),
		executions: persistence.ExecutionRepository(),
		engine:     engine,
		deduper:    deduper,
		awarder:    awarder,
		publisher:  publisher,
		logger:     logger.With("module", "workflow_dispatcher"),
		now:        time.Now,
	}
}

// WithClock overrides the dispatcher clock.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now

	return d
}

// HandleTrigger creates and starts executions for the trigger. It returns the
// ids of the executions created; a duplicate delivery returns an empty list.
// A failure inside one execution does not stop the fan-out to the others.
func (d *Dispatcher) HandleTrigger(ctx context.Context, trigger Trigger) ([]string, error) {
	logger := d.logger.With("trigger_type", trigger.Type, "contact_id", trigger.ContactID)

	if trigger.EventID != "" && d.deduper != nil {
		first, err := d.deduper.FirstSeen(ctx, trigger.EventID)
		if err != nil {
			return nil, err
		}

		if !first {
			logger.InfoContext(ctx, "Duplicate trigger delivery ignored", "event_id", trigger.EventID)

			return nil, nil
		}
	}

	d.awardLoyaltyPoints(ctx, trigger, logger)

	workflows, err := d.workflows.GetActiveByTrigger(ctx, trigger.Type)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Dispatching trigger", "matched_workflows", len(workflows))

	executionIDs := make([]string, 0, len(workflows))

	for _, wf := range workflows {
		execution, err := d.startExecution(ctx, wf, trigger)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to start execution", "workflow_id", wf.ID, "error", err)

			continue
		}

		executionIDs = append(executionIDs, execution.ID)

		// Eager first burst; engine.Run reports step failures through the
		// execution record and the event stream.
		err = d.engine.Run(ctx, execution)
		if err != nil {
			logger.ErrorContext(ctx, "Execution failed during initial run",
				"workflow_id", wf.ID, "execution_id", execution.ID, "error", err)
		}
	}

	return executionIDs, nil
}

func (d *Dispatcher) startExecution(ctx context.Context, wf *models.WorkflowDefinition, trigger Trigger) (*models.WorkflowExecution, error) {
	execution := &models.WorkflowExecution{
		ID:               uuid.New().String(),
		WorkflowID:       wf.ID,
		ContactID:        trigger.ContactID,
		ContactEmail:     trigger.ContactEmail,
		Status:           models.ExecutionStatusRunning,
		CurrentStepIndex: 0,
		Context:          make(map[string]any),
		TriggerData:      maps.Clone(trigger.Data),
		StartedAt:        d.now().UTC(),
	}

	err := d.executions.Save(ctx, execution)
	if err != nil {
		return nil, err
	}

	if d.publisher != nil {
		err = d.publisher.Publish(ctx, execution.ID, events.ExecutionStarted{
			BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent),
			ExecutionID: execution.ID,
			WorkflowID:  wf.ID,
			ContactID:   trigger.ContactID,
			TriggerData: trigger.Data,
		})
		if err != nil {
			d.logger.ErrorContext(ctx, "Failed to publish event",
				"event_type", events.ExecutionStartedEvent, "error", err)
		}
	}

	return execution, nil
}

// awardLoyaltyPoints is a trigger side effect, independent of whether any
// workflow matched. Errors are logged; points never block the fan-out.
func (d *Dispatcher) awardLoyaltyPoints(ctx context.Context, trigger Trigger, logger *slog.Logger) {
	if d.awarder == nil || trigger.Type != models.TriggerOrderCompleted {
		return
	}

	orderValue, ok := trigger.Data["order_value"].(float64)
	if !ok {
		return
	}

	err := d.awarder.AwardPoints(ctx, trigger.ContactID, orderValue)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to award loyalty points", "error", err)
	}
}
