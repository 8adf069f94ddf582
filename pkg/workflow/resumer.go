package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bloomcart/marketing-core/pkg/eventbus"
	"github.com/bloomcart/marketing-core/pkg/events"
	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
)

const defaultResumeBatchSize = 50

// Resumer wakes suspended executions whose resume time has passed. Each
// candidate is claimed with a conditional status flip before it runs, so two
// overlapping ticks never resume the same execution twice.
type Resumer struct {
	executions persistence.ExecutionRepository
	engine     *Engine
	publisher  eventbus.EventPublisher
	logger     *slog.Logger
	now        func() time.Time
	batchSize  int
}

func NewResumer(
	persistence persistence.Persistence,
	engine *Engine,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Resumer {
	return &Resumer{
		executions: persistence.ExecutionRepository(),
		engine:     engine,
		publisher:  publisher,
		logger:     logger.With("module", "workflow_resumer"),
		now:        time.Now,
		batchSize:  defaultResumeBatchSize,
	}
}

// WithClock overrides the resumer clock.
func (r *Resumer) WithClock(now func() time.Time) *Resumer {
	r.now = now

	return r
}

// WithBatchSize overrides the per-tick resume bound.
func (r *Resumer) WithBatchSize(size int) *Resumer {
	if size > 0 {
		r.batchSize = size
	}

	return r
}

// ResumeDue claims and runs due waiting executions, bounded by the batch
// size. It returns how many executions this call resumed; one execution
// failing does not stop the rest of the batch.
func (r *Resumer) ResumeDue(ctx context.Context) (int, error) {
	due, err := r.executions.ListWaitingDue(ctx, r.now().UTC(), r.batchSize)
	if err != nil {
		return 0, err
	}

	resumed := 0

	var errs []error

	for _, execution := range due {
		claimed, err := r.executions.ClaimWaiting(ctx, execution.ID)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		if !claimed {
			r.logger.DebugContext(ctx, "Execution already claimed", "execution_id", execution.ID)

			continue
		}

		execution.Status = models.ExecutionStatusRunning
		execution.ResumeAt = nil

		r.logger.InfoContext(ctx, "Resuming execution",
			"execution_id", execution.ID,
			"workflow_id", execution.WorkflowID,
			"step_index", execution.CurrentStepIndex)

		if r.publisher != nil {
			err = r.publisher.Publish(ctx, execution.ID, events.ExecutionResumed{
				BaseEvent:   events.NewBaseEvent(events.ExecutionResumedEvent),
				ExecutionID: execution.ID,
				WorkflowID:  execution.WorkflowID,
				StepIndex:   execution.CurrentStepIndex,
			})
			if err != nil {
				r.logger.ErrorContext(ctx, "Failed to publish event",
					"event_type", events.ExecutionResumedEvent, "error", err)
			}
		}

		resumed++

		err = r.engine.Run(ctx, execution)
		if err != nil {
			r.logger.ErrorContext(ctx, "Resumed execution failed",
				"execution_id", execution.ID, "error", err)
		}
	}

	return resumed, errors.Join(errs...)
}
