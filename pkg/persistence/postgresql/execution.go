package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
)

// ExecutionRepository handles workflow-execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const executionColumns = `
	id
  , workflow_id
  , contact_id
  , contact_email
  , status
  , current_step_index
  , resume_at
  , context
  , trigger_data
  , error
  , started_at
  , completed_at
`

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM workflow_executions WHERE id = $1`

	execution, err := r.scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewOpError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

func (r *ExecutionRepository) Save(ctx context.Context, execution *models.WorkflowExecution) error {
	contextJSON, err := json.Marshal(execution.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal execution context: %w", err)
	}

	triggerJSON, err := json.Marshal(execution.TriggerData)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	query := `
		INSERT INTO workflow_executions
			(id, workflow_id, contact_id, contact_email, status, current_step_index,
			 resume_at, context, trigger_data, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status
		  , current_step_index = EXCLUDED.current_step_index
		  , resume_at = EXCLUDED.resume_at
		  , context = EXCLUDED.context
		  , error = EXCLUDED.error
		  , completed_at = EXCLUDED.completed_at
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID, execution.WorkflowID, execution.ContactID, execution.ContactEmail,
		string(execution.Status), execution.CurrentStepIndex, execution.ResumeAt,
		contextJSON, triggerJSON, execution.Error, execution.StartedAt, execution.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) ListWaitingDue(ctx context.Context, now time.Time, limit int) ([]*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + `
		FROM workflow_executions
		WHERE status = $1 AND resume_at <= $2
		ORDER BY resume_at
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, string(models.ExecutionStatusWaiting), now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query waiting executions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := r.scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

// ClaimWaiting is the single conditional update that closes the race between
// overlapping ticks: only one caller sees RowsAffected == 1.
func (r *ExecutionRepository) ClaimWaiting(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE workflow_executions
		SET status = $1, resume_at = NULL
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query,
		string(models.ExecutionStatusRunning), id, string(models.ExecutionStatusWaiting))
	if err != nil {
		return false, fmt.Errorf("failed to claim execution %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

func (r *ExecutionRepository) Cancel(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE workflow_executions
		SET status = $1, resume_at = NULL, completed_at = $2
		WHERE id = $3 AND status NOT IN ($4, $5, $6)
	`

	result, err := r.db.ExecContext(ctx, query,
		string(models.ExecutionStatusCancelled), time.Now().UTC(), id,
		string(models.ExecutionStatusCompleted),
		string(models.ExecutionStatusFailed),
		string(models.ExecutionStatusCancelled))
	if err != nil {
		return false, fmt.Errorf("failed to cancel execution %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

func (r *ExecutionRepository) scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var (
		execution   models.WorkflowExecution
		status      string
		resumeAt    sql.NullTime
		completedAt sql.NullTime
		contextJSON []byte
		triggerJSON []byte
	)

	err := row.Scan(&execution.ID, &execution.WorkflowID, &execution.ContactID,
		&execution.ContactEmail, &status, &execution.CurrentStepIndex, &resumeAt,
		&contextJSON, &triggerJSON, &execution.Error, &execution.StartedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)

	if resumeAt.Valid {
		execution.ResumeAt = &resumeAt.Time
	}

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	err = json.Unmarshal(contextJSON, &execution.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution context: %w", err)
	}

	err = json.Unmarshal(triggerJSON, &execution.TriggerData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger data: %w", err)
	}

	return &execution, nil
}
