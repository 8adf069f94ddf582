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

// WorkflowRepository handles workflow-definition database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const workflowColumns = `
	id
  , name
  , description
  , trigger_type
  , config
  , status
  , steps
  , created_at
  , updated_at
`

func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflow_definitions ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer r.closeRows(ctx, rows)

	return r.scanWorkflows(rows)
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflow_definitions WHERE id = $1`

	workflow, err := r.scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewOpError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) GetActiveByTrigger(ctx context.Context, trigger models.TriggerType) ([]*models.WorkflowDefinition, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflow_definitions
		WHERE trigger_type = $1 AND status = $2
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, string(trigger), string(models.WorkflowStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows by trigger: %w", err)
	}
	defer r.closeRows(ctx, rows)

	return r.scanWorkflows(rows)
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.WorkflowDefinition) error {
	configJSON, err := json.Marshal(workflow.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow config: %w", err)
	}

	stepsJSON, err := json.Marshal(workflow.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow steps: %w", err)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	query := `
		INSERT INTO workflow_definitions
			(id, name, description, trigger_type, config, status, steps, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , description = EXCLUDED.description
		  , trigger_type = EXCLUDED.trigger_type
		  , config = EXCLUDED.config
		  , status = EXCLUDED.status
		  , steps = EXCLUDED.steps
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID, workflow.Name, workflow.Description, string(workflow.TriggerType),
		configJSON, string(workflow.Status), stepsJSON, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *WorkflowRepository) scanWorkflow(row rowScanner) (*models.WorkflowDefinition, error) {
	var (
		workflow    models.WorkflowDefinition
		triggerType string
		status      string
		configJSON  []byte
		stepsJSON   []byte
	)

	err := row.Scan(&workflow.ID, &workflow.Name, &workflow.Description, &triggerType,
		&configJSON, &status, &stepsJSON, &workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	workflow.TriggerType = models.TriggerType(triggerType)
	workflow.Status = models.WorkflowStatus(status)

	err = json.Unmarshal(configJSON, &workflow.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow config: %w", err)
	}

	err = json.Unmarshal(stepsJSON, &workflow.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow steps: %w", err)
	}

	return &workflow, nil
}

func (r *WorkflowRepository) scanWorkflows(rows *sql.Rows) ([]*models.WorkflowDefinition, error) {
	workflows := make([]*models.WorkflowDefinition, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
