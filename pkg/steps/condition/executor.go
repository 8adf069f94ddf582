// Package condition provides the CONDITION step executor: a pure,
// deterministic predicate over the execution context and contact. A false
// predicate requests a soft stop; the execution completes without running
// further steps and without being marked failed.
package condition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bloomcart/marketing-core/pkg/models"
)

var (
	// ErrFieldMissing is returned when the configuration has no field and
	// the operator requires one.
	ErrFieldMissing = errors.New("missing or invalid 'field' in configuration")
	// ErrOperatorMissing is returned when the configuration has no operator.
	ErrOperatorMissing = errors.New("missing or invalid 'operator' in configuration")
)

// Schema describes the CONDITION configuration.
const Schema = `{
	"type": "object",
	"properties": {
		"field": {"type": "string"},
		"operator": {"type": "string", "enum": ["eq", "neq", "gt", "gte", "lt", "lte", "contains", "exists", "has_tag", "not_has_tag"]},
		"value": {},
		"label": {"type": "string"}
	},
	"required": ["operator"]
}`

// Executor evaluates one predicate. No side effects.
type Executor struct {
	Field    string
	Operator string
	Value    any
	Label    string

	interpreter models.ConditionInterpreter
}

// NewExecutor creates a CONDITION executor from configuration.
func NewExecutor(config map[string]any) (*Executor, error) {
	operator, ok := config["operator"].(string)
	if !ok || operator == "" {
		return nil, ErrOperatorMissing
	}

	field, _ := config["field"].(string)
	if field == "" && operator != models.OpHasTag && operator != models.OpNotHasTag {
		return nil, ErrFieldMissing
	}

	label, _ := config["label"].(string)
	if label == "" {
		label = operator
	}

	return &Executor{
		Field:    field,
		Operator: operator,
		Value:    config["value"],
		Label:    label,
	}, nil
}

func (e *Executor) Validate(_ context.Context) error {
	if e.Operator == "" {
		return ErrOperatorMissing
	}

	return nil
}

func (e *Executor) ContinueOnError() bool { return false }

func (e *Executor) Execute(ctx context.Context, ectx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	logger = logger.With("module", "condition_step", "operator", e.Operator, "field", e.Field)

	passed, err := e.interpreter.Evaluate(ectx, e.Field, e.Operator, e.Value)
	if err != nil {
		return nil, fmt.Errorf("condition evaluation failed: %w", err)
	}

	logger.DebugContext(ctx, "Condition evaluated", "passed", passed)

	return &models.StepResult{
		Success:      true,
		Halt:         !passed,
		ContextPatch: map[string]any{"condition:" + e.Label: passed},
	}, nil
}
