// Package wait provides the WAIT step executor. The step is purely
// declarative: the state machine consumes the delay and suspends the
// execution, so Execute is never reached during normal operation.
package wait

import (
	"context"
	"log/slog"

	"github.com/bloomcart/marketing-core/pkg/models"
)

// Schema describes the WAIT configuration. The delay lives on the step
// itself (delay_mins), not in the config map.
const Schema = `{
	"type": "object",
	"properties": {}
}`

// Executor is a no-op placeholder registered for completeness.
type Executor struct{}

// NewExecutor creates a WAIT executor.
func NewExecutor(_ map[string]any) (*Executor, error) {
	return &Executor{}, nil
}

func (e *Executor) Validate(_ context.Context) error { return nil }

func (e *Executor) ContinueOnError() bool { return true }

func (e *Executor) Execute(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (*models.StepResult, error) {
	return &models.StepResult{Success: true}, nil
}
