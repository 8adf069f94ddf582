// Package registry maps step types to executor factories. The state machine
// never switches on step types itself; adding a step type is one Register call.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/bloomcart/marketing-core/pkg/models"
)

// ErrStepTypeNotRegistered is returned when no factory exists for a step type.
var ErrStepTypeNotRegistered = errors.New("step type not registered")

// ExecutorFactory builds a step executor from its opaque configuration.
type ExecutorFactory func(config map[string]any) (models.StepExecutor, error)

// RegisteredStep describes one step type, including the JSON schema its
// configuration must satisfy.
type RegisteredStep struct {
	Type        models.StepType `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      string          `json:"schema,omitempty"`

	compiled *gojsonschema.Schema
}

// Registry holds the executor factories for all known step types.
type Registry struct {
	logger    *slog.Logger
	factories map[models.StepType]ExecutorFactory
	steps     map[models.StepType]*RegisteredStep
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "registry"),
		factories: make(map[models.StepType]ExecutorFactory),
		steps:     make(map[models.StepType]*RegisteredStep),
	}
}

// Register adds a step type. The schema, when present, is compiled once here.
func (r *Registry) Register(step *RegisteredStep, factory ExecutorFactory) error {
	if step.Schema != "" {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(step.Schema))
		if err != nil {
			return fmt.Errorf("invalid schema for step type %q: %w", step.Type, err)
		}

		step.compiled = compiled
	}

	r.factories[step.Type] = factory
	r.steps[step.Type] = step

	return nil
}

// CreateExecutor validates the configuration against the registered schema
// and builds the executor.
func (r *Registry) CreateExecutor(ctx context.Context, stepType models.StepType, config map[string]any) (models.StepExecutor, error) {
	factory, ok := r.factories[stepType]
	if !ok {
		return nil, fmt.Errorf("step type %q: %w", stepType, ErrStepTypeNotRegistered)
	}

	err := r.ValidateConfig(stepType, config)
	if err != nil {
		return nil, err
	}

	executor, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create executor for step type %q: %w", stepType, err)
	}

	err = executor.Validate(ctx)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration for step type %q: %w", stepType, err)
	}

	return executor, nil
}

// ValidateConfig checks a step configuration against the registered schema.
func (r *Registry) ValidateConfig(stepType models.StepType, config map[string]any) error {
	step, ok := r.steps[stepType]
	if !ok {
		return fmt.Errorf("step type %q: %w", stepType, ErrStepTypeNotRegistered)
	}

	if step.compiled == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := step.compiled.Validate(gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("failed to validate config for step type %q: %w", stepType, err)
	}

	if !result.Valid() {
		return fmt.Errorf("invalid config for step type %q: %s", stepType, result.Errors()[0].String())
	}

	return nil
}

// AvailableSteps lists the registered step types sorted by type name.
func (r *Registry) AvailableSteps() []*RegisteredStep {
	steps := make([]*RegisteredStep, 0, len(r.steps))
	for _, step := range r.steps {
		steps = append(steps, step)
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].Type < steps[j].Type })

	return steps
}
