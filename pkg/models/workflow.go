// Package models defines the core domain entities of the marketing automation core.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft  WorkflowStatus = "draft"  // Editable, never triggered
	WorkflowStatusActive WorkflowStatus = "active" // Eligible for trigger matching
	WorkflowStatusPaused WorkflowStatus = "paused" // Temporarily excluded from matching
)

// TriggerType identifies the external event class that can start executions.
type TriggerType string

const (
	TriggerContactSignup  TriggerType = "contact_signup"
	TriggerCartAbandoned  TriggerType = "cart_abandoned"
	TriggerOrderCompleted TriggerType = "order_completed"
	TriggerBirthday       TriggerType = "birthday"
	TriggerManual         TriggerType = "manual"
)

// WorkflowDefinition is a named, reusable ordered list of steps started by a
// trigger type. Created by admin actions; activation and pause mutate Status,
// definitions are never auto-deleted.
type WorkflowDefinition struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"         validate:"required,min=3"`
	Description string         `json:"description"`
	TriggerType TriggerType    `json:"trigger_type" validate:"required"`
	Config      map[string]any `json:"config,omitempty"`
	Status      WorkflowStatus `json:"status"`
	Steps       []*Step        `json:"steps"        validate:"dive"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// StepAt returns the step with the given order index, or nil when the index
// is past the end of the list.
func (w *WorkflowDefinition) StepAt(index int) *Step {
	for _, step := range w.Steps {
		if step.Order == index {
			return step
		}
	}

	return nil
}
