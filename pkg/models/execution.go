package models

import "time"

// ExecutionStatus represents the state machine of one workflow execution.
// Completed, failed and cancelled are terminal.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusWaiting   ExecutionStatus = "waiting"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// WorkflowExecution is one running instance of a workflow for one contact and
// triggering event. CurrentStepIndex only ever increases. ResumeAt is non-nil
// iff Status is waiting.
type WorkflowExecution struct {
	ID               string          `json:"id"`
	WorkflowID       string          `json:"workflow_id"`
	ContactID        string          `json:"contact_id"`
	ContactEmail     string          `json:"contact_email,omitempty"`
	Status           ExecutionStatus `json:"status"`
	CurrentStepIndex int             `json:"current_step_index"`
	ResumeAt         *time.Time      `json:"resume_at,omitempty"`
	Context          map[string]any  `json:"context,omitempty"`
	TriggerData      map[string]any  `json:"trigger_data,omitempty"`
	Error            string          `json:"error,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

// MergeContext applies a context patch produced by a step executor.
func (e *WorkflowExecution) MergeContext(patch map[string]any) {
	if len(patch) == 0 {
		return
	}

	if e.Context == nil {
		e.Context = make(map[string]any, len(patch))
	}

	for k, v := range patch {
		e.Context[k] = v
	}
}

// ExecutionContext is the read view handed to step executors.
type ExecutionContext struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	Contact     *Contact       `json:"contact,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}
