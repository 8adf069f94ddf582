package models

import (
	"context"
	"log/slog"
)

// StepType identifies which executor handles a step.
type StepType string

const (
	StepSendEmail     StepType = "send_email"
	StepWait          StepType = "wait"
	StepCondition     StepType = "condition"
	StepUpdateContact StepType = "update_contact"
	StepAddTag        StepType = "add_tag"
	StepRemoveTag     StepType = "remove_tag"
	StepWebhook       StepType = "webhook"
	StepSocialPost    StepType = "social_post"
	StepInternalNote  StepType = "internal_note"
	StepSendSMS       StepType = "send_sms"
)

// MutatesContact reports whether the step writes through the contact store.
func (t StepType) MutatesContact() bool {
	return t == StepUpdateContact || t == StepAddTag || t == StepRemoveTag
}

// Step is a single action or control unit inside a workflow. Order indices
// are dense and monotonic within one workflow.
type Step struct {
	ID        string         `json:"id"`
	Order     int            `json:"order"`
	Type      StepType       `json:"type"   validate:"required"`
	Config    map[string]any `json:"config"`
	DelayMins int            `json:"delay_mins,omitempty"` // WAIT steps only
}

// StepResult carries the outcome of one executor invocation. ContextPatch is
// merged into the execution context before the next step runs. Halt requests
// a soft stop: the execution completes without running further steps and
// without being marked failed (a condition step that evaluated false).
type StepResult struct {
	Success      bool           `json:"success"`
	Halt         bool           `json:"halt,omitempty"`
	ContextPatch map[string]any `json:"context_patch,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// StepExecutor is the common contract for all step handlers. Execute must
// not retry external calls; the core records failures and moves on according
// to ContinueOnError.
type StepExecutor interface {
	Execute(ctx context.Context, ectx ExecutionContext, logger *slog.Logger) (*StepResult, error)
	Validate(ctx context.Context) error

	// ContinueOnError reports whether a failure of this step should be
	// recorded and skipped (notification-style steps) instead of failing
	// the owning execution.
	ContinueOnError() bool
}
