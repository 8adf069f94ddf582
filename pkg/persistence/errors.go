// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow definition was not found.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExecutionNotFound indicates a workflow execution was not found.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrCampaignNotFound indicates a campaign was not found by id or discount code.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrPostNotFound indicates a scheduled post was not found.
	ErrPostNotFound = errors.New("scheduled post not found")

	// ErrDuplicateDiscountCode indicates another campaign already owns the code.
	ErrDuplicateDiscountCode = errors.New("discount code already in use")
)

// OpError wraps a repository error with the operation and entity id involved.
type OpError struct {
	Op       string // Operation being performed (e.g., "GetByID", "Save", "ClaimWaiting")
	EntityID string
	Err      error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.EntityID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError creates a new operation error with context.
func NewOpError(op, entityID string, err error) *OpError {
	return &OpError{Op: op, EntityID: entityID, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsCampaignNotFound checks if an error indicates a campaign was not found.
func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

// IsPostNotFound checks if an error indicates a scheduled post was not found.
func IsPostNotFound(err error) bool {
	return errors.Is(err, ErrPostNotFound)
}
