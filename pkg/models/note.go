package models

import "time"

// Note is an immutable internal annotation attached to a contact by an
// INTERNAL_NOTE step. Notes are append-only.
type Note struct {
	ID          string    `json:"id"`
	ContactID   string    `json:"contact_id"`
	ExecutionID string    `json:"execution_id,omitempty"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}
