// Package contacts defines the contact/tag store consumed by workflow steps.
// The real store lives in the surrounding CRM; the core only needs read and
// write access to tags and attributes.
package contacts

import (
	"context"

	"github.com/bloomcart/marketing-core/pkg/models"
)

// Store is the contact collaborator interface. Tag mutations are idempotent.
type Store interface {
	GetByID(ctx context.Context, id string) (*models.Contact, error)
	UpdateAttributes(ctx context.Context, id string, attributes map[string]any) error
	AddTag(ctx context.Context, id, tag string) error
	RemoveTag(ctx context.Context, id, tag string) error
}
