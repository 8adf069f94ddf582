// Package contact provides the contact-mutating step executors:
// UPDATE_CONTACT, ADD_TAG and REMOVE_TAG. All three are idempotent and halt
// the owning execution on failure, since later steps may depend on the
// contact state they establish.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bloomcart/marketing-core/pkg/contacts"
	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/template"
)

var (
	// ErrAttributesMissing is returned when UPDATE_CONTACT has no attributes map.
	ErrAttributesMissing = errors.New("missing or invalid 'attributes' in configuration")
	// ErrTagMissing is returned when a tag step has no tag name.
	ErrTagMissing = errors.New("missing or invalid 'tag' in configuration")
)

// UpdateSchema describes the UPDATE_CONTACT configuration.
const UpdateSchema = `{
	"type": "object",
	"properties": {
		"attributes": {"type": "object", "minProperties": 1}
	},
	"required": ["attributes"]
}`

// TagSchema describes the ADD_TAG and REMOVE_TAG configuration.
const TagSchema = `{
	"type": "object",
	"properties": {
		"tag": {"type": "string", "minLength": 1}
	},
	"required": ["tag"]
}`

// UpdateExecutor merges attribute values into the contact record.
type UpdateExecutor struct {
	Attributes map[string]any

	store contacts.Store
}

// NewUpdateExecutor creates an UPDATE_CONTACT executor from configuration.
func NewUpdateExecutor(config map[string]any, store contacts.Store) (*UpdateExecutor, error) {
	attributes, ok := config["attributes"].(map[string]any)
	if !ok || len(attributes) == 0 {
		return nil, ErrAttributesMissing
	}

	return &UpdateExecutor{Attributes: attributes, store: store}, nil
}

func (e *UpdateExecutor) Validate(_ context.Context) error {
	if len(e.Attributes) == 0 {
		return ErrAttributesMissing
	}

	return nil
}

func (e *UpdateExecutor) ContinueOnError() bool { return false }

func (e *UpdateExecutor) Execute(ctx context.Context, ectx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	logger = logger.With("module", "update_contact_step")

	if ectx.Contact == nil {
		return nil, errors.New("execution has no contact")
	}

	attributes, err := template.RenderMap(e.Attributes, ectx)
	if err != nil {
		return nil, err
	}

	err = e.store.UpdateAttributes(ctx, ectx.Contact.ID, attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	logger.InfoContext(ctx, "Contact attributes updated", "contact_id", ectx.Contact.ID, "count", len(attributes))

	return &models.StepResult{Success: true}, nil
}

// TagExecutor adds or removes one tag. Adding an existing tag and removing a
// missing tag are both no-ops.
type TagExecutor struct {
	Tag    string
	Remove bool

	store contacts.Store
}

// NewAddTagExecutor creates an ADD_TAG executor from configuration.
func NewAddTagExecutor(config map[string]any, store contacts.Store) (*TagExecutor, error) {
	return newTagExecutor(config, store, false)
}

// NewRemoveTagExecutor creates a REMOVE_TAG executor from configuration.
func NewRemoveTagExecutor(config map[string]any, store contacts.Store) (*TagExecutor, error) {
	return newTagExecutor(config, store, true)
}

func newTagExecutor(config map[string]any, store contacts.Store, remove bool) (*TagExecutor, error) {
	tag, ok := config["tag"].(string)
	if !ok || tag == "" {
		return nil, ErrTagMissing
	}

	return &TagExecutor{Tag: tag, Remove: remove, store: store}, nil
}

func (e *TagExecutor) Validate(_ context.Context) error {
	if e.Tag == "" {
		return ErrTagMissing
	}

	return nil
}

func (e *TagExecutor) ContinueOnError() bool { return false }

func (e *TagExecutor) Execute(ctx context.Context, ectx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	logger = logger.With("module", "tag_step", "tag", e.Tag, "remove", e.Remove)

	if ectx.Contact == nil {
		return nil, errors.New("execution has no contact")
	}

	var err error
	if e.Remove {
		err = e.store.RemoveTag(ctx, ectx.Contact.ID, e.Tag)
	} else {
		err = e.store.AddTag(ctx, ectx.Contact.ID, e.Tag)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to update contact tags: %w", err)
	}

	logger.InfoContext(ctx, "Contact tags updated", "contact_id", ectx.Contact.ID)

	return &models.StepResult{Success: true}, nil
}
