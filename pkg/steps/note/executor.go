// Package note provides the INTERNAL_NOTE step executor: an immutable
// annotation appended to the contact's note history.
package note

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
	"github.com/bloomcart/marketing-core/pkg/template"
)

// ErrBodyMissing is returned when the configuration has no note body.
var ErrBodyMissing = errors.New("missing or invalid 'body' in configuration")

// Schema describes the INTERNAL_NOTE configuration.
const Schema = `{
	"type": "object",
	"properties": {
		"body": {"type": "string", "minLength": 1}
	},
	"required": ["body"]
}`

// Executor appends the rendered note.
type Executor struct {
	Body string

	notes persistence.NoteRepository
}

// NewExecutor creates an INTERNAL_NOTE executor from configuration.
func NewExecutor(config map[string]any, notes persistence.NoteRepository) (*Executor, error) {
	body, ok := config["body"].(string)
	if !ok || body == "" {
		return nil, ErrBodyMissing
	}

	return &Executor{Body: body, notes: notes}, nil
}

func (e *Executor) Validate(_ context.Context) error {
	_, err := template.Parse(e.Body)
	if err != nil {
		return fmt.Errorf("invalid body template: %w", err)
	}

	return nil
}

func (e *Executor) ContinueOnError() bool { return true }

func (e *Executor) Execute(ctx context.Context, ectx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	logger = logger.With("module", "note_step")

	if ectx.Contact == nil {
		return nil, errors.New("execution has no contact")
	}

	body, err := template.RenderWithContext(e.Body, ectx)
	if err != nil {
		return nil, err
	}

	err = e.notes.Append(ctx, &models.Note{
		ID:          uuid.New().String(),
		ContactID:   ectx.Contact.ID,
		ExecutionID: ectx.ExecutionID,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append note: %w", err)
	}

	logger.InfoContext(ctx, "Internal note appended", "contact_id", ectx.Contact.ID)

	return &models.StepResult{Success: true}, nil
}
