// Package email provides the SEND_EMAIL step executor.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/notify"
	"github.com/bloomcart/marketing-core/pkg/template"
)

// ErrTemplateIDMissing is returned when the configuration has no template id.
var ErrTemplateIDMissing = errors.New("missing or invalid 'template_id' in configuration")

// Schema describes the SEND_EMAIL configuration.
const Schema = `{
	"type": "object",
	"properties": {
		"template_id": {"type": "string", "minLength": 1},
		"data": {"type": "object"}
	},
	"required": ["template_id"]
}`

// Executor sends a templated email to the execution's contact.
type Executor struct {
	TemplateID string
	Data       map[string]any

	sender notify.EmailSender
}

// NewExecutor creates a SEND_EMAIL executor from configuration.
func NewExecutor(config map[string]any, sender notify.EmailSender) (*Executor, error) {
	templateID, ok := config["template_id"].(string)
	if !ok || templateID == "" {
		return nil, ErrTemplateIDMissing
	}

	data, _ := config["data"].(map[string]any)

	return &Executor{TemplateID: templateID, Data: data, sender: sender}, nil
}

func (e *Executor) Validate(_ context.Context) error {
	if e.TemplateID == "" {
		return ErrTemplateIDMissing
	}

	for key, value := range e.Data {
		str, ok := value.(string)
		if !ok {
			continue
		}

		_, err := template.Parse(str)
		if err != nil {
			return fmt.Errorf("invalid data template %q: %w", key, err)
		}
	}

	return nil
}

// ContinueOnError reports that a delivery failure is recorded but does not
// fail the owning execution.
func (e *Executor) ContinueOnError() bool { return true }

func (e *Executor) Execute(ctx context.Context, ectx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	logger = logger.With("module", "email_step", "template_id", e.TemplateID)

	if ectx.Contact == nil || ectx.Contact.Email == "" {
		return nil, errors.New("execution has no contact email")
	}

	data, err := template.RenderMap(e.Data, ectx)
	if err != nil {
		return nil, err
	}

	err = e.sender.SendTemplate(ctx, e.TemplateID, ectx.Contact.Email, data)
	if err != nil {
		return nil, fmt.Errorf("email delivery failed: %w", err)
	}

	logger.InfoContext(ctx, "Email sent", "recipient", ectx.Contact.Email)

	return &models.StepResult{
		Success:      true,
		ContextPatch: map[string]any{"last_email_template": e.TemplateID},
	}, nil
}
