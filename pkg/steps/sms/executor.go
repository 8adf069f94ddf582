// Package sms provides the SEND_SMS step executor.
package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/notify"
	"github.com/bloomcart/marketing-core/pkg/template"
)

// ErrBodyMissing is returned when the configuration has no message body.
var ErrBodyMissing = errors.New("missing or invalid 'body' in configuration")

// Schema describes the SEND_SMS configuration.
const Schema = `{
	"type": "object",
	"properties": {
		"body": {"type": "string", "minLength": 1}
	},
	"required": ["body"]
}`

// Executor sends a text message to the execution's contact.
type Executor struct {
	Body string

	sender notify.SMSSender
}

// NewExecutor creates a SEND_SMS executor from configuration.
func NewExecutor(config map[string]any, sender notify.SMSSender) (*Executor, error) {
	body, ok := config["body"].(string)
	if !ok || body == "" {
		return nil, ErrBodyMissing
	}

	return &Executor{Body: body, sender: sender}, nil
}

func (e *Executor) Validate(_ context.Context) error {
	_, err := template.Parse(e.Body)
	if err != nil {
		return fmt.Errorf("invalid body template: %w", err)
	}

	return nil
}

// ContinueOnError reports that a delivery failure is recorded but does not
// fail the owning execution.
func (e *Executor) ContinueOnError() bool { return true }

func (e *Executor) Execute(ctx context.Context, ectx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	logger = logger.With("module", "sms_step")

	if ectx.Contact == nil || ectx.Contact.Phone == "" {
		return nil, errors.New("execution has no contact phone")
	}

	body, err := template.RenderWithContext(e.Body, ectx)
	if err != nil {
		return nil, err
	}

	err = e.sender.SendSMS(ctx, ectx.Contact.Phone, body)
	if err != nil {
		return nil, fmt.Errorf("sms delivery failed: %w", err)
	}

	logger.InfoContext(ctx, "SMS sent", "phone", ectx.Contact.Phone)

	return &models.StepResult{Success: true}, nil
}
