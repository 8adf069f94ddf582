// Package notify defines the outbound email and SMS collaborator interfaces.
// Implementations backed by a real provider live outside this core; the
// logging implementations here keep development and tests deterministic.
package notify

import (
	"context"
	"log/slog"
)

// EmailSender delivers a templated email to one recipient.
type EmailSender interface {
	SendTemplate(ctx context.Context, templateID, recipient string, data map[string]any) error
}

// SMSSender delivers a text message to one phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, body string) error
}

// LogEmailSender records sends without delivering anything.
type LogEmailSender struct {
	logger *slog.Logger
}

func NewLogEmailSender(logger *slog.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger.With("module", "email_sender")}
}

func (s *LogEmailSender) SendTemplate(ctx context.Context, templateID, recipient string, data map[string]any) error {
	s.logger.InfoContext(ctx, "Sending templated email",
		"template_id", templateID,
		"recipient", recipient,
		"data_keys", len(data))

	return nil
}

// LogSMSSender records sends without delivering anything.
type LogSMSSender struct {
	logger *slog.Logger
}

func NewLogSMSSender(logger *slog.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger.With("module", "sms_sender")}
}

func (s *LogSMSSender) SendSMS(ctx context.Context, phone, body string) error {
	s.logger.InfoContext(ctx, "Sending SMS", "phone", phone, "length", len(body))

	return nil
}
