// Package loyalty defines the points-awarding collaborator invoked as a side
// effect of order-completed triggers. The ledger itself lives outside this core.
package loyalty

import (
	"context"
	"log/slog"
)

// Awarder credits loyalty points to a contact.
type Awarder interface {
	AwardPoints(ctx context.Context, contactID string, orderValue float64) error
}

// LogAwarder records awards without touching a ledger.
type LogAwarder struct {
	logger *slog.Logger
}

func NewLogAwarder(logger *slog.Logger) *LogAwarder {
	return &LogAwarder{logger: logger.With("module", "loyalty")}
}

func (a *LogAwarder) AwardPoints(ctx context.Context, contactID string, orderValue float64) error {
	a.logger.InfoContext(ctx, "Awarding loyalty points", "contact_id", contactID, "order_value", orderValue)

	return nil
}
