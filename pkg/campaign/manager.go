// Package campaign manages promotional campaign lifecycle and discount codes.
// Scheduled campaigns are activated and active campaigns expired by the
// scheduler tick; discount validation is read-only and redemption is the only
// operation that consumes a use.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bloomcart/marketing-core/pkg/eventbus"
	"github.com/bloomcart/marketing-core/pkg/events"
	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
)

var (
	// ErrInvalidDateRange is returned when start_date is not before end_date.
	ErrInvalidDateRange = errors.New("start_date must be before end_date")
	// ErrNotActivatable is returned when activating a campaign outside its
	// window or from a status other than draft or scheduled.
	ErrNotActivatable = errors.New("campaign cannot be activated")
	// ErrNotPausable is returned when pausing a campaign that is not active.
	ErrNotPausable = errors.New("only active campaigns can be paused")
	// ErrCodeNotRedeemable is returned when redeeming a code that fails validation.
	ErrCodeNotRedeemable = errors.New("discount code is not redeemable")
)

// Manager owns campaign lifecycle transitions and discount code checks.
type Manager struct {
	campaigns persistence.CampaignRepository
	publisher eventbus.EventPublisher
	validator *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

func NewManager(persistence persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Manager {
	return &Manager{
		campaigns: persistence.CampaignRepository(),
		publisher: publisher,
		validator: validator.New(),
		logger:    logger.With("module", "campaign_manager"),
		now:       time.Now,
	}
}

// WithClock overrides the manager clock.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now

	return m
}

// Create validates and stores a new campaign. A campaign whose window starts
// in the future is stored scheduled, otherwise draft; neither is live until
// activation.
func (m *Manager) Create(ctx context.Context, campaign *models.Campaign) error {
	if campaign.ID == "" {
		campaign.ID = uuid.New().String()
	}

	campaign.DiscountCode = strings.ToUpper(campaign.DiscountCode)

	err := m.validator.Struct(campaign)
	if err != nil {
		return fmt.Errorf("invalid campaign: %w", err)
	}

	if !campaign.StartDate.Before(campaign.EndDate) {
		return ErrInvalidDateRange
	}

	now := m.now().UTC()

	campaign.UsesCount = 0
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	if campaign.StartDate.After(now) {
		campaign.Status = models.CampaignStatusScheduled
	} else {
		campaign.Status = models.CampaignStatusDraft
	}

	err = m.campaigns.Save(ctx, campaign)
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "Campaign created",
		"campaign_id", campaign.ID,
		"discount_code", campaign.DiscountCode,
		"status", campaign.Status)

	return nil
}

// Activate puts a draft or scheduled campaign live. The current time must be
// inside the campaign window.
func (m *Manager) Activate(ctx context.Context, id string) (*models.Campaign, error) {
	campaign, err := m.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if campaign.Status != models.CampaignStatusDraft && campaign.Status != models.CampaignStatusScheduled {
		return nil, fmt.Errorf("%w: status is %s", ErrNotActivatable, campaign.Status)
	}

	now := m.now().UTC()
	if now.Before(campaign.StartDate) || now.After(campaign.EndDate) {
		return nil, fmt.Errorf("%w: outside campaign window", ErrNotActivatable)
	}

	campaign.Status = models.CampaignStatusActive
	campaign.UpdatedAt = now

	err = m.campaigns.Save(ctx, campaign)
	if err != nil {
		return nil, err
	}

	m.publishActivated(ctx, campaign)

	return campaign, nil
}

// Pause suspends an active campaign. A paused campaign fails validation but
// keeps its window; it can be re-activated while the window is open.
func (m *Manager) Pause(ctx context.Context, id string) (*models.Campaign, error) {
	campaign, err := m.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if campaign.Status != models.CampaignStatusActive {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPausable, campaign.Status)
	}

	campaign.Status = models.CampaignStatusPaused
	campaign.UpdatedAt = m.now().UTC()

	err = m.campaigns.Save(ctx, campaign)
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "Campaign paused", "campaign_id", campaign.ID)

	return campaign, nil
}

// ProcessScheduled is the per-tick lifecycle sweep: activate scheduled
// campaigns whose window has opened and expire active campaigns whose window
// has closed. Both transitions are claims, so overlapping ticks each count a
// given campaign at most once.
func (m *Manager) ProcessScheduled(ctx context.Context) (activated, expired int, err error) {
	now := m.now().UTC()

	due, err := m.campaigns.ListScheduledDue(ctx, now)
	if err != nil {
		return 0, 0, err
	}

	for _, campaign := range due {
		// A scheduled campaign whose whole window already passed is
		// never activated; it stays scheduled and inert.
		if campaign.EndDate.Before(now) {
			continue
		}

		won, err := m.campaigns.ClaimActivation(ctx, campaign.ID)
		if err != nil {
			m.logger.ErrorContext(ctx, "Failed to activate campaign", "campaign_id", campaign.ID, "error", err)

			continue
		}

		if !won {
			continue
		}

		activated++

		m.publishActivated(ctx, campaign)
	}

	ended, err := m.campaigns.ListActiveExpired(ctx, now)
	if err != nil {
		return activated, 0, err
	}

	for _, campaign := range ended {
		won, err := m.campaigns.MarkExpired(ctx, campaign.ID)
		if err != nil {
			m.logger.ErrorContext(ctx, "Failed to expire campaign", "campaign_id", campaign.ID, "error", err)

			continue
		}

		if !won {
			continue
		}

		expired++

		m.logger.InfoContext(ctx, "Campaign expired", "campaign_id", campaign.ID)

		m.publish(ctx, campaign.ID, events.CampaignExpired{
			BaseEvent:  events.NewBaseEvent(events.CampaignExpiredEvent),
			CampaignID: campaign.ID,
		})
	}

	return activated, expired, nil
}

// ValidateDiscountCode checks a code against an order value without consuming
// a use. An unknown code and every failed check return Valid=false; lookup
// errors other than not-found are returned as errors.
func (m *Manager) ValidateDiscountCode(ctx context.Context, code string, orderValue float64) (*models.DiscountValidation, error) {
	campaign, err := m.campaigns.GetByCode(ctx, strings.ToUpper(code))
	if err != nil {
		if persistence.IsCampaignNotFound(err) {
			return &models.DiscountValidation{Valid: false, Reason: models.ReasonExpired}, nil
		}

		return nil, err
	}

	validation := m.check(campaign, orderValue)

	return validation, nil
}

func (m *Manager) check(campaign *models.Campaign, orderValue float64) *models.DiscountValidation {
	now := m.now().UTC()

	switch {
	case campaign.Status == models.CampaignStatusPaused:
		return &models.DiscountValidation{Valid: false, Reason: models.ReasonPaused}
	case campaign.Status != models.CampaignStatusActive:
		return &models.DiscountValidation{Valid: false, Reason: models.ReasonExpired}
	case now.Before(campaign.StartDate):
		return &models.DiscountValidation{Valid: false, Reason: models.ReasonNotStarted}
	case now.After(campaign.EndDate):
		return &models.DiscountValidation{Valid: false, Reason: models.ReasonExpired}
	case campaign.MaxUses > 0 && campaign.UsesCount >= campaign.MaxUses:
		return &models.DiscountValidation{Valid: false, Reason: models.ReasonUsageLimit}
	case orderValue < campaign.MinOrderValue:
		return &models.DiscountValidation{Valid: false, Reason: models.ReasonBelowMinimum}
	}

	return &models.DiscountValidation{
		Valid:          true,
		DiscountAmount: campaign.DiscountAmount(orderValue),
	}
}

// RedeemDiscountCode validates the code and consumes one use. The increment
// is conditional on the usage limit, so concurrent redemptions cannot push
// uses_count past max_uses.
func (m *Manager) RedeemDiscountCode(ctx context.Context, code string, orderValue float64) (*models.DiscountValidation, error) {
	campaign, err := m.campaigns.GetByCode(ctx, strings.ToUpper(code))
	if err != nil {
		if persistence.IsCampaignNotFound(err) {
			return nil, fmt.Errorf("%w: unknown code", ErrCodeNotRedeemable)
		}

		return nil, err
	}

	validation := m.check(campaign, orderValue)
	if !validation.Valid {
		return nil, fmt.Errorf("%w: %s", ErrCodeNotRedeemable, validation.Reason)
	}

	incremented, err := m.campaigns.IncrementUses(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}

	if !incremented {
		return nil, fmt.Errorf("%w: %s", ErrCodeNotRedeemable, models.ReasonUsageLimit)
	}

	m.logger.InfoContext(ctx, "Discount code redeemed",
		"campaign_id", campaign.ID,
		"discount_code", campaign.DiscountCode,
		"order_value", orderValue)

	m.publish(ctx, campaign.ID, events.DiscountRedeemed{
		BaseEvent:      events.NewBaseEvent(events.DiscountRedeemedEvent),
		CampaignID:     campaign.ID,
		DiscountCode:   campaign.DiscountCode,
		OrderValue:     orderValue,
		DiscountAmount: validation.DiscountAmount,
	})

	return validation, nil
}

func (m *Manager) publishActivated(ctx context.Context, campaign *models.Campaign) {
	m.logger.InfoContext(ctx, "Campaign activated", "campaign_id", campaign.ID, "discount_code", campaign.DiscountCode)

	m.publish(ctx, campaign.ID, events.CampaignActivated{
		BaseEvent:    events.NewBaseEvent(events.CampaignActivatedEvent),
		CampaignID:   campaign.ID,
		DiscountCode: campaign.DiscountCode,
	})
}

func (m *Manager) publish(ctx context.Context, key string, event eventbus.Event) {
	if m.publisher == nil {
		return
	}

	err := m.publisher.Publish(ctx, key, event)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
