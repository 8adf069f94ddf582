package campaign

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence/memory"
)

type harness struct {
	persistence *memory.Persistence
	manager     *Manager
	now         time.Time
}

func (h *harness) clock() time.Time { return h.now }

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		persistence: memory.NewPersistence(),
		now:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	h.manager = NewManager(h.persistence, nil, slog.Default()).WithClock(h.clock)

	return h
}

func (h *harness) campaign() *models.Campaign {
	return &models.Campaign{
		Name:          "Summer Sale",
		Type:          "seasonal",
		DiscountCode:  "SUMMER20",
		DiscountKind:  models.DiscountPercent,
		DiscountValue: 20,
		MinOrderValue: 50,
		MaxUses:       2,
		StartDate:     h.now.Add(-time.Hour),
		EndDate:       h.now.Add(30 * 24 * time.Hour),
	}
}

func (h *harness) createActive(t *testing.T) *models.Campaign {
	t.Helper()

	c := h.campaign()
	require.NoError(t, h.manager.Create(context.Background(), c))

	c, err := h.manager.Activate(context.Background(), c.ID)
	require.NoError(t, err)

	return c
}

func TestCreateSchedulesFutureCampaign(t *testing.T) {
	h := newHarness(t)

	c := h.campaign()
	c.StartDate = h.now.Add(24 * time.Hour)

	require.NoError(t, h.manager.Create(context.Background(), c))
	assert.Equal(t, models.CampaignStatusScheduled, c.Status)
}

func TestCreateDraftsCurrentCampaign(t *testing.T) {
	h := newHarness(t)

	c := h.campaign()
	require.NoError(t, h.manager.Create(context.Background(), c))
	assert.Equal(t, models.CampaignStatusDraft, c.Status)
}

func TestCreateRejectsInvertedWindow(t *testing.T) {
	h := newHarness(t)

	c := h.campaign()
	c.StartDate = h.now.Add(48 * time.Hour)
	c.EndDate = h.now.Add(24 * time.Hour)

	err := h.manager.Create(context.Background(), c)
	require.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.manager.Create(context.Background(), h.campaign()))

	dup := h.campaign()
	dup.Name = "Copycat"

	err := h.manager.Create(context.Background(), dup)
	require.Error(t, err)
}

func TestActivateOutsideWindowFails(t *testing.T) {
	h := newHarness(t)

	c := h.campaign()
	c.StartDate = h.now.Add(24 * time.Hour)
	require.NoError(t, h.manager.Create(context.Background(), c))

	_, err := h.manager.Activate(context.Background(), c.ID)
	require.ErrorIs(t, err, ErrNotActivatable)
}

func TestValidateDiscountReasons(t *testing.T) {
	h := newHarness(t)
	c := h.createActive(t)

	tests := []struct {
		name       string
		setup      func()
		orderValue float64
		wantValid  bool
		wantReason string
		wantAmount float64
	}{
		{
			name:       "valid percent discount",
			orderValue: 100,
			wantValid:  true,
			wantAmount: 20,
		},
		{
			name:       "below minimum order value",
			orderValue: 49.99,
			wantReason: models.ReasonBelowMinimum,
		},
		{
			name: "not started yet",
			setup: func() {
				h.now = c.StartDate.Add(-time.Hour)
			},
			orderValue: 100,
			wantReason: models.ReasonNotStarted,
		},
		{
			name: "window over",
			setup: func() {
				h.now = c.EndDate.Add(time.Hour)
			},
			orderValue: 100,
			wantReason: models.ReasonExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

			if tt.setup != nil {
				tt.setup()
			}

			v, err := h.manager.ValidateDiscountCode(context.Background(), "summer20", tt.orderValue)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, v.Valid)
			assert.Equal(t, tt.wantReason, v.Reason)
			assert.Equal(t, tt.wantAmount, v.DiscountAmount)
		})
	}
}

func TestValidateUnknownCode(t *testing.T) {
	h := newHarness(t)

	v, err := h.manager.ValidateDiscountCode(context.Background(), "NOPE", 100)
	require.NoError(t, err)
	assert.False(t, v.Valid)
}

func TestValidateDoesNotConsumeUses(t *testing.T) {
	h := newHarness(t)
	c := h.createActive(t)

	for range 5 {
		v, err := h.manager.ValidateDiscountCode(context.Background(), c.DiscountCode, 100)
		require.NoError(t, err)
		require.True(t, v.Valid)
	}

	stored, err := h.persistence.CampaignRepository().GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.UsesCount)
}

func TestRedeemConsumesUsesUpToLimit(t *testing.T) {
	h := newHarness(t)
	c := h.createActive(t)

	for range c.MaxUses {
		v, err := h.manager.RedeemDiscountCode(context.Background(), c.DiscountCode, 100)
		require.NoError(t, err)
		assert.True(t, v.Valid)
		assert.Equal(t, 20.0, v.DiscountAmount)
	}

	_, err := h.manager.RedeemDiscountCode(context.Background(), c.DiscountCode, 100)
	require.ErrorIs(t, err, ErrCodeNotRedeemable)

	v, err := h.manager.ValidateDiscountCode(context.Background(), c.DiscountCode, 100)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, models.ReasonUsageLimit, v.Reason)
}

func TestPausedCampaignFailsValidation(t *testing.T) {
	h := newHarness(t)
	c := h.createActive(t)

	_, err := h.manager.Pause(context.Background(), c.ID)
	require.NoError(t, err)

	v, err := h.manager.ValidateDiscountCode(context.Background(), c.DiscountCode, 100)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, models.ReasonPaused, v.Reason)
}

func TestFixedDiscountNeverExceedsOrderValue(t *testing.T) {
	h := newHarness(t)

	c := h.campaign()
	c.DiscountKind = models.DiscountFixed
	c.DiscountValue = 75
	c.MinOrderValue = 0
	require.NoError(t, h.manager.Create(context.Background(), c))

	_, err := h.manager.Activate(context.Background(), c.ID)
	require.NoError(t, err)

	v, err := h.manager.ValidateDiscountCode(context.Background(), c.DiscountCode, 60)
	require.NoError(t, err)
	require.True(t, v.Valid)
	assert.Equal(t, 60.0, v.DiscountAmount)
}

func TestProcessScheduledActivatesAndExpiresInOnePass(t *testing.T) {
	h := newHarness(t)

	due := h.campaign()
	due.ID = "cmp-due"
	due.DiscountCode = "OPENING10"
	due.StartDate = h.now.Add(-time.Minute)
	due.Status = models.CampaignStatusScheduled
	require.NoError(t, h.persistence.CampaignRepository().Save(context.Background(), due))

	over := h.campaign()
	over.ID = "cmp-over"
	over.DiscountCode = "CLOSED10"
	over.StartDate = h.now.Add(-48 * time.Hour)
	over.EndDate = h.now.Add(-time.Hour)
	over.Status = models.CampaignStatusActive
	require.NoError(t, h.persistence.CampaignRepository().Save(context.Background(), over))

	notYet := h.campaign()
	notYet.ID = "cmp-later"
	notYet.DiscountCode = "LATER10"
	notYet.StartDate = h.now.Add(24 * time.Hour)
	notYet.Status = models.CampaignStatusScheduled
	require.NoError(t, h.persistence.CampaignRepository().Save(context.Background(), notYet))

	// Scheduled, but the whole window already passed: stays inert.
	missed := h.campaign()
	missed.ID = "cmp-missed"
	missed.DiscountCode = "MISSED10"
	missed.StartDate = h.now.Add(-72 * time.Hour)
	missed.EndDate = h.now.Add(-48 * time.Hour)
	missed.Status = models.CampaignStatusScheduled
	require.NoError(t, h.persistence.CampaignRepository().Save(context.Background(), missed))

	activated, expired, err := h.manager.ProcessScheduled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, activated)
	assert.Equal(t, 1, expired)

	stored, err := h.persistence.CampaignRepository().GetByID(context.Background(), due.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusActive, stored.Status)

	stored, err = h.persistence.CampaignRepository().GetByID(context.Background(), over.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusExpired, stored.Status)

	stored, err = h.persistence.CampaignRepository().GetByID(context.Background(), notYet.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusScheduled, stored.Status)

	stored, err = h.persistence.CampaignRepository().GetByID(context.Background(), missed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusScheduled, stored.Status)

	// A second pass has nothing left to do.
	activated, expired, err = h.manager.ProcessScheduled(context.Background())
	require.NoError(t, err)
	assert.Zero(t, activated)
	assert.Zero(t, expired)
}
