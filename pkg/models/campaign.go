package models

import "time"

// CampaignStatus represents the lifecycle state of a promotional campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusExpired   CampaignStatus = "expired"
)

// DiscountKind selects how DiscountValue is applied to an order.
type DiscountKind string

const (
	DiscountPercent DiscountKind = "percent"
	DiscountFixed   DiscountKind = "fixed"
)

// Campaign is a time-boxed promotional configuration with a unique discount
// code. UsesCount is incremented only at redemption, never at validation.
type Campaign struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"          validate:"required,min=3"`
	Type          string         `json:"type"`
	DiscountCode  string         `json:"discount_code" validate:"required,uppercase,alphanum"`
	DiscountKind  DiscountKind   `json:"discount_kind" validate:"required,oneof=percent fixed"`
	DiscountValue float64        `json:"discount_value" validate:"gt=0"`
	MinOrderValue float64        `json:"min_order_value"`
	MaxUses       int            `json:"max_uses"` // 0 means unlimited
	UsesCount     int            `json:"uses_count"`
	Status        CampaignStatus `json:"status"`
	StartDate     time.Time      `json:"start_date" validate:"required"`
	EndDate       time.Time      `json:"end_date"   validate:"required"`
	Channels      []string       `json:"channels,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// DiscountAmount computes the discount for the given order value. The caller
// is expected to have validated the code first.
func (c *Campaign) DiscountAmount(orderValue float64) float64 {
	switch c.DiscountKind {
	case DiscountPercent:
		return orderValue * c.DiscountValue / 100
	case DiscountFixed:
		if c.DiscountValue > orderValue {
			return orderValue
		}

		return c.DiscountValue
	default:
		return 0
	}
}

// Discount validation failure reasons returned to checkout.
const (
	ReasonExpired      = "expired"
	ReasonNotStarted   = "not-started"
	ReasonUsageLimit   = "usage-limit"
	ReasonBelowMinimum = "below-minimum"
	ReasonPaused       = "paused"
)

// DiscountValidation is the read-only result of checking a discount code
// against an order value.
type DiscountValidation struct {
	Valid          bool    `json:"valid"`
	DiscountAmount float64 `json:"discount_amount,omitempty"`
	Reason         string  `json:"reason,omitempty"`
}
