package web

import (
	"time"

	"github.com/bloomcart/marketing-core/pkg/models"
)

// CreateWorkflowRequest is the payload for creating a workflow definition.
type CreateWorkflowRequest struct {
	Name        string             `json:"name"         validate:"required,min=3"`
	Description string             `json:"description"`
	TriggerType models.TriggerType `json:"trigger_type" validate:"required"`
	Config      map[string]any     `json:"config,omitempty"`
	Steps       []*models.Step     `json:"steps"`
}

// CreateCampaignRequest is the payload for creating a campaign.
type CreateCampaignRequest struct {
	Name          string              `json:"name"           validate:"required,min=3"`
	Type          string              `json:"type"`
	DiscountCode  string              `json:"discount_code"  validate:"required"`
	DiscountKind  models.DiscountKind `json:"discount_kind"  validate:"required,oneof=percent fixed"`
	DiscountValue float64             `json:"discount_value" validate:"gt=0"`
	MinOrderValue float64             `json:"min_order_value"`
	MaxUses       int                 `json:"max_uses"`
	StartDate     time.Time           `json:"start_date" validate:"required"`
	EndDate       time.Time           `json:"end_date"   validate:"required"`
	Channels      []string            `json:"channels,omitempty"`
}

// DiscountRequest is the payload for validating or redeeming a discount code.
type DiscountRequest struct {
	Code       string  `json:"code"        validate:"required"`
	OrderValue float64 `json:"order_value" validate:"gte=0"`
}

// SchedulePostRequest is the payload for queueing a social post directly.
type SchedulePostRequest struct {
	Platform    string    `json:"platform"     validate:"required"`
	Content     string    `json:"content"      validate:"required"`
	MediaURLs   []string  `json:"media_urls,omitempty"`
	Hashtags    []string  `json:"hashtags,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}
