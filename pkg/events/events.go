// Package events defines the lifecycle notifications published by the core.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every marketing lifecycle event.
const Topic = "marketing.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionWaitingEvent   EventType = "execution.waiting"
	ExecutionResumedEvent   EventType = "execution.resumed"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	// Campaign lifecycle.
	CampaignActivatedEvent EventType = "campaign.activated"
	CampaignExpiredEvent   EventType = "campaign.expired"
	DiscountRedeemedEvent  EventType = "campaign.discount.redeemed"

	// Social publishing.
	PostPublishedEvent EventType = "post.published"
	PostFailedEvent    EventType = "post.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps a fresh event envelope.
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	ContactID   string         `json:"contact_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionWaiting struct {
	BaseEvent

	ExecutionID string    `json:"execution_id"`
	WorkflowID  string    `json:"workflow_id"`
	StepIndex   int       `json:"step_index"`
	ResumeAt    time.Time `json:"resume_at"`
}

func (e ExecutionWaiting) GetType() EventType { return ExecutionWaitingEvent }

type ExecutionResumed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	StepIndex   int    `json:"step_index"`
}

func (e ExecutionResumed) GetType() EventType { return ExecutionResumedEvent }

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	WorkflowID  string        `json:"workflow_id"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	StepIndex   int    `json:"step_index"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
}

func (e ExecutionCancelled) GetType() EventType { return ExecutionCancelledEvent }

type CampaignActivated struct {
	BaseEvent

	CampaignID   string `json:"campaign_id"`
	DiscountCode string `json:"discount_code"`
}

func (e CampaignActivated) GetType() EventType { return CampaignActivatedEvent }

type CampaignExpired struct {
	BaseEvent

	CampaignID string `json:"campaign_id"`
}

func (e CampaignExpired) GetType() EventType { return CampaignExpiredEvent }

type DiscountRedeemed struct {
	BaseEvent

	CampaignID     string  `json:"campaign_id"`
	DiscountCode   string  `json:"discount_code"`
	OrderValue     float64 `json:"order_value"`
	DiscountAmount float64 `json:"discount_amount"`
}

func (e DiscountRedeemed) GetType() EventType { return DiscountRedeemedEvent }

type PostPublished struct {
	BaseEvent

	PostID         string `json:"post_id"`
	Platform       string `json:"platform"`
	ExternalPostID string `json:"external_post_id"`
}

func (e PostPublished) GetType() EventType { return PostPublishedEvent }

type PostFailed struct {
	BaseEvent

	PostID   string `json:"post_id"`
	Platform string `json:"platform"`
	Error    string `json:"error"`
}

func (e PostFailed) GetType() EventType { return PostFailedEvent }
