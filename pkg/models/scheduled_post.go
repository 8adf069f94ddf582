package models

import "time"

// PostStatus represents the publishing state of a scheduled social post.
// A post transitions to publishing only from scheduled, and only one
// scheduler tick may win that transition for a given row.
type PostStatus string

const (
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
)

// ScheduledPost is a social post queued for publication at ScheduledAt.
type ScheduledPost struct {
	ID             string     `json:"id"`
	Platform       string     `json:"platform" validate:"required"`
	Content        string     `json:"content"  validate:"required"`
	MediaURLs      []string   `json:"media_urls,omitempty"`
	Hashtags       []string   `json:"hashtags,omitempty"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	Status         PostStatus `json:"status"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	ExternalPostID string     `json:"external_post_id,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
