// Package persistence provides the storage abstraction for the marketing core.
//
// Every status transition used for batch selection (waiting→running,
// scheduled→active, scheduled→publishing) is exposed as a claim: a single
// conditional update that flips the status only when the row is still in the
// expected state, and reports whether this caller won. Overlapping scheduler
// ticks rely on that contract.
package persistence

import (
	"context"
	"time"

	"github.com/bloomcart/marketing-core/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	CampaignRepository() CampaignRepository
	PostRepository() PostRepository
	NoteRepository() NoteRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.WorkflowDefinition, error)
	GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	GetActiveByTrigger(ctx context.Context, trigger models.TriggerType) ([]*models.WorkflowDefinition, error)
	Save(ctx context.Context, workflow *models.WorkflowDefinition) error
}

type ExecutionRepository interface {
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	Save(ctx context.Context, execution *models.WorkflowExecution) error

	// ListWaitingDue returns waiting executions with resume_at <= now,
	// bounded by limit, ordered by resume_at ascending.
	ListWaitingDue(ctx context.Context, now time.Time, limit int) ([]*models.WorkflowExecution, error)

	// ClaimWaiting flips waiting→running for the given id. Returns false
	// when the row is no longer waiting (another tick claimed it, or it
	// was cancelled).
	ClaimWaiting(ctx context.Context, id string) (bool, error)

	// Cancel marks a non-terminal execution cancelled. Returns false when
	// the execution was already terminal.
	Cancel(ctx context.Context, id string) (bool, error)
}

type CampaignRepository interface {
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	GetByCode(ctx context.Context, code string) (*models.Campaign, error)
	Save(ctx context.Context, campaign *models.Campaign) error

	ListScheduledDue(ctx context.Context, now time.Time) ([]*models.Campaign, error)
	ListActiveExpired(ctx context.Context, now time.Time) ([]*models.Campaign, error)

	// ClaimActivation flips scheduled→active for the given id.
	ClaimActivation(ctx context.Context, id string) (bool, error)

	// MarkExpired flips active→expired for the given id.
	MarkExpired(ctx context.Context, id string) (bool, error)

	// IncrementUses bumps uses_count by one unless max_uses is set and
	// already reached. Returns false when the limit blocked the increment.
	IncrementUses(ctx context.Context, id string) (bool, error)
}

type PostRepository interface {
	GetByID(ctx context.Context, id string) (*models.ScheduledPost, error)
	Save(ctx context.Context, post *models.ScheduledPost) error

	// ListDue returns scheduled posts with scheduled_at <= now, bounded by
	// limit, ordered by scheduled_at ascending.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error)

	// ClaimPublishing flips scheduled→publishing for the given id.
	ClaimPublishing(ctx context.Context, id string) (bool, error)
}

type NoteRepository interface {
	Append(ctx context.Context, note *models.Note) error
	ListByContact(ctx context.Context, contactID string) ([]*models.Note, error)
}
