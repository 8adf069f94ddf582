// Package postgresql provides the PostgreSQL persistence implementation.
// All claim operations are single conditional updates so overlapping
// scheduler ticks never process the same row twice.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/bloomcart/marketing-core/pkg/persistence"
	"github.com/bloomcart/marketing-core/pkg/persistence/sqlbase"
)

// Persistence implements persistence.Persistence on top of PostgreSQL.
type Persistence struct {
	db            *sql.DB
	logger        *slog.Logger
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	campaignRepo  *CampaignRepository
	postRepo      *PostRepository
	noteRepo      *NoteRepository
}

// NewPersistence opens the database, runs migrations and wires the repositories.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger = logger.With("module", "postgresql")

	migrator := sqlbase.NewMigrationManager(logger, db, migrations)

	err = migrator.RunMigrations(ctx)
	if err != nil {
		return nil, err
	}

	return &Persistence{
		db:            db,
		logger:        logger,
		workflowRepo:  &WorkflowRepository{db: db, logger: logger},
		executionRepo: &ExecutionRepository{db: db, logger: logger},
		campaignRepo:  &CampaignRepository{db: db, logger: logger},
		postRepo:      &PostRepository{db: db, logger: logger},
		noteRepo:      &NoteRepository{db: db, logger: logger},
	}, nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) CampaignRepository() persistence.CampaignRepository {
	return p.campaignRepo
}

func (p *Persistence) PostRepository() persistence.PostRepository {
	return p.postRepo
}

func (p *Persistence) NoteRepository() persistence.NoteRepository {
	return p.noteRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Persistence) Close(_ context.Context) error {
	return p.db.Close()
}

var migrations = map[int]string{
	1: `
		CREATE TABLE IF NOT EXISTS workflow_definitions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			trigger_type TEXT NOT NULL,
			config JSONB NOT NULL DEFAULT '{}',
			status TEXT NOT NULL,
			steps JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_workflow_definitions_trigger
			ON workflow_definitions (trigger_type, status);

		CREATE TABLE IF NOT EXISTS workflow_executions (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL REFERENCES workflow_definitions (id),
			contact_id TEXT NOT NULL,
			contact_email TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			current_step_index INTEGER NOT NULL DEFAULT 0,
			resume_at TIMESTAMPTZ,
			context JSONB NOT NULL DEFAULT '{}',
			trigger_data JSONB NOT NULL DEFAULT '{}',
			error TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_workflow_executions_waiting
			ON workflow_executions (status, resume_at);

		CREATE TABLE IF NOT EXISTS campaigns (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT '',
			discount_code TEXT NOT NULL UNIQUE,
			discount_kind TEXT NOT NULL,
			discount_value DOUBLE PRECISION NOT NULL,
			min_order_value DOUBLE PRECISION NOT NULL DEFAULT 0,
			max_uses INTEGER NOT NULL DEFAULT 0,
			uses_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ NOT NULL,
			channels JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_campaigns_status_dates
			ON campaigns (status, start_date, end_date);

		CREATE TABLE IF NOT EXISTS scheduled_posts (
			id TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			content TEXT NOT NULL,
			media_urls JSONB NOT NULL DEFAULT '[]',
			hashtags JSONB NOT NULL DEFAULT '[]',
			scheduled_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			published_at TIMESTAMPTZ,
			external_post_id TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_scheduled_posts_due
			ON scheduled_posts (status, scheduled_at);

		CREATE TABLE IF NOT EXISTS contact_notes (
			id TEXT PRIMARY KEY,
			contact_id TEXT NOT NULL,
			execution_id TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_contact_notes_contact
			ON contact_notes (contact_id, created_at);
	`,
}
