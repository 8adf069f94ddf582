// Package memory provides an in-memory persistence implementation for tests
// and local development. Claim operations are compare-and-swap under a
// per-repository mutex, matching the conditional-update contract of the SQL
// implementation.
package memory

import (
	"context"

	"github.com/bloomcart/marketing-core/pkg/persistence"
)

// Persistence implements persistence.Persistence backed by process memory.
type Persistence struct {
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	campaignRepo  *CampaignRepository
	postRepo      *PostRepository
	noteRepo      *NoteRepository
}

// NewPersistence creates an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{
		workflowRepo:  NewWorkflowRepository(),
		executionRepo: NewExecutionRepository(),
		campaignRepo:  NewCampaignRepository(),
		postRepo:      NewPostRepository(),
		noteRepo:      NewNoteRepository(),
	}
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

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}
