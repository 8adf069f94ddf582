package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/bloomcart/marketing-core/pkg/models"
)

// NoteRepository is an append-only store of internal notes.
type NoteRepository struct {
	mu    sync.RWMutex
	notes []*models.Note
}

func NewNoteRepository() *NoteRepository {
	return &NoteRepository{}
}

func (r *NoteRepository) Append(_ context.Context, note *models.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *note
	r.notes = append(r.notes, &clone)

	return nil
}

func (r *NoteRepository) ListByContact(_ context.Context, contactID string) ([]*models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Note

	for _, n := range r.notes {
		if n.ContactID == contactID {
			clone := *n
			result = append(result, &clone)
		}
	}

	slices.SortFunc(result, func(a, b *models.Note) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return result, nil
}
