package contacts

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/bloomcart/marketing-core/pkg/models"
)

// ErrContactNotFound indicates the contact id is unknown to the store.
var ErrContactNotFound = errors.New("contact not found")

// MemoryStore is an in-memory contact store for tests and development.
type MemoryStore struct {
	mu       sync.RWMutex
	contacts map[string]*models.Contact
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contacts: make(map[string]*models.Contact)}
}

// Put inserts or replaces a contact. Test helper.
func (s *MemoryStore) Put(contact *models.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contacts[contact.ID] = cloneContact(contact)
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contacts[id]
	if !ok {
		return nil, ErrContactNotFound
	}

	return cloneContact(c), nil
}

func (s *MemoryStore) UpdateAttributes(_ context.Context, id string, attributes map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[id]
	if !ok {
		return ErrContactNotFound
	}

	if c.Attributes == nil {
		c.Attributes = make(map[string]any, len(attributes))
	}

	maps.Copy(c.Attributes, attributes)

	return nil
}

func (s *MemoryStore) AddTag(_ context.Context, id, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[id]
	if !ok {
		return ErrContactNotFound
	}

	c.AddTag(tag)

	return nil
}

func (s *MemoryStore) RemoveTag(_ context.Context, id, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[id]
	if !ok {
		return ErrContactNotFound
	}

	c.RemoveTag(tag)

	return nil
}

func cloneContact(c *models.Contact) *models.Contact {
	clone := *c
	clone.Tags = append([]string(nil), c.Tags...)
	clone.Attributes = maps.Clone(c.Attributes)

	return &clone
}
