package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
)

// PostRepository stores scheduled posts in a map.
type PostRepository struct {
	mu    sync.RWMutex
	posts map[string]*models.ScheduledPost
}

func NewPostRepository() *PostRepository {
	return &PostRepository{posts: make(map[string]*models.ScheduledPost)}
}

func (r *PostRepository) GetByID(_ context.Context, id string) (*models.ScheduledPost, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, persistence.NewOpError("GetByID", id, persistence.ErrPostNotFound)
	}

	return clonePost(p), nil
}

func (r *PostRepository) Save(_ context.Context, post *models.ScheduledPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.posts[post.ID] = clonePost(post)

	return nil
}

func (r *PostRepository) ListDue(_ context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*models.ScheduledPost

	for _, p := range r.posts {
		if p.Status == models.PostStatusScheduled && !p.ScheduledAt.After(now) {
			due = append(due, clonePost(p))
		}
	}

	slices.SortFunc(due, func(a, b *models.ScheduledPost) int {
		return a.ScheduledAt.Compare(b.ScheduledAt)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

func (r *PostRepository) ClaimPublishing(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok {
		return false, persistence.NewOpError("ClaimPublishing", id, persistence.ErrPostNotFound)
	}

	if p.Status != models.PostStatusScheduled {
		return false, nil
	}

	p.Status = models.PostStatusPublishing
	p.UpdatedAt = time.Now().UTC()

	return true, nil
}

func clonePost(p *models.ScheduledPost) *models.ScheduledPost {
	clone := *p
	clone.MediaURLs = slices.Clone(p.MediaURLs)
	clone.Hashtags = slices.Clone(p.Hashtags)

	if p.PublishedAt != nil {
		t := *p.PublishedAt
		clone.PublishedAt = &t
	}

	return &clone
}
