package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
)

// CampaignRepository stores campaigns in a map with a discount-code index.
type CampaignRepository struct {
	mu        sync.RWMutex
	campaigns map[string]*models.Campaign
	byCode    map[string]string // upper-cased code -> campaign id
}

func NewCampaignRepository() *CampaignRepository {
	return &CampaignRepository{
		campaigns: make(map[string]*models.Campaign),
		byCode:    make(map[string]string),
	}
}

func (r *CampaignRepository) GetByID(_ context.Context, id string) (*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.campaigns[id]
	if !ok {
		return nil, persistence.NewOpError("GetByID", id, persistence.ErrCampaignNotFound)
	}

	return cloneCampaign(c), nil
}

func (r *CampaignRepository) GetByCode(_ context.Context, code string) (*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, persistence.NewOpError("GetByCode", code, persistence.ErrCampaignNotFound)
	}

	return cloneCampaign(r.campaigns[id]), nil
}

func (r *CampaignRepository) Save(_ context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := strings.ToUpper(campaign.DiscountCode)
	if owner, taken := r.byCode[code]; taken && owner != campaign.ID {
		return persistence.NewOpError("Save", campaign.ID, persistence.ErrDuplicateDiscountCode)
	}

	if previous, ok := r.campaigns[campaign.ID]; ok {
		delete(r.byCode, strings.ToUpper(previous.DiscountCode))
	}

	r.campaigns[campaign.ID] = cloneCampaign(campaign)
	r.byCode[code] = campaign.ID

	return nil
}

func (r *CampaignRepository) ListScheduledDue(_ context.Context, now time.Time) ([]*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*models.Campaign

	for _, c := range r.campaigns {
		if c.Status == models.CampaignStatusScheduled && !c.StartDate.After(now) {
			due = append(due, cloneCampaign(c))
		}
	}

	sortCampaigns(due)

	return due, nil
}

func (r *CampaignRepository) ListActiveExpired(_ context.Context, now time.Time) ([]*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []*models.Campaign

	for _, c := range r.campaigns {
		if c.Status == models.CampaignStatusActive && c.EndDate.Before(now) {
			expired = append(expired, cloneCampaign(c))
		}
	}

	sortCampaigns(expired)

	return expired, nil
}

func (r *CampaignRepository) ClaimActivation(_ context.Context, id string) (bool, error) {
	return r.flipStatus(id, models.CampaignStatusScheduled, models.CampaignStatusActive, "ClaimActivation")
}

func (r *CampaignRepository) MarkExpired(_ context.Context, id string) (bool, error) {
	return r.flipStatus(id, models.CampaignStatusActive, models.CampaignStatusExpired, "MarkExpired")
}

func (r *CampaignRepository) IncrementUses(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.campaigns[id]
	if !ok {
		return false, persistence.NewOpError("IncrementUses", id, persistence.ErrCampaignNotFound)
	}

	if c.MaxUses > 0 && c.UsesCount >= c.MaxUses {
		return false, nil
	}

	c.UsesCount++
	c.UpdatedAt = time.Now().UTC()

	return true, nil
}

func (r *CampaignRepository) flipStatus(id string, from, to models.CampaignStatus, op string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.campaigns[id]
	if !ok {
		return false, persistence.NewOpError(op, id, persistence.ErrCampaignNotFound)
	}

	if c.Status != from {
		return false, nil
	}

	c.Status = to
	c.UpdatedAt = time.Now().UTC()

	return true, nil
}

func sortCampaigns(campaigns []*models.Campaign) {
	slices.SortFunc(campaigns, func(a, b *models.Campaign) int {
		return a.StartDate.Compare(b.StartDate)
	})
}

func cloneCampaign(c *models.Campaign) *models.Campaign {
	clone := *c
	clone.Channels = slices.Clone(c.Channels)

	return &clone
}
