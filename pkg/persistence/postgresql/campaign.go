package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
)

// CampaignRepository handles campaign database operations.
type CampaignRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const campaignColumns = `
	id
  , name
  , type
  , discount_code
  , discount_kind
  , discount_value
  , min_order_value
  , max_uses
  , uses_count
  , status
  , start_date
  , end_date
  , channels
  , created_at
  , updated_at
`

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	campaign, err := r.scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewOpError("GetByID", id, persistence.ErrCampaignNotFound)
		}

		return nil, fmt.Errorf("failed to scan campaign: %w", err)
	}

	return campaign, nil
}

func (r *CampaignRepository) GetByCode(ctx context.Context, code string) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE discount_code = $1`

	campaign, err := r.scanCampaign(r.db.QueryRowContext(ctx, query, strings.ToUpper(code)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewOpError("GetByCode", code, persistence.ErrCampaignNotFound)
		}

		return nil, fmt.Errorf("failed to scan campaign: %w", err)
	}

	return campaign, nil
}

func (r *CampaignRepository) Save(ctx context.Context, campaign *models.Campaign) error {
	channelsJSON, err := json.Marshal(campaign.Channels)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign channels: %w", err)
	}

	now := time.Now().UTC()
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}

	campaign.UpdatedAt = now

	query := `
		INSERT INTO campaigns
			(id, name, type, discount_code, discount_kind, discount_value, min_order_value,
			 max_uses, uses_count, status, start_date, end_date, channels, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , type = EXCLUDED.type
		  , discount_code = EXCLUDED.discount_code
		  , discount_kind = EXCLUDED.discount_kind
		  , discount_value = EXCLUDED.discount_value
		  , min_order_value = EXCLUDED.min_order_value
		  , max_uses = EXCLUDED.max_uses
		  , status = EXCLUDED.status
		  , start_date = EXCLUDED.start_date
		  , end_date = EXCLUDED.end_date
		  , channels = EXCLUDED.channels
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		campaign.ID, campaign.Name, campaign.Type, strings.ToUpper(campaign.DiscountCode),
		string(campaign.DiscountKind), campaign.DiscountValue, campaign.MinOrderValue,
		campaign.MaxUses, campaign.UsesCount, string(campaign.Status),
		campaign.StartDate, campaign.EndDate, channelsJSON, campaign.CreatedAt, campaign.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return persistence.NewOpError("Save", campaign.ID, persistence.ErrDuplicateDiscountCode)
		}

		return fmt.Errorf("failed to save campaign: %w", err)
	}

	return nil
}

func (r *CampaignRepository) ListScheduledDue(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE status = $1 AND start_date <= $2
		ORDER BY start_date`

	return r.queryCampaigns(ctx, query, string(models.CampaignStatusScheduled), now)
}

func (r *CampaignRepository) ListActiveExpired(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE status = $1 AND end_date < $2
		ORDER BY end_date`

	return r.queryCampaigns(ctx, query, string(models.CampaignStatusActive), now)
}

func (r *CampaignRepository) ClaimActivation(ctx context.Context, id string) (bool, error) {
	return r.flipStatus(ctx, id, models.CampaignStatusScheduled, models.CampaignStatusActive)
}

func (r *CampaignRepository) MarkExpired(ctx context.Context, id string) (bool, error) {
	return r.flipStatus(ctx, id, models.CampaignStatusActive, models.CampaignStatusExpired)
}

// IncrementUses bumps the counter with the usage cap enforced in the same
// statement, so concurrent redemptions can never exceed max_uses.
func (r *CampaignRepository) IncrementUses(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE campaigns
		SET uses_count = uses_count + 1, updated_at = $1
		WHERE id = $2 AND (max_uses = 0 OR uses_count < max_uses)
	`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("failed to increment uses for campaign %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

func (r *CampaignRepository) flipStatus(ctx context.Context, id string, from, to models.CampaignStatus) (bool, error) {
	query := `
		UPDATE campaigns
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, string(to), time.Now().UTC(), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update campaign %s status: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

func (r *CampaignRepository) queryCampaigns(ctx context.Context, query string, args ...any) ([]*models.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	campaigns := make([]*models.Campaign, 0)

	for rows.Next() {
		campaign, err := r.scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}

		campaigns = append(campaigns, campaign)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}

	return campaigns, nil
}

func (r *CampaignRepository) scanCampaign(row rowScanner) (*models.Campaign, error) {
	var (
		campaign     models.Campaign
		kind         string
		status       string
		channelsJSON []byte
	)

	err := row.Scan(&campaign.ID, &campaign.Name, &campaign.Type, &campaign.DiscountCode,
		&kind, &campaign.DiscountValue, &campaign.MinOrderValue, &campaign.MaxUses,
		&campaign.UsesCount, &status, &campaign.StartDate, &campaign.EndDate,
		&channelsJSON, &campaign.CreatedAt, &campaign.UpdatedAt)
	if err != nil {
		return nil, err
	}

	campaign.DiscountKind = models.DiscountKind(kind)
	campaign.Status = models.CampaignStatus(status)

	err = json.Unmarshal(channelsJSON, &campaign.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal campaign channels: %w", err)
	}

	return &campaign, nil
}
