// Package postgres implements the repository interfaces against
// PostgreSQL via database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/crm-backend/internal/domain"
	"github.com/ignite/crm-backend/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func (r *CampaignRepo) Get(ctx context.Context, ownerID, id string) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, segment_id, subject, body, status,
		       total_recipients, sent, failed, delivery_rate,
		       COALESCE(failure_reason,''), created_by, created_at, updated_at, completed_at
		FROM crm_campaigns
		WHERE id = $1 AND created_by = $2
	`, id, ownerID).Scan(
		&c.ID, &c.Name, &c.SegmentID, &c.Subject, &c.Body, &c.Status,
		&c.Stats.TotalRecipients, &c.Stats.Sent, &c.Stats.Failed, &c.Stats.DeliveryRate,
		&c.FailureReason, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt, &c.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) List(ctx context.Context, ownerID string, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	countQ := `SELECT COUNT(*) FROM crm_campaigns WHERE created_by = $1`
	countArgs := []interface{}{ownerID}
	if f.Status != "" {
		countQ += " AND status = $2"
		countArgs = append(countArgs, f.Status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	q := `
		SELECT id, name, segment_id, subject, body, status,
		       total_recipients, sent, failed, delivery_rate,
		       COALESCE(failure_reason,''), created_at, updated_at, completed_at
		FROM crm_campaigns
		WHERE created_by = $1`

	args := []interface{}{ownerID}
	idx := 2
	if f.Status != "" {
		q += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(
			&c.ID, &c.Name, &c.SegmentID, &c.Subject, &c.Body, &c.Status,
			&c.Stats.TotalRecipients, &c.Stats.Sent, &c.Stats.Failed, &c.Stats.DeliveryRate,
			&c.FailureReason, &c.CreatedAt, &c.UpdatedAt, &c.CompletedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		c.CreatedBy = ownerID
		out = append(out, c)
	}
	return out, total, nil
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO crm_campaigns
			(id, name, segment_id, subject, body, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`, c.ID, c.Name, c.SegmentID, c.Subject, c.Body, c.Status, c.CreatedBy)
	if err != nil {
		return "", fmt.Errorf("create campaign: %w", err)
	}
	return c.ID, nil
}

func (r *CampaignRepo) UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE crm_campaigns
		SET status = $1,
		    updated_at = NOW(),
		    completed_at = CASE WHEN $1 IN ('completed','failed') THEN NOW() ELSE completed_at END
		WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) UpdateStats(ctx context.Context, id string, stats domain.CampaignStats) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE crm_campaigns
		SET total_recipients = $1, sent = $2, failed = $3, delivery_rate = $4, updated_at = NOW()
		WHERE id = $5
	`, stats.TotalRecipients, stats.Sent, stats.Failed, stats.DeliveryRate, id)
	if err != nil {
		return fmt.Errorf("update campaign stats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) SetFailure(ctx context.Context, id string, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE crm_campaigns
		SET status = 'failed', failure_reason = $1, updated_at = NOW(), completed_at = NOW()
		WHERE id = $2
	`, reason, id)
	if err != nil {
		return fmt.Errorf("mark campaign failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}
