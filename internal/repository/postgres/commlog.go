package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/crm-backend/internal/domain"
)

// CommLogRepo implements the append-only communication log against
// PostgreSQL. Rows are only ever inserted and read.
type CommLogRepo struct{ db *sql.DB }

// NewCommLogRepo creates a Postgres-backed communication log repository.
func NewCommLogRepo(db *sql.DB) *CommLogRepo { return &CommLogRepo{db: db} }

func (r *CommLogRepo) Create(ctx context.Context, entry *domain.CommunicationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO crm_communication_logs
			(id, campaign_id, customer_id, email, status, error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.CampaignID, entry.CustomerID, entry.Email,
		entry.Status, entry.Error, entry.SentAt)
	if err != nil {
		return fmt.Errorf("create communication log: %w", err)
	}
	return nil
}

// ListByCampaign returns the delivery trail for a campaign. The join
// against crm_campaigns keeps one owner from reading another's logs.
func (r *CommLogRepo) ListByCampaign(ctx context.Context, ownerID, campaignID string) ([]domain.CommunicationLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.id, l.campaign_id, l.customer_id, l.email, l.status, COALESCE(l.error,''), l.sent_at
		FROM crm_communication_logs l
		JOIN crm_campaigns c ON c.id = l.campaign_id
		WHERE l.campaign_id = $1 AND c.created_by = $2
		ORDER BY l.sent_at
	`, campaignID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list communication logs: %w", err)
	}
	defer rows.Close()

	var out []domain.CommunicationLog
	for rows.Next() {
		var l domain.CommunicationLog
		if err := rows.Scan(&l.ID, &l.CampaignID, &l.CustomerID, &l.Email, &l.Status, &l.Error, &l.SentAt); err != nil {
			return nil, fmt.Errorf("scan communication log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
