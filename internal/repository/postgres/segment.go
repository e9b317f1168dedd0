package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/crm-backend/internal/domain"
	"github.com/ignite/crm-backend/internal/service/segment"
)

// SegmentRepo implements segment.Repository against PostgreSQL. Rule
// sets are stored as JSONB.
type SegmentRepo struct{ db *sql.DB }

// NewSegmentRepo creates a Postgres-backed segment repository.
func NewSegmentRepo(db *sql.DB) *SegmentRepo { return &SegmentRepo{db: db} }

func (r *SegmentRepo) Get(ctx context.Context, ownerID, id string) (*domain.Segment, error) {
	s := &domain.Segment{}
	var rules []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(description,''), rules, estimated_count,
		       created_by, created_at, updated_at
		FROM crm_segments
		WHERE id = $1 AND created_by = $2
	`, id, ownerID).Scan(
		&s.ID, &s.Name, &s.Description, &rules, &s.EstimatedCount,
		&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, segment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	if err := json.Unmarshal(rules, &s.Rules); err != nil {
		return nil, fmt.Errorf("decode segment rules: %w", err)
	}
	return s, nil
}

func (r *SegmentRepo) List(ctx context.Context, ownerID string) ([]domain.Segment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description,''), rules, estimated_count,
		       created_at, updated_at
		FROM crm_segments
		WHERE created_by = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var out []domain.Segment
	for rows.Next() {
		var s domain.Segment
		var rules []byte
		if err := rows.Scan(
			&s.ID, &s.Name, &s.Description, &rules, &s.EstimatedCount,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		if err := json.Unmarshal(rules, &s.Rules); err != nil {
			return nil, fmt.Errorf("decode segment rules: %w", err)
		}
		s.CreatedBy = ownerID
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SegmentRepo) Create(ctx context.Context, s *domain.Segment) (string, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	rules, err := json.Marshal(s.Rules)
	if err != nil {
		return "", fmt.Errorf("encode segment rules: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO crm_segments
			(id, name, description, rules, estimated_count, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`, s.ID, s.Name, s.Description, rules, s.EstimatedCount, s.CreatedBy)
	if err != nil {
		return "", fmt.Errorf("create segment: %w", err)
	}
	return s.ID, nil
}

func (r *SegmentRepo) Update(ctx context.Context, ownerID string, s *domain.Segment) error {
	rules, err := json.Marshal(s.Rules)
	if err != nil {
		return fmt.Errorf("encode segment rules: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE crm_segments
		SET name = $1, description = $2, rules = $3, estimated_count = $4, updated_at = NOW()
		WHERE id = $5 AND created_by = $6
	`, s.Name, s.Description, rules, s.EstimatedCount, s.ID, ownerID)
	if err != nil {
		return fmt.Errorf("update segment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return segment.ErrNotFound
	}
	return nil
}

func (r *SegmentRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM crm_segments WHERE id = $1 AND created_by = $2
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete segment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return segment.ErrNotFound
	}
	return nil
}
