package campaign

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/crm-backend/internal/domain"
	"github.com/ignite/crm-backend/internal/service/segment"
)

// Service implements campaign business logic. All public methods are
// safe for concurrent use if the underlying repository is.
type Service struct {
	repo     Repository
	segments SegmentSource
}

// NewService creates a campaign service backed by the given repository
// and segment source.
func NewService(repo Repository, segments SegmentSource) *Service {
	return &Service{repo: repo, segments: segments}
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// List returns the owner's campaigns matching the filter.
func (s *Service) List(ctx context.Context, ownerID string, f ListFilter) ([]domain.Campaign, int, error) {
	return s.repo.List(ctx, ownerID, f)
}

// Create validates and persists a new campaign in draft status. The
// target segment must exist, belong to the owner, and currently match
// at least one customer; a zero-match segment returns ErrNoRecipients
// rather than producing a campaign that can never deliver anything.
func (s *Service) Create(ctx context.Context, ownerID string, input CreateInput) (*domain.Campaign, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if input.SegmentID == "" {
		return nil, fmt.Errorf("%w: segment_id is required", ErrInvalidInput)
	}
	if input.Subject == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}
	if input.Body == "" {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidInput)
	}

	seg, err := s.segments.Get(ctx, ownerID, input.SegmentID)
	if err != nil {
		// Only a genuine miss becomes ErrSegmentNotFound; a storage
		// failure must not masquerade as a client error.
		if errors.Is(err, segment.ErrNotFound) {
			return nil, ErrSegmentNotFound
		}
		return nil, fmt.Errorf("load segment: %w", err)
	}

	count, err := s.segments.EstimateFresh(ctx, seg.Rules, ownerID)
	if err != nil {
		return nil, fmt.Errorf("estimate segment: %w", err)
	}
	if count == 0 {
		return nil, ErrNoRecipients
	}

	c := &domain.Campaign{
		ID:        uuid.New().String(),
		Name:      input.Name,
		SegmentID: input.SegmentID,
		Subject:   input.Subject,
		Body:      input.Body,
		Status:    domain.CampaignStatusDraft,
		CreatedBy: ownerID,
	}

	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id
	return c, nil
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	Name      string `json:"name"`
	SegmentID string `json:"segment_id"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}
