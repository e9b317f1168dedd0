package segment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/crm-backend/internal/domain"
)

// Service implements segment business logic.
type Service struct {
	repo     Repository
	resolver Resolver
}

// NewService creates a segment service.
func NewService(repo Repository, resolver Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

// Get returns a single segment.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*domain.Segment, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// List returns the owner's segments.
func (s *Service) List(ctx context.Context, ownerID string) ([]domain.Segment, error) {
	return s.repo.List(ctx, ownerID)
}

// Create validates the rule set, caches the current match count, and
// persists the segment. Compilation errors (unknown fields, invalid
// operator/type pairs) surface here, before anything is stored.
func (s *Service) Create(ctx context.Context, ownerID string, input CreateInput) (*domain.Segment, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := input.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	count, err := s.resolver.Estimate(ctx, input.Rules, ownerID)
	if err != nil {
		return nil, err
	}

	seg := &domain.Segment{
		ID:             uuid.New().String(),
		Name:           input.Name,
		Description:    input.Description,
		Rules:          input.Rules,
		EstimatedCount: count,
		CreatedBy:      ownerID,
	}

	id, err := s.repo.Create(ctx, seg)
	if err != nil {
		return nil, err
	}
	seg.ID = id
	return seg, nil
}

// Update replaces a segment's name, description, and rules, refreshing
// the cached match count.
func (s *Service) Update(ctx context.Context, ownerID, id string, input CreateInput) (*domain.Segment, error) {
	seg, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := input.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	count, err := s.resolver.Estimate(ctx, input.Rules, ownerID)
	if err != nil {
		return nil, err
	}

	seg.Name = input.Name
	seg.Description = input.Description
	seg.Rules = input.Rules
	seg.EstimatedCount = count

	if err := s.repo.Update(ctx, ownerID, seg); err != nil {
		return nil, err
	}
	return seg, nil
}

// Delete removes a segment.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, ownerID, id)
}

// Estimate counts the owner's customers matching an ad-hoc rule set
// without persisting anything.
func (s *Service) Estimate(ctx context.Context, rules domain.RuleSet, ownerID string) (int, error) {
	if err := rules.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.resolver.Estimate(ctx, rules, ownerID)
}

// EstimateFresh counts the owner's customers matching a rule set,
// bypassing the estimate cache. Used where a stale count could change
// a decision, such as the zero-recipient check on campaign creation.
func (s *Service) EstimateFresh(ctx context.Context, rules domain.RuleSet, ownerID string) (int, error) {
	if err := rules.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.resolver.EstimateFresh(ctx, rules, ownerID)
}

// Resolve returns the owner's customers matching a rule set.
func (s *Service) Resolve(ctx context.Context, rules domain.RuleSet, ownerID string) ([]domain.Customer, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.resolver.Resolve(ctx, rules, ownerID)
}

// Customers resolves a saved segment to its current member list.
func (s *Service) Customers(ctx context.Context, ownerID, id string) ([]domain.Customer, error) {
	seg, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, seg.Rules, ownerID)
}

// CreateInput holds the fields for creating or updating a segment.
type CreateInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Rules       domain.RuleSet `json:"rules"`
}
