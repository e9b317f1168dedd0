package segment

import (
	"context"

	"github.com/ignite/crm-backend/internal/domain"
)

// Repository defines the data access contract for segments.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single segment. Returns ErrNotFound if it doesn't
	// exist or belongs to a different owner.
	Get(ctx context.Context, ownerID, id string) (*domain.Segment, error)

	// List returns the owner's segments ordered by created_at DESC.
	List(ctx context.Context, ownerID string) ([]domain.Segment, error)

	// Create inserts a new segment and returns its ID.
	Create(ctx context.Context, s *domain.Segment) (string, error)

	// Update replaces the segment's mutable fields.
	Update(ctx context.Context, ownerID string, s *domain.Segment) error

	// Delete removes a segment.
	Delete(ctx context.Context, ownerID, id string) error
}

// Resolver compiles rule sets against the customer table.
// Satisfied by segmentation.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, rules domain.RuleSet, ownerID string) ([]domain.Customer, error)
	Estimate(ctx context.Context, rules domain.RuleSet, ownerID string) (int, error)

	// EstimateFresh counts without consulting the estimate cache.
	EstimateFresh(ctx context.Context, rules domain.RuleSet, ownerID string) (int, error)
}
