package campaign

import (
	"context"

	"github.com/ignite/crm-backend/internal/domain"
)

// Repository defines the data access contract for campaigns.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single campaign. Returns ErrNotFound if it doesn't
	// exist or belongs to a different owner.
	Get(ctx context.Context, ownerID, id string) (*domain.Campaign, error)

	// List returns the owner's campaigns matching the filter, ordered by
	// created_at DESC, plus the total match count before pagination.
	List(ctx context.Context, ownerID string, filter ListFilter) ([]domain.Campaign, int, error)

	// Create inserts a new campaign and returns its ID.
	Create(ctx context.Context, c *domain.Campaign) (string, error)

	// UpdateStatus transitions a campaign's status.
	UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error

	// UpdateStats persists the dispatch outcome counters.
	UpdateStats(ctx context.Context, id string, stats domain.CampaignStats) error

	// SetFailure marks a campaign failed and records why.
	SetFailure(ctx context.Context, id string, reason string) error
}

// SegmentSource is the slice of the segment layer the campaign service
// needs: segment lookup and match counting.
type SegmentSource interface {
	// Get returns the owner's segment, or an error wrapping
	// ErrSegmentNotFound semantics of the segment layer.
	Get(ctx context.Context, ownerID, id string) (*domain.Segment, error)

	// EstimateFresh counts the owner's customers matching the rule
	// set right now, bypassing any estimate caching, so the
	// zero-recipient check never acts on a stale count.
	EstimateFresh(ctx context.Context, rules domain.RuleSet, ownerID string) (int, error)
}

// ListFilter controls pagination and filtering for campaign lists.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}
