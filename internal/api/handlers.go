package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ignite/crm-backend/internal/contentgen"
	"github.com/ignite/crm-backend/internal/domain"
	"github.com/ignite/crm-backend/internal/pkg/httputil"
	"github.com/ignite/crm-backend/internal/repository/postgres"
	"github.com/ignite/crm-backend/internal/segmentation"
	"github.com/ignite/crm-backend/internal/service/campaign"
	"github.com/ignite/crm-backend/internal/service/segment"
	"github.com/ignite/crm-backend/internal/worker"
)

// SegmentService is the segment surface the handlers need.
type SegmentService interface {
	Get(ctx context.Context, ownerID, id string) (*domain.Segment, error)
	List(ctx context.Context, ownerID string) ([]domain.Segment, error)
	Create(ctx context.Context, ownerID string, input segment.CreateInput) (*domain.Segment, error)
	Update(ctx context.Context, ownerID, id string, input segment.CreateInput) (*domain.Segment, error)
	Delete(ctx context.Context, ownerID, id string) error
	Estimate(ctx context.Context, rules domain.RuleSet, ownerID string) (int, error)
	Customers(ctx context.Context, ownerID, id string) ([]domain.Customer, error)
}

// CampaignService is the campaign surface the handlers need.
type CampaignService interface {
	Get(ctx context.Context, ownerID, id string) (*domain.Campaign, error)
	List(ctx context.Context, ownerID string, f campaign.ListFilter) ([]domain.Campaign, int, error)
	Create(ctx context.Context, ownerID string, input campaign.CreateInput) (*domain.Campaign, error)
}

// CustomerStore is the customer persistence the handlers need.
type CustomerStore interface {
	Get(ctx context.Context, ownerID, id string) (*domain.Customer, error)
	List(ctx context.Context, ownerID string, limit, offset int) ([]domain.Customer, int, error)
	All(ctx context.Context, ownerID string) ([]domain.Customer, error)
	Create(ctx context.Context, c *domain.Customer) (string, error)
	Update(ctx context.Context, ownerID string, c *domain.Customer) error
	Delete(ctx context.Context, ownerID, id string) error
}

// LogStore reads per-campaign delivery logs.
type LogStore interface {
	ListByCampaign(ctx context.Context, ownerID, campaignID string) ([]domain.CommunicationLog, error)
}

// DispatchRunner starts and cancels campaign dispatch runs.
type DispatchRunner interface {
	DispatchAsync(ownerID, campaignID string)
	Tracker() *worker.JobTracker
}

// Enricher scores customers against the external model service.
type Enricher interface {
	Enrich(ctx context.Context, ownerID string, customers []domain.Customer) ([]domain.Customer, error)
}

// ContentGenerator drafts campaign templates from segment rules.
type ContentGenerator interface {
	Draft(ctx context.Context, rules domain.RuleSet) (contentgen.Draft, error)
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	segments   SegmentService
	campaigns  CampaignService
	customers  CustomerStore
	logs       LogStore
	dispatcher DispatchRunner
	enricher   Enricher
	generator  ContentGenerator
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(segments SegmentService, campaigns CampaignService, customers CustomerStore, logs LogStore) *Handlers {
	return &Handlers{
		segments:  segments,
		campaigns: campaigns,
		customers: customers,
		logs:      logs,
	}
}

// SetDispatcher sets the campaign dispatcher.
func (h *Handlers) SetDispatcher(d DispatchRunner) {
	h.dispatcher = d
}

// SetEnricher sets the enrichment pipeline.
func (h *Handlers) SetEnricher(e Enricher) {
	h.enricher = e
}

// SetContentGenerator sets the campaign content generator.
func (h *Handlers) SetContentGenerator(g ContentGenerator) {
	h.generator = g
}

// serviceError maps service-layer sentinel errors to HTTP responses.
// Unknown errors are logged and returned as a generic 500 so internal
// details never leak to clients.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, segmentation.ErrUnknownField),
		errors.Is(err, segmentation.ErrInvalidOperator),
		errors.Is(err, segmentation.ErrEmptyRuleSet):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, segment.ErrInvalidInput),
		errors.Is(err, campaign.ErrInvalidInput),
		errors.Is(err, campaign.ErrSegmentNotFound),
		errors.Is(err, campaign.ErrNoRecipients):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, segment.ErrNotFound):
		httputil.NotFound(w, "segment not found")
	case errors.Is(err, campaign.ErrNotFound):
		httputil.NotFound(w, "campaign not found")
	case errors.Is(err, postgres.ErrCustomerNotFound):
		httputil.NotFound(w, "customer not found")
	case errors.Is(err, postgres.ErrDuplicateCustomer):
		httputil.Conflict(w, "customer with this email already exists")
	case errors.Is(err, worker.ErrNotDraft),
		errors.Is(err, worker.ErrDispatchInProgress):
		httputil.Conflict(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}
