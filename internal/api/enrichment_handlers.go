package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/crm-backend/internal/domain"
	"github.com/ignite/crm-backend/internal/pkg/httputil"
)

// EnrichSegment runs the scoring pipeline over the current members of a
// saved segment and persists the scores. The whole batch either applies
// or fails; a partial write never happens.
//
//	POST /api/segments/{id}/enrich
func (h *Handlers) EnrichSegment(w http.ResponseWriter, r *http.Request) {
	if h.enricher == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "scoring service is not configured")
		return
	}
	owner := ownerFrom(r.Context())
	customers, err := h.segments.Customers(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	h.runEnrichment(w, r, owner, customers)
}

// EnrichAll runs the scoring pipeline over every customer the caller
// owns.
//
//	POST /api/customers/enrich-all
func (h *Handlers) EnrichAll(w http.ResponseWriter, r *http.Request) {
	if h.enricher == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "scoring service is not configured")
		return
	}
	owner := ownerFrom(r.Context())
	customers, err := h.customers.All(r.Context(), owner)
	if err != nil {
		serviceError(w, err)
		return
	}
	h.runEnrichment(w, r, owner, customers)
}

func (h *Handlers) runEnrichment(w http.ResponseWriter, r *http.Request, owner string, customers []domain.Customer) {
	enriched, err := h.enricher.Enrich(r.Context(), owner, customers)
	if err != nil {
		// Upstream model failures and score mismatches surface as a
		// bad gateway: nothing was persisted.
		httputil.Error(w, http.StatusBadGateway, "enrichment failed: "+err.Error())
		return
	}
	if enriched == nil {
		enriched = []domain.Customer{}
	}
	httputil.OK(w, map[string]interface{}{
		"enriched":  len(enriched),
		"customers": enriched,
	})
}
