package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/crm-backend/internal/domain"
	"github.com/ignite/crm-backend/internal/pkg/httputil"
	"github.com/ignite/crm-backend/internal/service/segment"
)

// ListSegments returns all of the caller's segments.
//
//	GET /api/segments
func (h *Handlers) ListSegments(w http.ResponseWriter, r *http.Request) {
	segs, err := h.segments.List(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		serviceError(w, err)
		return
	}
	if segs == nil {
		segs = []domain.Segment{}
	}
	httputil.OK(w, segs)
}

// GetSegment returns a single segment.
//
//	GET /api/segments/{id}
func (h *Handlers) GetSegment(w http.ResponseWriter, r *http.Request) {
	seg, err := h.segments.Get(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, seg)
}

// CreateSegment validates and persists a new segment. Rule compilation
// errors (unknown field, operator/type mismatch) come back as 400.
//
//	POST /api/segments
func (h *Handlers) CreateSegment(w http.ResponseWriter, r *http.Request) {
	var input segment.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	seg, err := h.segments.Create(r.Context(), ownerFrom(r.Context()), input)
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.Created(w, seg)
}

// UpdateSegment replaces a segment's name, description, and rules.
//
//	PUT /api/segments/{id}
func (h *Handlers) UpdateSegment(w http.ResponseWriter, r *http.Request) {
	var input segment.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	seg, err := h.segments.Update(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"), input)
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, seg)
}

// DeleteSegment removes a segment.
//
//	DELETE /api/segments/{id}
func (h *Handlers) DeleteSegment(w http.ResponseWriter, r *http.Request) {
	if err := h.segments.Delete(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		serviceError(w, err)
		return
	}
	httputil.NoContent(w)
}

// EstimateSegment counts matches for an ad-hoc rule set without saving
// anything, so the UI can preview audience size while rules are edited.
//
//	POST /api/segments/estimate
func (h *Handlers) EstimateSegment(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Rules domain.RuleSet `json:"rules"`
	}
	if !httputil.Decode(w, r, &input) {
		return
	}
	count, err := h.segments.Estimate(r.Context(), input.Rules, ownerFrom(r.Context()))
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"estimated_count": count})
}

// SegmentCustomers resolves a saved segment to its current members.
//
//	GET /api/segments/{id}/customers
func (h *Handlers) SegmentCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.segments.Customers(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	if customers == nil {
		customers = []domain.Customer{}
	}
	httputil.OK(w, map[string]interface{}{
		"customers": customers,
		"count":     len(customers),
	})
}
