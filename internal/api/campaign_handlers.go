package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/crm-backend/internal/domain"
	"github.com/ignite/crm-backend/internal/pkg/httputil"
	"github.com/ignite/crm-backend/internal/service/campaign"
)

// CreateCampaign validates the campaign against its segment and, once
// persisted, kicks off the dispatch run in the background. The response
// returns immediately with the draft record; progress is visible via
// GetCampaign.
//
//	POST /api/campaigns
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var input campaign.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	owner := ownerFrom(r.Context())
	camp, err := h.campaigns.Create(r.Context(), owner, input)
	if err != nil {
		serviceError(w, err)
		return
	}
	if h.dispatcher != nil {
		h.dispatcher.DispatchAsync(owner, camp.ID)
	}
	httputil.Created(w, camp)
}

// GetCampaign returns a campaign with its current stats.
//
//	GET /api/campaigns/{id}
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	camp, err := h.campaigns.Get(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, camp)
}

// ListCampaigns returns the caller's campaigns, optionally filtered by
// status, newest first.
//
//	GET /api/campaigns?status=&page=&limit=
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	p := pageFromRequest(r, 20, 100)
	campaigns, total, err := h.campaigns.List(r.Context(), ownerFrom(r.Context()), campaign.ListFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  p.Limit,
		Offset: p.Offset(),
	})
	if err != nil {
		serviceError(w, err)
		return
	}
	if campaigns == nil {
		campaigns = []domain.Campaign{}
	}
	httputil.OK(w, paginate(campaigns, p, total))
}

// CancelCampaign requests cancellation of a running dispatch. The run
// stops at the next batch boundary; in-flight sends complete and are
// logged. Returns 409 when no dispatch is running for the campaign.
//
//	POST /api/campaigns/{id}/cancel
func (h *Handlers) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.campaigns.Get(r.Context(), ownerFrom(r.Context()), id); err != nil {
		serviceError(w, err)
		return
	}
	if h.dispatcher == nil || !h.dispatcher.Tracker().Cancel(id) {
		httputil.Conflict(w, "no dispatch in progress for this campaign")
		return
	}
	httputil.JSON(w, http.StatusAccepted, map[string]string{
		"status": "cancelling",
	})
}

// CampaignLogs returns the per-recipient delivery log for a campaign.
//
//	GET /api/campaigns/{id}/logs
func (h *Handlers) CampaignLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	owner := ownerFrom(r.Context())
	if _, err := h.campaigns.Get(r.Context(), owner, id); err != nil {
		serviceError(w, err)
		return
	}
	logs, err := h.logs.ListByCampaign(r.Context(), owner, id)
	if err != nil {
		serviceError(w, err)
		return
	}
	if logs == nil {
		logs = []domain.CommunicationLog{}
	}
	httputil.OK(w, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}
