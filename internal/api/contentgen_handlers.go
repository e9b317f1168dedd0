package api

import (
	"net/http"

	"github.com/ignite/crm-backend/internal/domain"
	"github.com/ignite/crm-backend/internal/pkg/httputil"
)

// GenerateCampaignContent drafts a subject line and body for a campaign
// targeting the given rule set. The draft is a starting point; the
// caller edits it and submits it through CreateCampaign as usual.
//
//	POST /api/campaigns/generate-content
func (h *Handlers) GenerateCampaignContent(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "content generation is not configured")
		return
	}
	var input struct {
		Rules domain.RuleSet `json:"rules"`
	}
	if !httputil.Decode(w, r, &input) {
		return
	}
	if err := input.Rules.Validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	draft, err := h.generator.Draft(r.Context(), input.Rules)
	if err != nil {
		httputil.Error(w, http.StatusBadGateway, "content generation failed: "+err.Error())
		return
	}
	httputil.OK(w, draft)
}
