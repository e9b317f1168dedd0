package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/crm-backend/internal/domain"
	"github.com/ignite/crm-backend/internal/pkg/httputil"
)

// ListCustomers returns a page of the caller's customers.
//
//	GET /api/customers?page=&limit=
func (h *Handlers) ListCustomers(w http.ResponseWriter, r *http.Request) {
	p := pageFromRequest(r, 50, 500)
	customers, total, err := h.customers.List(r.Context(), ownerFrom(r.Context()), p.Limit, p.Offset())
	if err != nil {
		serviceError(w, err)
		return
	}
	if customers == nil {
		customers = []domain.Customer{}
	}
	httputil.OK(w, paginate(customers, p, total))
}

// GetCustomer returns a single customer.
//
//	GET /api/customers/{id}
func (h *Handlers) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.customers.Get(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, c)
}

// CreateCustomer inserts a single customer record. Email must be unique
// within the caller's records; a duplicate comes back as 409.
//
//	POST /api/customers
func (h *Handlers) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c domain.Customer
	if !httputil.Decode(w, r, &c) {
		return
	}
	if c.Name == "" || c.Email == "" {
		httputil.BadRequest(w, "name and email are required")
		return
	}
	c.ID = uuid.New().String()
	c.UploadedBy = ownerFrom(r.Context())

	id, err := h.customers.Create(r.Context(), &c)
	if err != nil {
		serviceError(w, err)
		return
	}
	c.ID = id
	httputil.Created(w, c)
}

// UpdateCustomer replaces a customer's editable fields. Enrichment
// scores are not writable here; they only change through scoring runs.
//
//	PUT /api/customers/{id}
func (h *Handlers) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var c domain.Customer
	if !httputil.Decode(w, r, &c) {
		return
	}
	if c.Name == "" || c.Email == "" {
		httputil.BadRequest(w, "name and email are required")
		return
	}
	c.ID = chi.URLParam(r, "id")
	owner := ownerFrom(r.Context())
	c.UploadedBy = owner

	if err := h.customers.Update(r.Context(), owner, &c); err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, c)
}

// DeleteCustomer removes a customer.
//
//	DELETE /api/customers/{id}
func (h *Handlers) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.customers.Delete(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		serviceError(w, err)
		return
	}
	httputil.NoContent(w)
}
