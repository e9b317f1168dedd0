package api

import (
	"context"
	"net/http"

	"github.com/ignite/crm-backend/internal/pkg/httputil"
)

type contextKey string

const ownerKey contextKey = "owner_id"

// RequireOwner extracts the caller identity from the X-User-ID header
// set by the auth front end and stores it on the request context. Every
// data-plane route runs behind it; a request without an identity never
// reaches a handler.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get("X-User-ID")
		if owner == "" {
			httputil.Error(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
	})
}

// ownerFrom returns the caller identity placed on the context by
// RequireOwner.
func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}
