package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/harrowgate/sitrep/internal/apierr"
	"github.com/harrowgate/sitrep/internal/auth"
	"github.com/harrowgate/sitrep/internal/models"
)

// requireAuth validates the bearer JWT and attaches its Claims to the
// request context (spec.md §6: "Authentication: bearer JWT").
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeErr(w, r, apierr.Unauthorized("missing bearer token", nil))
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := a.auth.ParseToken(token)
		if err != nil {
			writeErr(w, r, apierr.Unauthorized("invalid token", err))
			return
		}
		ctx := auth.WithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole wraps a handler so it only runs when the caller's Role meets
// or exceeds min (viewer < analyst < admin).
func (a *API) requireRole(min models.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			writeErr(w, r, apierr.Unauthorized("missing claims", nil))
			return
		}
		if roleRank(models.Role(claims.Role)) < roleRank(min) {
			writeErr(w, r, apierr.Tenancy("insufficient role", nil))
			return
		}
		next.ServeHTTP(w, r)
	}
}

func roleRank(r models.Role) int {
	switch r {
	case models.RoleAdmin:
		return 3
	case models.RoleAnalyst:
		return 2
	case models.RoleViewer:
		return 1
	default:
		return 0
	}
}

// requireAdminKey gates operator-only endpoints (e.g. run_fusion) behind
// the X-Admin-API-Key header from spec.md §6, bypassing user auth entirely.
func (a *API) requireAdminKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.adminKey == "" || r.Header.Get("X-Admin-API-Key") != a.adminKey {
			writeErr(w, r, apierr.Unauthorized("invalid admin api key", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func orgIDParam(r *http.Request) string {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return claims.OrgID
	}
	return ""
}

func idParam(r *http.Request) string {
	return chi.URLParam(r, "id")
}
