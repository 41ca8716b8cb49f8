package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/harrowgate/sitrep/internal/apierr"
	"github.com/harrowgate/sitrep/internal/models"
	"github.com/harrowgate/sitrep/internal/store"
)

// handleListAudit implements the list_audit operation from spec.md §4.6:
// admin-only, org-scoped, filterable by action/object_type/user/time
// window, and always itself audited as an admin read (spec.md §4.6 "admin
// reads are audited").
func (a *API) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.AuditFilter{
		Action:     q.Get("action"),
		EntityType: q.Get("object_type"),
		UserID:     q.Get("user_id"),
	}
	if l := q.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			f.Limit = v
		}
	}
	if s := q.Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			f.Since = t
		}
	}
	if u := q.Get("until"); u != "" {
		if t, err := time.Parse(time.RFC3339, u); err == nil {
			f.Until = t
		}
	}

	orgID := orgIDParam(r)
	records, err := a.store.ListAudit(r.Context(), orgID, f)
	if err != nil {
		writeErr(w, r, apierr.Transient("list audit", err))
		return
	}
	a.recordAudit(r.Context(), orgID, callerUserID(r), models.AuditView, "audit", "", "")
	writeJSON(w, http.StatusOK, records)
}
