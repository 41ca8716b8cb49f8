package httpapi

import (
	"net/http"
	"strconv"

	"github.com/harrowgate/sitrep/internal/apierr"
)

// handleRunFusion implements the operator-triggered run_fusion(hours_back)
// operation from spec.md §4.6, gated behind X-Admin-API-Key rather than a
// bearer token since it is an operational action rather than a
// tenant-scoped one. hours_back is optional; omitting it uses the engine's
// configured default window.
func (a *API) handleRunFusion(w http.ResponseWriter, r *http.Request) {
	hoursBack := 0
	if v := r.URL.Query().Get("hours_back"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			hoursBack = n
		}
	}
	created, err := a.fusion.RunPass(r.Context(), hoursBack)
	if err != nil {
		writeErr(w, r, apierr.Transient("run fusion", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"clusters_created": created})
}
