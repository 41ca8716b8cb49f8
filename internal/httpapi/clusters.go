package httpapi

import (
	"net/http"
	"strconv"

	"github.com/harrowgate/sitrep/internal/apierr"
)

func (a *API) handleListClusters(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			limit = v
		}
	}
	clusters, err := a.store.ListClusters(r.Context(), limit)
	if err != nil {
		writeErr(w, r, apierr.Transient("list clusters", err))
		return
	}
	writeJSON(w, http.StatusOK, clusters)
}

func (a *API) handleGetCluster(w http.ResponseWriter, r *http.Request) {
	c, err := a.store.GetCluster(r.Context(), idParam(r))
	if err != nil {
		writeErr(w, r, apierr.Permanent("cluster not found", err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}
