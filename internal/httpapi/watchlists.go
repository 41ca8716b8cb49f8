package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/harrowgate/sitrep/internal/apierr"
	"github.com/harrowgate/sitrep/internal/models"
)

type watchlistRequest struct {
	Name        string   `json:"name" validate:"required"`
	Categories  []string `json:"categories"`
	Keywords    []string `json:"keywords"`
	MinPriority float64  `json:"min_priority"`
}

func (a *API) handleListWatchlists(w http.ResponseWriter, r *http.Request) {
	watchlists, err := a.store.ListWatchlists(r.Context(), orgIDParam(r))
	if err != nil {
		writeErr(w, r, apierr.Transient("list watchlists", err))
		return
	}
	writeJSON(w, http.StatusOK, watchlists)
}

func (a *API) handleCreateWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, apierr.Validation("invalid request body", err))
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeErr(w, r, apierr.Validation("validation failed", err))
		return
	}
	wl := &models.Watchlist{
		ID: uuid.NewString(), OrgID: orgIDParam(r), Name: req.Name,
		Categories: req.Categories, Keywords: req.Keywords, MinPriority: req.MinPriority,
		CreatedBy: callerUserID(r),
	}
	if err := a.store.CreateWatchlist(r.Context(), wl); err != nil {
		writeErr(w, r, apierr.Fatal("create watchlist", err))
		return
	}
	a.recordAudit(r.Context(), wl.OrgID, wl.CreatedBy, models.AuditCreate, "watchlist", wl.ID, wl.Name)
	writeJSON(w, http.StatusCreated, wl)
}

func (a *API) handleDeleteWatchlist(w http.ResponseWriter, r *http.Request) {
	orgID := orgIDParam(r)
	id := idParam(r)
	if err := a.store.DeleteWatchlist(r.Context(), orgID, id); err != nil {
		writeErr(w, r, apierr.Fatal("delete watchlist", err))
		return
	}
	a.recordAudit(r.Context(), orgID, callerUserID(r), models.AuditDelete, "watchlist", id, "")
	w.WriteHeader(http.StatusNoContent)
}
