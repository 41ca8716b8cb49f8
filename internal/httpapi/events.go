package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/harrowgate/sitrep/internal/apierr"
	"github.com/harrowgate/sitrep/internal/models"
	"github.com/harrowgate/sitrep/internal/store"
)

// handleListEvents implements list_events from spec.md §4.6: filterable
// by category, sentiment, min priority, cluster, and since-timestamp.
func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.EventFilter{
		Sentiment: q.Get("sentiment"),
		ClusterID: q.Get("cluster_id"),
	}
	if cat := q.Get("category"); cat != "" {
		f.Category = models.Category(cat)
	}
	if mp := q.Get("min_priority"); mp != "" {
		if v, err := strconv.ParseFloat(mp, 64); err == nil {
			f.MinPriority = v
		}
	}
	if since := q.Get("since"); since != "" {
		if v, err := time.Parse(time.RFC3339, since); err == nil {
			f.Since = v
		}
	}
	if limit := q.Get("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil {
			f.Limit = v
		}
	}
	if offset := q.Get("offset"); offset != "" {
		if v, err := strconv.Atoi(offset); err == nil {
			f.Offset = v
		}
	}

	events, err := a.store.ListEvents(r.Context(), f)
	if err != nil {
		writeErr(w, r, apierr.Transient("list events", err))
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (a *API) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := a.store.GetEvent(r.Context(), idParam(r))
	if err != nil {
		writeErr(w, r, apierr.Permanent("event not found", err))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *API) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if err := a.store.DeleteEvent(r.Context(), id); err != nil {
		writeErr(w, r, apierr.Transient("delete event", err))
		return
	}
	a.recordAudit(r.Context(), orgIDParam(r), callerUserID(r), models.AuditDelete, "event", id, "")
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := a.store.DashboardSummary(r.Context(), orgIDParam(r))
	if err != nil {
		writeErr(w, r, apierr.Transient("dashboard summary", err))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleDashboardTrends(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if h := r.URL.Query().Get("hours"); h != "" {
		if v, err := strconv.Atoi(h); err == nil && v > 0 {
			hours = v
		}
	}
	since := nowUTC().Add(-timeHours(hours))
	trends, err := a.store.DashboardTrends(r.Context(), since)
	if err != nil {
		writeErr(w, r, apierr.Transient("dashboard trends", err))
		return
	}
	writeJSON(w, http.StatusOK, trends)
}
