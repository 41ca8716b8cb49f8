package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/harrowgate/sitrep/internal/apierr"
	"github.com/harrowgate/sitrep/internal/models"
)

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := a.store.GetOrgSettings(r.Context(), orgIDParam(r))
	if err != nil {
		writeErr(w, r, apierr.Transient("get settings", err))
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type settingsRequest struct {
	AlertCategories       []string `json:"alert_categories"`
	AlertSentimentTypes   []string `json:"alert_sentiment_types"`
	HighPriorityThreshold float64  `json:"high_priority_threshold" validate:"gte=0,lte=1"`
	EmailAlertsEnabled    bool     `json:"email_alerts_enabled"`
	EventRetentionDays    *int     `json:"event_retention_days"`
	AuditRetentionDays    int      `json:"audit_retention_days" validate:"gte=0"`
}

func (a *API) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	orgID := orgIDParam(r)
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, apierr.Validation("invalid request body", err))
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeErr(w, r, apierr.Validation("validation failed", err))
		return
	}
	s := &models.OrgSettings{
		OrgID: orgID, AlertCategories: req.AlertCategories, AlertSentimentTypes: req.AlertSentimentTypes,
		HighPriorityThreshold: req.HighPriorityThreshold, EmailAlertsEnabled: req.EmailAlertsEnabled,
		EventRetentionDays: req.EventRetentionDays, AuditRetentionDays: req.AuditRetentionDays,
	}
	if err := a.store.UpdateOrgSettings(r.Context(), s); err != nil {
		writeErr(w, r, apierr.Fatal("update settings", err))
		return
	}
	a.recordAudit(r.Context(), orgID, callerUserID(r), models.AuditUpdate, "org_settings", orgID, "")
	writeJSON(w, http.StatusOK, s)
}

func (a *API) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	orgID := orgIDParam(r)
	s, err := a.store.ResetOrgSettings(r.Context(), orgID)
	if err != nil {
		writeErr(w, r, apierr.Fatal("reset settings", err))
		return
	}
	a.recordAudit(r.Context(), orgID, callerUserID(r), models.AuditUpdate, "org_settings", orgID, "reset")
	writeJSON(w, http.StatusOK, s)
}
