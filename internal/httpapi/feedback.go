package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/harrowgate/sitrep/internal/apierr"
	"github.com/harrowgate/sitrep/internal/models"
)

type feedbackRequest struct {
	Verdict string `json:"verdict" validate:"required,oneof=relevant irrelevant duplicate"`
	Note    string `json:"note"`
}

func (a *API) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, apierr.Validation("invalid request body", err))
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeErr(w, r, apierr.Validation("validation failed", err))
		return
	}
	eventID := idParam(r)
	if _, err := a.store.GetEvent(r.Context(), eventID); err != nil {
		writeErr(w, r, apierr.Validation("event not found or deleted", err))
		return
	}
	f := &models.EventFeedback{
		ID: uuid.NewString(), OrgID: orgIDParam(r), EventID: eventID,
		UserID: callerUserID(r), Verdict: models.FeedbackVerdict(req.Verdict), Note: req.Note,
	}
	if err := a.store.RecordFeedback(r.Context(), f); err != nil {
		writeErr(w, r, apierr.Fatal("record feedback", err))
		return
	}
	a.recordAudit(r.Context(), f.OrgID, f.UserID, models.AuditCreate, "event_feedback", f.EventID, req.Verdict)
	writeJSON(w, http.StatusCreated, f)
}
