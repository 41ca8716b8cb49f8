package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/harrowgate/sitrep/internal/apierr"
	"github.com/harrowgate/sitrep/internal/dossier"
	"github.com/harrowgate/sitrep/internal/models"
)

type dossierRequest struct {
	Name        string   `json:"name" validate:"required"`
	SubjectType string   `json:"subject_type" validate:"required"`
	IsOfficial  bool     `json:"is_official"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases"`
	Tags        []string `json:"tags"`
	Notes       string   `json:"notes"`
	Keywords    []string `json:"keywords"`
	Locations   []string `json:"locations"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (a *API) handleListDossiers(w http.ResponseWriter, r *http.Request) {
	dossiers, err := a.store.ListDossiers(r.Context(), orgIDParam(r))
	if err != nil {
		writeErr(w, r, apierr.Transient("list dossiers", err))
		return
	}
	writeJSON(w, http.StatusOK, dossiers)
}

func (a *API) handleGetDossier(w http.ResponseWriter, r *http.Request) {
	d, err := a.store.GetDossier(r.Context(), orgIDParam(r), idParam(r))
	if err != nil {
		a.recordAudit(r.Context(), orgIDParam(r), callerUserID(r), models.AuditAccessDenied, "dossier", idParam(r), "")
		writeErr(w, r, apierr.Permanent("dossier not found", err))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) handleCreateDossier(w http.ResponseWriter, r *http.Request) {
	var req dossierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, apierr.Validation("invalid request body", err))
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeErr(w, r, apierr.Validation("validation failed", err))
		return
	}
	d := &models.Dossier{
		ID: uuid.NewString(), OrgID: orgIDParam(r), Name: req.Name,
		SubjectType: models.DossierSubjectType(req.SubjectType), IsOfficial: req.IsOfficial,
		Description: req.Description, Aliases: req.Aliases, Tags: req.Tags, Notes: req.Notes,
		Keywords: req.Keywords, Locations: req.Locations, Latitude: req.Latitude, Longitude: req.Longitude,
		CreatedBy: callerUserID(r),
	}
	if err := dossier.ValidateSubject(d); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := a.store.CreateDossier(r.Context(), d); err != nil {
		writeErr(w, r, apierr.Fatal("create dossier", err))
		return
	}
	a.recordAudit(r.Context(), d.OrgID, d.CreatedBy, models.AuditCreate, "dossier", d.ID, d.Name)
	writeJSON(w, http.StatusCreated, d)
}

func (a *API) handleUpdateDossier(w http.ResponseWriter, r *http.Request) {
	orgID := orgIDParam(r)
	existing, err := a.store.GetDossier(r.Context(), orgID, idParam(r))
	if err != nil {
		a.recordAudit(r.Context(), orgID, callerUserID(r), models.AuditAccessDenied, "dossier", idParam(r), "")
		writeErr(w, r, apierr.Permanent("dossier not found", err))
		return
	}
	var req dossierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, apierr.Validation("invalid request body", err))
		return
	}
	existing.Name = req.Name
	existing.Description = req.Description
	existing.Aliases = req.Aliases
	existing.Tags = req.Tags
	existing.Notes = req.Notes
	existing.Keywords = req.Keywords
	existing.Locations = req.Locations
	existing.Latitude = req.Latitude
	existing.Longitude = req.Longitude
	if err := a.store.UpdateDossier(r.Context(), existing); err != nil {
		writeErr(w, r, apierr.Fatal("update dossier", err))
		return
	}
	a.recordAudit(r.Context(), orgID, callerUserID(r), models.AuditUpdate, "dossier", existing.ID, "")
	writeJSON(w, http.StatusOK, existing)
}

func (a *API) handleDeleteDossier(w http.ResponseWriter, r *http.Request) {
	orgID := orgIDParam(r)
	id := idParam(r)
	if _, err := a.store.GetDossier(r.Context(), orgID, id); err != nil {
		a.recordAudit(r.Context(), orgID, callerUserID(r), models.AuditAccessDenied, "dossier", id, "")
		writeErr(w, r, apierr.Permanent("dossier not found", err))
		return
	}
	if err := a.store.DeleteDossier(r.Context(), orgID, id); err != nil {
		writeErr(w, r, apierr.Fatal("delete dossier", err))
		return
	}
	a.recordAudit(r.Context(), orgID, callerUserID(r), models.AuditDelete, "dossier", id, "")
	w.WriteHeader(http.StatusNoContent)
}
