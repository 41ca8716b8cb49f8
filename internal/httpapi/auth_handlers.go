package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/harrowgate/sitrep/internal/apierr"
	"github.com/harrowgate/sitrep/internal/models"
)

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name"`
	OrgName     string `json:"org_name" validate:"required"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, apierr.Validation("invalid request body", err))
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeErr(w, r, apierr.Validation("validation failed", err))
		return
	}

	hash, err := a.auth.HashPassword(req.Password)
	if err != nil {
		writeErr(w, r, apierr.Fatal("hash password", err))
		return
	}
	user := &models.User{ID: uuid.NewString(), Email: req.Email, PasswordHash: hash, DisplayName: req.DisplayName}
	if err := a.store.CreateUser(r.Context(), user); err != nil {
		writeErr(w, r, apierr.Integrity("email already registered", err))
		return
	}
	org := &models.Organization{ID: uuid.NewString(), Name: req.OrgName}
	if err := a.store.CreateOrganization(r.Context(), org); err != nil {
		writeErr(w, r, apierr.Integrity("organization name already taken", err))
		return
	}
	membership := &models.Membership{ID: uuid.NewString(), OrgID: org.ID, UserID: user.ID, Role: models.RoleAdmin}
	if err := a.store.CreateMembership(r.Context(), membership); err != nil {
		writeErr(w, r, apierr.Fatal("create membership", err))
		return
	}
	token, err := a.auth.IssueToken(user, org.ID, models.RoleAdmin)
	if err != nil {
		writeErr(w, r, apierr.Fatal("issue token", err))
		return
	}
	a.recordAudit(r.Context(), org.ID, user.ID, models.AuditCreate, "organization", org.ID, "org created at registration")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token, "org_id": org.ID, "user_id": user.ID,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	OrgID    string `json:"org_id" validate:"required"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, apierr.Validation("invalid request body", err))
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeErr(w, r, apierr.Validation("validation failed", err))
		return
	}
	user, err := a.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil || !a.auth.CheckPassword(user.PasswordHash, req.Password) {
		writeErr(w, r, apierr.Unauthorized("invalid credentials", nil))
		return
	}
	membership, err := a.store.MembershipFor(r.Context(), req.OrgID, user.ID)
	if err != nil {
		writeErr(w, r, apierr.Tenancy("not a member of this organization", err))
		return
	}
	token, err := a.auth.IssueToken(user, req.OrgID, membership.Role)
	if err != nil {
		writeErr(w, r, apierr.Fatal("issue token", err))
		return
	}
	a.recordAudit(r.Context(), req.OrgID, user.ID, models.AuditLogin, "user", user.ID, "")
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": token})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
