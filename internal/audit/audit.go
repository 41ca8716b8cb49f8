// Package audit provides the append-only write/read helpers for
// AuditRecord (spec.md §4.8). Writes happen synchronously in the same
// transaction as the mutation they describe wherever the caller has one;
// this package only supplies the record-construction convenience, leaving
// persistence to internal/store.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harrowgate/sitrep/internal/models"
)

// Store is the subset of store.Store the audit helpers need. Reads go
// straight through the concrete *store.Store (see internal/httpapi), so
// only the write path is named here.
type Store interface {
	WriteAudit(ctx context.Context, a *models.AuditRecord) error
}

// Record writes one audit entry. userEmail is a snapshot of the acting
// user's email at write time, kept on the row itself so the trail remains
// legible after the user is deleted and user_id is anonymized to NULL
// (spec.md §3 invariant 7).
func Record(ctx context.Context, store Store, orgID, userID, userEmail string, action models.AuditAction, entityType, entityID, detail string) error {
	rec := &models.AuditRecord{
		ID:         uuid.NewString(),
		OrgID:      orgID,
		UserEmail:  userEmail,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	if userID != "" {
		rec.UserID = &userID
	}
	return store.WriteAudit(ctx, rec)
}
