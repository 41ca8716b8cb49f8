package store

import (
	"context"
	"fmt"

	"github.com/harrowgate/sitrep/internal/models"
)

// WriteAudit appends an audit record. Call this synchronously within the
// same transaction as the mutation it describes wherever a *sqlx.Tx is
// available (spec.md §4.8: writes are synchronous, not best-effort).
func (s *Store) WriteAudit(ctx context.Context, a *models.AuditRecord) error {
	_, err := s.DB.NamedExecContext(ctx, `
INSERT INTO audit_records (id, org_id, user_id, user_email, action, entity_type, entity_id, detail)
VALUES (:id, :org_id, :user_id, :user_email, :action, :entity_type, :entity_id, :detail)
`, a)
	if err != nil {
		return fmt.Errorf("store: write audit: %w", err)
	}
	return nil
}

// AuditFilter captures the list_audit query parameters from spec.md §4.6:
// action, object_type, user, and a time window, on top of the mandatory
// org scope.
type AuditFilter struct {
	Action     string
	EntityType string
	UserID     string
	Since      interface{}
	Until      interface{}
	Limit      int
}

// ListAudit returns an org's audit trail, most recent first, append-only
// and filtered the way spec.md §4.6's list_audit operation specifies.
func (s *Store) ListAudit(ctx context.Context, orgID string, f AuditFilter) ([]models.AuditRecord, error) {
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	q := `SELECT * FROM audit_records WHERE org_id = $1`
	args := []interface{}{orgID}
	n := 1
	if f.Action != "" {
		n++
		q += fmt.Sprintf(" AND action = $%d", n)
		args = append(args, f.Action)
	}
	if f.EntityType != "" {
		n++
		q += fmt.Sprintf(" AND entity_type = $%d", n)
		args = append(args, f.EntityType)
	}
	if f.UserID != "" {
		n++
		q += fmt.Sprintf(" AND user_id = $%d", n)
		args = append(args, f.UserID)
	}
	if f.Since != nil {
		n++
		q += fmt.Sprintf(" AND created_at >= $%d", n)
		args = append(args, f.Since)
	}
	if f.Until != nil {
		n++
		q += fmt.Sprintf(" AND created_at <= $%d", n)
		args = append(args, f.Until)
	}
	n++
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", n)
	args = append(args, limit)

	var out []models.AuditRecord
	if err := s.DB.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("store: list audit: %w", err)
	}
	return out, nil
}

// PurgeExpiredAudit deletes audit rows past each org's own
// audit_retention_days (spec.md invariant 6: "audit rows are never
// updated or deleted except by the retention sweep"; §6: "retention
// sweep is the only process authorized to delete events and audit
// rows"). Retention is per-org via org_settings rather than a single
// global default, so the purge joins against it instead of taking a
// flat day count the way PurgeDeletedEvents does for events.
func (s *Store) PurgeExpiredAudit(ctx context.Context) (int, error) {
	res, err := s.DB.ExecContext(ctx, `
DELETE FROM audit_records a
USING org_settings os
WHERE a.org_id = os.org_id
  AND a.created_at < now() - (os.audit_retention_days || ' days')::interval
`)
	if err != nil {
		return 0, fmt.Errorf("store: purge expired audit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: purge expired audit rows affected: %w", err)
	}
	return int(n), nil
}
