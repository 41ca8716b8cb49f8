package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harrowgate/sitrep/internal/models"
)

// GetOrgSettings returns an org's settings row, creating a row with
// defaults on first access so every org always has a complete settings
// record to look up (consistent with spec.md §9's short-TTL cache design
// note: the cache always has something to cache).
func (s *Store) GetOrgSettings(ctx context.Context, orgID string) (*models.OrgSettings, error) {
	var o models.OrgSettings
	err := s.DB.GetContext(ctx, &o, `SELECT * FROM org_settings WHERE org_id = $1`, orgID)
	if err == nil {
		return &o, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: get org settings: %w", err)
	}
	_, insErr := s.DB.ExecContext(ctx, `
INSERT INTO org_settings (org_id) VALUES ($1) ON CONFLICT (org_id) DO NOTHING
`, orgID)
	if insErr != nil {
		return nil, fmt.Errorf("store: create default org settings: %w", insErr)
	}
	if err := s.DB.GetContext(ctx, &o, `SELECT * FROM org_settings WHERE org_id = $1`, orgID); err != nil {
		return nil, fmt.Errorf("store: get org settings after insert: %w", err)
	}
	return &o, nil
}

// ResetOrgSettings drops an org's settings row and recreates it with
// defaults, discarding every customization (spec.md §4.6 settings reset
// operation).
func (s *Store) ResetOrgSettings(ctx context.Context, orgID string) (*models.OrgSettings, error) {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM org_settings WHERE org_id = $1`, orgID); err != nil {
		return nil, fmt.Errorf("store: reset org settings, delete: %w", err)
	}
	return s.GetOrgSettings(ctx, orgID)
}

func (s *Store) UpdateOrgSettings(ctx context.Context, o *models.OrgSettings) error {
	_, err := s.DB.NamedExecContext(ctx, `
UPDATE org_settings SET
	alert_categories = :alert_categories,
	alert_sentiment_types = :alert_sentiment_types,
	high_priority_threshold = :high_priority_threshold,
	email_alerts_enabled = :email_alerts_enabled,
	event_retention_days = :event_retention_days,
	audit_retention_days = :audit_retention_days,
	updated_at = now()
WHERE org_id = :org_id
`, o)
	if err != nil {
		return fmt.Errorf("store: update org settings: %w", err)
	}
	return nil
}
