package store

import (
	"context"
	"fmt"

	"github.com/harrowgate/sitrep/internal/models"
)

// RecordFeedback upserts an analyst's verdict on an event, one verdict per
// (org, event, user) — a later call updates rather than duplicates.
func (s *Store) RecordFeedback(ctx context.Context, f *models.EventFeedback) error {
	_, err := s.DB.NamedExecContext(ctx, `
INSERT INTO event_feedback (id, org_id, event_id, user_id, verdict, note)
VALUES (:id, :org_id, :event_id, :user_id, :verdict, :note)
ON CONFLICT (org_id, event_id, user_id) DO UPDATE SET verdict = EXCLUDED.verdict, note = EXCLUDED.note
`, f)
	if err != nil {
		return fmt.Errorf("store: record feedback: %w", err)
	}
	return nil
}

func (s *Store) ListFeedbackForEvent(ctx context.Context, orgID, eventID string) ([]models.EventFeedback, error) {
	var out []models.EventFeedback
	err := s.DB.SelectContext(ctx, &out, `
SELECT * FROM event_feedback WHERE org_id = $1 AND event_id = $2 ORDER BY created_at DESC
`, orgID, eventID)
	if err != nil {
		return nil, fmt.Errorf("store: list feedback: %w", err)
	}
	return out, nil
}
