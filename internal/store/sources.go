package store

import (
	"context"
	"fmt"
	"time"

	"github.com/harrowgate/sitrep/internal/models"
)

func (s *Store) ListEnabledSources(ctx context.Context) ([]models.Source, error) {
	var out []models.Source
	err := s.DB.SelectContext(ctx, &out, `SELECT * FROM sources WHERE enabled = true`)
	if err != nil {
		return nil, fmt.Errorf("store: list enabled sources: %w", err)
	}
	return out, nil
}

func (s *Store) CreateSource(ctx context.Context, src *models.Source) error {
	_, err := s.DB.NamedExecContext(ctx, `
INSERT INTO sources (id, name, type, url, fetch_interval_seconds, enabled)
VALUES (:id, :name, :type, :url, :fetch_interval_seconds, :enabled)
`, src)
	if err != nil {
		return fmt.Errorf("store: create source: %w", err)
	}
	return nil
}

// RecordFetchSuccess resets the failure streak and stamps last_fetched_at,
// closing the circuit breaker if it was open.
func (s *Store) RecordFetchSuccess(ctx context.Context, sourceID string, at time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
UPDATE sources SET consecutive_failures = 0, breaker_opened_at = NULL, last_fetched_at = $2 WHERE id = $1
`, sourceID, at)
	if err != nil {
		return fmt.Errorf("store: record fetch success: %w", err)
	}
	return nil
}

// RecordFetchFailure increments the failure streak and, once it crosses
// threshold, stamps breaker_opened_at (spec.md §4.3 circuit breaker).
func (s *Store) RecordFetchFailure(ctx context.Context, sourceID string, threshold int, at time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
UPDATE sources SET
	consecutive_failures = consecutive_failures + 1,
	breaker_opened_at = CASE WHEN consecutive_failures + 1 >= $2 THEN $3 ELSE breaker_opened_at END
WHERE id = $1
`, sourceID, threshold, at)
	if err != nil {
		return fmt.Errorf("store: record fetch failure: %w", err)
	}
	return nil
}
