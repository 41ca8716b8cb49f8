package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harrowgate/sitrep/internal/dossier"
	"github.com/harrowgate/sitrep/internal/models"
)

// CreateDossier inserts an org-scoped dossier. Callers must have already
// enforced the person/is_official rejection rule (spec.md §9 OQ1) before
// calling this.
func (s *Store) CreateDossier(ctx context.Context, d *models.Dossier) error {
	_, err := s.DB.NamedExecContext(ctx, `
INSERT INTO dossiers (
	id, org_id, name, subject_type, is_official, description, aliases, tags, notes,
	keywords, locations, latitude, longitude, created_by
) VALUES (
	:id, :org_id, :name, :subject_type, :is_official, :description, :aliases, :tags, :notes,
	:keywords, :locations, :latitude, :longitude, :created_by
)
`, d)
	if err != nil {
		return fmt.Errorf("store: create dossier: %w", err)
	}
	return nil
}

// GetDossier fetches a dossier scoped to orgID, returning sql.ErrNoRows
// (wrapped) if it belongs to a different org — this is the tenancy
// isolation boundary (spec.md §3 invariant on org-scoped entities).
func (s *Store) GetDossier(ctx context.Context, orgID, id string) (*models.Dossier, error) {
	var d models.Dossier
	err := s.DB.GetContext(ctx, &d, `SELECT * FROM dossiers WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return nil, fmt.Errorf("store: get dossier: %w", err)
	}
	unmarshalDossierBreakdowns(&d)
	return &d, nil
}

// ListDossiers returns every dossier owned by orgID.
func (s *Store) ListDossiers(ctx context.Context, orgID string) ([]models.Dossier, error) {
	var dossiers []models.Dossier
	err := s.DB.SelectContext(ctx, &dossiers, `SELECT * FROM dossiers WHERE org_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("store: list dossiers: %w", err)
	}
	for i := range dossiers {
		unmarshalDossierBreakdowns(&dossiers[i])
	}
	return dossiers, nil
}

// UpdateDossier replaces the mutable fields of a dossier.
func (s *Store) UpdateDossier(ctx context.Context, d *models.Dossier) error {
	_, err := s.DB.NamedExecContext(ctx, `
UPDATE dossiers SET
	name = :name, description = :description, aliases = :aliases, tags = :tags, notes = :notes,
	keywords = :keywords, locations = :locations, latitude = :latitude, longitude = :longitude,
	updated_at = now()
WHERE id = :id AND org_id = :org_id
`, d)
	if err != nil {
		return fmt.Errorf("store: update dossier: %w", err)
	}
	return nil
}

// DeleteDossier removes a dossier, scoped to orgID.
func (s *Store) DeleteDossier(ctx context.Context, orgID, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM dossiers WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("store: delete dossier: %w", err)
	}
	return nil
}

// RecordDossierMatch bumps event_count/last_event_at for a dossier that
// matched an event — monotone non-decreasing event_count per spec.md §8's
// testable property. The 7d/30d counts and breakdowns are left to the
// periodic from-scratch SetDossierStats pass.
func (s *Store) RecordDossierMatch(ctx context.Context, dossierID string, at time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
UPDATE dossiers SET
	event_count = event_count + 1,
	last_event_at = $2,
	updated_at = now()
WHERE id = $1
`, dossierID, at)
	if err != nil {
		return fmt.Errorf("store: record dossier match: %w", err)
	}
	return nil
}

// SetDossierStats overwrites a dossier's derived fields with a
// from-scratch recomputation, used by the scheduled stats-refresh tick
// (spec.md §4.8 dossier_stats_refresh_tick) as a periodic correction pass
// independent of the incremental RecordDossierMatch updates. Because this
// tick re-walks every live event on each run, it is also what makes a
// retention sweep's soft-deletions show up in dossier counts: a shrinking
// live-event set surfaces on the next run of this pass, with no separate
// dirty-flag bookkeeping required.
func (s *Store) SetDossierStats(ctx context.Context, dossierID string, stats dossier.DossierStats) error {
	catJSON, err := json.Marshal(stats.CategoryBreakdown)
	if err != nil {
		return fmt.Errorf("store: marshal category breakdown: %w", err)
	}
	sentJSON, err := json.Marshal(stats.SentimentBreakdown)
	if err != nil {
		return fmt.Errorf("store: marshal sentiment breakdown: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
UPDATE dossiers SET
	event_count = $2,
	last_event_at = $3,
	count_7d = $4,
	count_30d = $5,
	category_breakdown = $6,
	sentiment_breakdown = $7,
	updated_at = now()
WHERE id = $1
`, dossierID, stats.EventCount, stats.LastEventAt, stats.Count7d, stats.Count30d, catJSON, sentJSON)
	if err != nil {
		return fmt.Errorf("store: set dossier stats: %w", err)
	}
	return nil
}

// AllDossiers returns every dossier across every org, for the matcher
// pass (matching runs globally over events, then scopes results per
// dossier's own org).
func (s *Store) AllDossiers(ctx context.Context) ([]models.Dossier, error) {
	var dossiers []models.Dossier
	if err := s.DB.SelectContext(ctx, &dossiers, `SELECT * FROM dossiers`); err != nil {
		return nil, fmt.Errorf("store: all dossiers: %w", err)
	}
	for i := range dossiers {
		unmarshalDossierBreakdowns(&dossiers[i])
	}
	return dossiers, nil
}

func unmarshalDossierBreakdowns(d *models.Dossier) {
	if len(d.CategoryBreakdownRaw) > 0 {
		_ = json.Unmarshal(d.CategoryBreakdownRaw, &d.CategoryBreakdown)
	}
	if len(d.SentimentBreakdownRaw) > 0 {
		_ = json.Unmarshal(d.SentimentBreakdownRaw, &d.SentimentBreakdown)
	}
}
