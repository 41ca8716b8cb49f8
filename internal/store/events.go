package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harrowgate/sitrep/internal/models"
	"github.com/lib/pq"
)

// UpsertEvent inserts a new event keyed on (source_id, dedup_hash); on a
// conflict it is a no-op and returns inserted=false, giving the ingest
// pipeline idempotent re-fetch semantics
// (spec.md §4.3/§8: re-ingesting the same item must not duplicate it).
func (s *Store) UpsertEvent(ctx context.Context, e *models.Event) (inserted bool, err error) {
	entitiesJSON, err := json.Marshal(e.Entities)
	if err != nil {
		return false, fmt.Errorf("store: marshal entities: %w", err)
	}
	const q = `
INSERT INTO events (
	id, source_id, dedup_hash, title, raw_text, url, published_at, clock_skew_flag,
	summary, category, entities, sentiment, locations, latitude, longitude,
	confidence_score, relevance_score, priority_score, enrichment_degraded,
	source_count, multi_source_boost
) VALUES (
	:id, :source_id, :dedup_hash, :title, :raw_text, :url, :published_at, :clock_skew_flag,
	:summary, :category, :entities, :sentiment, :locations, :latitude, :longitude,
	:confidence_score, :relevance_score, :priority_score, :enrichment_degraded,
	:source_count, :multi_source_boost
)
ON CONFLICT (source_id, dedup_hash) DO NOTHING
RETURNING id`

	type row struct {
		ID                 string           `db:"id"`
		SourceID           string           `db:"source_id"`
		DedupHash          string           `db:"dedup_hash"`
		Title              string           `db:"title"`
		RawText            string           `db:"raw_text"`
		URL                string           `db:"url"`
		PublishedAt        interface{}      `db:"published_at"`
		ClockSkewFlag      bool             `db:"clock_skew_flag"`
		Summary            string           `db:"summary"`
		Category           models.Category  `db:"category"`
		Entities           []byte           `db:"entities"`
		Sentiment          models.Sentiment `db:"sentiment"`
		Locations          models.StringArray `db:"locations"`
		Latitude           *float64         `db:"latitude"`
		Longitude          *float64         `db:"longitude"`
		ConfidenceScore    float64          `db:"confidence_score"`
		RelevanceScore     float64          `db:"relevance_score"`
		PriorityScore      float64          `db:"priority_score"`
		EnrichmentDegraded bool             `db:"enrichment_degraded"`
		SourceCount        int              `db:"source_count"`
		MultiSourceBoost   bool             `db:"multi_source_boost"`
	}
	category := e.Category
	if category == "" {
		category = models.CategoryOther
	}
	r := row{
		ID: e.ID, SourceID: e.SourceID, DedupHash: e.DedupHash, Title: e.Title,
		RawText: e.RawText, URL: e.URL, PublishedAt: e.PublishedAt, ClockSkewFlag: e.ClockSkewFlag,
		Summary: e.Summary, Category: category, Entities: entitiesJSON, Sentiment: e.Sentiment,
		Locations: e.Locations, Latitude: e.Latitude, Longitude: e.Longitude,
		ConfidenceScore: e.ConfidenceScore, RelevanceScore: e.RelevanceScore,
		PriorityScore: e.PriorityScore, EnrichmentDegraded: e.EnrichmentDegraded,
		SourceCount: e.SourceCount, MultiSourceBoost: e.MultiSourceBoost,
	}
	rows, err := s.DB.NamedQueryContext(ctx, q, r)
	if err != nil {
		return false, fmt.Errorf("store: upsert event: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		return true, nil
	}
	return false, nil
}

// GetEvent fetches a single event by id. Soft-deleted events are invisible
// here (spec.md §4.1): the retention sweep reaches them with its own
// queries instead.
func (s *Store) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var e models.Event
	err := s.DB.GetContext(ctx, &e, `SELECT * FROM events WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return nil, fmt.Errorf("store: get event: %w", err)
	}
	if err := json.Unmarshal(e.EntitiesRaw, &e.Entities); err != nil {
		return nil, fmt.Errorf("store: unmarshal entities: %w", err)
	}
	return &e, nil
}

// EventFilter captures the list_events query parameters from spec.md §4.6.
type EventFilter struct {
	Category    models.Category
	Sentiment   string
	MinPriority float64
	ClusterID   string
	Since       interface{}
	Limit       int
	Offset      int
}

// ListEvents returns events matching filter, most recent first.
func (s *Store) ListEvents(ctx context.Context, f EventFilter) ([]models.Event, error) {
	q := `SELECT * FROM events WHERE priority_score >= $1 AND deleted_at IS NULL`
	args := []interface{}{f.MinPriority}
	n := 1
	if f.Sentiment != "" {
		n++
		q += fmt.Sprintf(" AND sentiment = $%d", n)
		args = append(args, f.Sentiment)
	}
	if f.ClusterID != "" {
		n++
		q += fmt.Sprintf(" AND cluster_id = $%d", n)
		args = append(args, f.ClusterID)
	}
	if f.Category != "" {
		n++
		q += fmt.Sprintf(" AND category = $%d", n)
		args = append(args, f.Category)
	}
	if f.Since != nil {
		n++
		q += fmt.Sprintf(" AND published_at >= $%d", n)
		args = append(args, f.Since)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q += " ORDER BY published_at DESC LIMIT " + fmt.Sprint(limit) + " OFFSET " + fmt.Sprint(f.Offset)

	var events []models.Event
	if err := s.DB.SelectContext(ctx, &events, q, args...); err != nil {
		return nil, fmt.Errorf("store: list events: %w", err)
	}
	for i := range events {
		if len(events[i].EntitiesRaw) > 0 {
			_ = json.Unmarshal(events[i].EntitiesRaw, &events[i].Entities)
		}
	}
	return events, nil
}

// SetEventCluster assigns an event to a cluster (or clears it when
// clusterID is empty).
func (s *Store) SetEventCluster(ctx context.Context, eventID, clusterID string) error {
	var arg interface{}
	if clusterID != "" {
		arg = clusterID
	}
	_, err := s.DB.ExecContext(ctx, `UPDATE events SET cluster_id = $1 WHERE id = $2`, arg, eventID)
	if err != nil {
		return fmt.Errorf("store: set event cluster: %w", err)
	}
	return nil
}

// DeleteEvent removes an event. If removing it would leave its cluster
// with fewer than 2 members, the cluster is dissolved (spec.md §9 Open
// Question 3, resolved as "dissolve" — see DESIGN.md).
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: delete event begin tx: %w", err)
	}
	defer tx.Rollback()

	var clusterID *string
	if err := tx.GetContext(ctx, &clusterID, `SELECT cluster_id FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("store: delete event lookup: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("store: delete event: %w", err)
	}
	if clusterID != nil {
		var remaining int
		if err := tx.GetContext(ctx, &remaining, `SELECT count(*) FROM events WHERE cluster_id = $1`, *clusterID); err != nil {
			return fmt.Errorf("store: delete event remaining count: %w", err)
		}
		if remaining < 2 {
			if _, err := tx.ExecContext(ctx, `UPDATE events SET cluster_id = NULL WHERE cluster_id = $1`, *clusterID); err != nil {
				return fmt.Errorf("store: dissolve cluster members: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM clusters WHERE id = $1`, *clusterID); err != nil {
				return fmt.Errorf("store: dissolve cluster: %w", err)
			}
		}
	}
	return tx.Commit()
}

// WindowEvents returns every non-deleted event (clustered or not) published
// at or after since — the Fusion Engine's full candidate pool for a pass,
// letting an unclustered event join an already-formed cluster rather than
// only ever clustering a single unclustered batch against itself (spec.md
// §4.4).
func (s *Store) WindowEvents(ctx context.Context, since time.Time) ([]models.Event, error) {
	var events []models.Event
	err := s.DB.SelectContext(ctx, &events,
		`SELECT * FROM events WHERE published_at >= $1 AND deleted_at IS NULL ORDER BY published_at DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("store: window events: %w", err)
	}
	for i := range events {
		if len(events[i].EntitiesRaw) > 0 {
			_ = json.Unmarshal(events[i].EntitiesRaw, &events[i].Entities)
		}
	}
	return events, nil
}

// LiveEvents returns every non-deleted event, the candidate pool the
// dossier stats-refresh tick matches each dossier against from scratch
// (spec.md §4.5: "recomputed from scratch ... bounded: events whose
// deleted_at is NULL"). Capped defensively since a from-scratch pass is
// O(dossiers x events).
func (s *Store) LiveEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := s.DB.SelectContext(ctx, &events,
		`SELECT * FROM events WHERE deleted_at IS NULL ORDER BY published_at DESC LIMIT 50000`)
	if err != nil {
		return nil, fmt.Errorf("store: live events: %w", err)
	}
	for i := range events {
		if len(events[i].EntitiesRaw) > 0 {
			_ = json.Unmarshal(events[i].EntitiesRaw, &events[i].Entities)
		}
	}
	return events, nil
}

// highPriorityTodayThreshold is the fixed relevance_score cutoff for the
// dashboard's high-priority-today metric (spec.md §4.6: "relevance_score
// ≥ 0.7"), independent of the org's configurable alert threshold.
const highPriorityTodayThreshold = 0.7

// LocationCount is one row of the dashboard's top-10-locations breakdown.
type LocationCount struct {
	Location string `db:"location" json:"location"`
	Count    int    `db:"count" json:"count"`
}

// categoryCountRow/sentimentCountRow back the category/sentiment
// distribution queries before they're folded into the summary's maps.
type categoryCountRow struct {
	Category models.Category `db:"category"`
	Count    int             `db:"count"`
}

type sentimentCountRow struct {
	Sentiment models.Sentiment `db:"sentiment"`
	Count     int              `db:"count"`
}

// DashboardSummary aggregates counts for the dashboard_summary operation
// (spec.md §4.6).
type DashboardSummary struct {
	EventsToday          int                       `json:"events_today"`
	Events7d             int                       `json:"events_7d"`
	Events30d            int                       `json:"events_30d"`
	HighPriorityToday    int                       `json:"high_priority_today"`
	TopLocations7d       []LocationCount           `json:"top_locations_7d"`
	CategoryBreakdown7d  models.CategoryBreakdown  `json:"category_breakdown_7d"`
	SentimentBreakdown7d models.SentimentBreakdown `json:"sentiment_breakdown_7d"`
	ActiveDossiers       int                       `json:"active_dossiers"`
	TotalDossiers        int                       `json:"total_dossiers"`
}

// DashboardSummary computes the org's dashboard snapshot: today/7d/30d
// event counts, today's high-priority count at the fixed relevance_score
// ≥ 0.7 cutoff (not the org's configurable alert threshold), the top 10
// locations and the category/sentiment distributions over the trailing 7
// days, and the org's active/total dossier counts. "Active" means a
// dossier that has matched at least one event (event_count > 0) — spec.md
// §4.6 names the field but not its definition; see DESIGN.md.
func (s *Store) DashboardSummary(ctx context.Context, orgID string) (*DashboardSummary, error) {
	now := time.Now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since7d := now.Add(-7 * 24 * time.Hour)
	since30d := now.Add(-30 * 24 * time.Hour)

	d := &DashboardSummary{
		CategoryBreakdown7d:  models.CategoryBreakdown{},
		SentimentBreakdown7d: models.SentimentBreakdown{},
	}

	if err := s.DB.GetContext(ctx, &d.EventsToday,
		`SELECT count(*) FROM events WHERE deleted_at IS NULL AND published_at >= $1`, todayStart); err != nil {
		return nil, fmt.Errorf("store: dashboard summary: events today: %w", err)
	}
	if err := s.DB.GetContext(ctx, &d.Events7d,
		`SELECT count(*) FROM events WHERE deleted_at IS NULL AND published_at >= $1`, since7d); err != nil {
		return nil, fmt.Errorf("store: dashboard summary: events 7d: %w", err)
	}
	if err := s.DB.GetContext(ctx, &d.Events30d,
		`SELECT count(*) FROM events WHERE deleted_at IS NULL AND published_at >= $1`, since30d); err != nil {
		return nil, fmt.Errorf("store: dashboard summary: events 30d: %w", err)
	}
	if err := s.DB.GetContext(ctx, &d.HighPriorityToday,
		`SELECT count(*) FROM events WHERE deleted_at IS NULL AND published_at >= $1 AND relevance_score >= $2`,
		todayStart, highPriorityTodayThreshold); err != nil {
		return nil, fmt.Errorf("store: dashboard summary: high priority today: %w", err)
	}

	if err := s.DB.SelectContext(ctx, &d.TopLocations7d, `
SELECT loc AS location, count(*) AS count
FROM events, unnest(locations) AS loc
WHERE deleted_at IS NULL AND published_at >= $1
GROUP BY loc
ORDER BY count DESC
LIMIT 10
`, since7d); err != nil {
		return nil, fmt.Errorf("store: dashboard summary: top locations: %w", err)
	}

	var catRows []categoryCountRow
	if err := s.DB.SelectContext(ctx, &catRows, `
SELECT category, count(*) AS count FROM events
WHERE deleted_at IS NULL AND published_at >= $1
GROUP BY category
`, since7d); err != nil {
		return nil, fmt.Errorf("store: dashboard summary: category breakdown: %w", err)
	}
	for _, r := range catRows {
		d.CategoryBreakdown7d[r.Category] = r.Count
	}

	var sentRows []sentimentCountRow
	if err := s.DB.SelectContext(ctx, &sentRows, `
SELECT sentiment, count(*) AS count FROM events
WHERE deleted_at IS NULL AND published_at >= $1
GROUP BY sentiment
`, since7d); err != nil {
		return nil, fmt.Errorf("store: dashboard summary: sentiment breakdown: %w", err)
	}
	for _, r := range sentRows {
		d.SentimentBreakdown7d[r.Sentiment] = r.Count
	}

	if err := s.DB.GetContext(ctx, &d.TotalDossiers,
		`SELECT count(*) FROM dossiers WHERE org_id = $1`, orgID); err != nil {
		return nil, fmt.Errorf("store: dashboard summary: total dossiers: %w", err)
	}
	if err := s.DB.GetContext(ctx, &d.ActiveDossiers,
		`SELECT count(*) FROM dossiers WHERE org_id = $1 AND event_count > 0`, orgID); err != nil {
		return nil, fmt.Errorf("store: dashboard summary: active dossiers: %w", err)
	}

	return d, nil
}

// SoftDeleteExpiredEvents implements the retention sweep's first phase
// (spec.md §4.1, §4.8 retention_tick): events older than retentionDays are
// marked deleted_at, dropping out of every read path while staying in
// place for the grace window PurgeDeletedEvents later enforces. Clusters
// that would fall below two live members are dissolved the same way
// DeleteEvent handles it (spec.md §9 Open Question 3). Dossier stats are
// left to the periodic dossier_stats_refresh_tick (internal/dossier.RefreshAll),
// which re-walks the live event set on every run and so picks up the
// smaller pool on its own next pass.
func (s *Store) SoftDeleteExpiredEvents(ctx context.Context, retentionDays int) (int, error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: retention sweep begin tx: %w", err)
	}
	defer tx.Rollback()

	var ids []string
	selectQ := fmt.Sprintf(`SELECT id FROM events WHERE deleted_at IS NULL AND published_at < now() - interval '%d days'`, retentionDays)
	if err := tx.SelectContext(ctx, &ids, selectQ); err != nil {
		return 0, fmt.Errorf("store: retention sweep select: %w", err)
	}
	if len(ids) == 0 {
		return 0, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `UPDATE events SET deleted_at = now() WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("store: retention sweep mark deleted: %w", err)
	}

	var clusterIDs []string
	clusterQ := `SELECT DISTINCT cluster_id FROM events WHERE id = ANY($1) AND cluster_id IS NOT NULL`
	if err := tx.SelectContext(ctx, &clusterIDs, clusterQ, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("store: retention sweep cluster lookup: %w", err)
	}
	for _, cid := range clusterIDs {
		var remaining int
		if err := tx.GetContext(ctx, &remaining, `SELECT count(*) FROM events WHERE cluster_id = $1 AND deleted_at IS NULL`, cid); err != nil {
			return 0, fmt.Errorf("store: retention sweep remaining count: %w", err)
		}
		if remaining < 2 {
			if _, err := tx.ExecContext(ctx, `UPDATE events SET cluster_id = NULL WHERE cluster_id = $1`, cid); err != nil {
				return 0, fmt.Errorf("store: retention sweep dissolve members: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM clusters WHERE id = $1`, cid); err != nil {
				return 0, fmt.Errorf("store: retention sweep dissolve cluster: %w", err)
			}
		}
	}

	return len(ids), tx.Commit()
}

// PurgeDeletedEvents implements the retention sweep's second phase: events
// that have sat soft-deleted past the grace window are physically removed.
// Audit rows referencing them are untouched (spec.md §3 invariant 6: audit
// rows are immutable outside the retention sweep, and entity_id is a plain
// TEXT column with no foreign key, so the historical reference survives).
func (s *Store) PurgeDeletedEvents(ctx context.Context, graceDays int) (int, error) {
	q := fmt.Sprintf(`DELETE FROM events WHERE deleted_at IS NOT NULL AND deleted_at < now() - interval '%d days'`, graceDays)
	res, err := s.DB.ExecContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("store: purge deleted events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: purge deleted events rows affected: %w", err)
	}
	return int(n), nil
}
