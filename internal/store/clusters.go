package store

import (
	"context"
	"fmt"
	"time"

	"github.com/harrowgate/sitrep/internal/models"
)

// CreateCluster inserts a new cluster row.
func (s *Store) CreateCluster(ctx context.Context, c *models.Cluster) error {
	_, err := s.DB.NamedExecContext(ctx, `
INSERT INTO clusters (id, canonical_event_id, title, summary, member_count, top_priority, first_event_at, last_event_at, stability_trend)
VALUES (:id, :canonical_event_id, :title, :summary, :member_count, :top_priority, :first_event_at, :last_event_at, :stability_trend)
`, c)
	if err != nil {
		return fmt.Errorf("store: create cluster: %w", err)
	}
	return nil
}

// clusterMemberStats is the member_count/top_priority/span aggregate over a
// cluster's current member events.
type clusterMemberStats struct {
	Count    int       `db:"cnt"`
	Top      float64   `db:"top"`
	First    time.Time `db:"first"`
	Last     time.Time `db:"last"`
}

// clusterRepresentative is the member with the highest confidence_score,
// whose title/summary the merged cluster record is taken from (spec.md
// §4.4).
type clusterRepresentative struct {
	ID      string `db:"id"`
	Title   string `db:"title"`
	Summary string `db:"summary"`
}

// RecomputeClusterStats recomputes a cluster's member_count, top_priority,
// first/last_event_at, and representative title/summary/
// canonical_event_id (from the highest-confidence member) from its current
// member events, computes a trailing-vs-prior-window stability trend, and
// stamps every member event's source_count/multi_source_boost to match
// (spec.md §4.4, §3).
func (s *Store) RecomputeClusterStats(ctx context.Context, clusterID string) error {
	var stats clusterMemberStats
	err := s.DB.GetContext(ctx, &stats, `
SELECT count(*) AS cnt, max(priority_score) AS top, min(published_at) AS first, max(published_at) AS last
FROM events WHERE cluster_id = $1
`, clusterID)
	if err != nil {
		return fmt.Errorf("store: recompute cluster stats: member stats: %w", err)
	}

	var rep clusterRepresentative
	err = s.DB.GetContext(ctx, &rep, `
SELECT id, title, summary FROM events WHERE cluster_id = $1 ORDER BY confidence_score DESC LIMIT 1
`, clusterID)
	if err != nil {
		return fmt.Errorf("store: recompute cluster stats: representative: %w", err)
	}

	trend, err := s.clusterStabilityTrend(ctx, clusterID)
	if err != nil {
		return fmt.Errorf("store: recompute cluster stats: trend: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
UPDATE clusters SET
	canonical_event_id = $2,
	title = $3,
	summary = $4,
	member_count = $5,
	top_priority = $6,
	first_event_at = $7,
	last_event_at = $8,
	stability_trend = $9,
	updated_at = now()
WHERE id = $1
`, clusterID, rep.ID, rep.Title, rep.Summary, stats.Count, stats.Top, stats.First, stats.Last, trend)
	if err != nil {
		return fmt.Errorf("store: recompute cluster stats: update cluster: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
UPDATE events SET source_count = $2, multi_source_boost = $3
WHERE cluster_id = $1
`, clusterID, stats.Count, stats.Count >= 2)
	if err != nil {
		return fmt.Errorf("store: recompute cluster stats: stamp events: %w", err)
	}
	return nil
}

// stabilityWindow is the trailing/prior window width compared to derive a
// cluster's growth trend (spec.md §4.4).
const stabilityWindow = 24 * time.Hour

// clusterStabilityTrend compares the count of member events published in
// the trailing window against the count published in the window before
// that: more than 150% of the prior count is worsening, less than 67% is
// improving, otherwise stable. A cluster with no prior-window history
// reports unknown (spec.md §4.4).
func (s *Store) clusterStabilityTrend(ctx context.Context, clusterID string) (models.StabilityTrend, error) {
	now := time.Now().UTC()
	var trailing, prior int
	if err := s.DB.GetContext(ctx, &trailing, `
SELECT count(*) FROM events WHERE cluster_id = $1 AND published_at >= $2
`, clusterID, now.Add(-stabilityWindow)); err != nil {
		return "", err
	}
	if err := s.DB.GetContext(ctx, &prior, `
SELECT count(*) FROM events WHERE cluster_id = $1 AND published_at >= $2 AND published_at < $3
`, clusterID, now.Add(-2*stabilityWindow), now.Add(-stabilityWindow)); err != nil {
		return "", err
	}

	switch {
	case prior == 0:
		return models.TrendUnknown, nil
	case float64(trailing) > 1.5*float64(prior):
		return models.TrendWorsening, nil
	case float64(trailing) < 0.67*float64(prior):
		return models.TrendImproving, nil
	default:
		return models.TrendStable, nil
	}
}

// GetCluster fetches a cluster by id.
func (s *Store) GetCluster(ctx context.Context, id string) (*models.Cluster, error) {
	var c models.Cluster
	if err := s.DB.GetContext(ctx, &c, `SELECT * FROM clusters WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("store: get cluster: %w", err)
	}
	return &c, nil
}

// ListClusters returns the most recently active clusters.
func (s *Store) ListClusters(ctx context.Context, limit int) ([]models.Cluster, error) {
	if limit <= 0 {
		limit = 50
	}
	var clusters []models.Cluster
	err := s.DB.SelectContext(ctx, &clusters, `SELECT * FROM clusters ORDER BY last_event_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list clusters: %w", err)
	}
	return clusters, nil
}

// DashboardTrends buckets event counts by hour over the given window, for
// the dashboard_trends operation.
type TrendBucket struct {
	Bucket time.Time `db:"bucket"`
	Count  int       `db:"count"`
}

func (s *Store) DashboardTrends(ctx context.Context, since time.Time) ([]TrendBucket, error) {
	var buckets []TrendBucket
	err := s.DB.SelectContext(ctx, &buckets, `
SELECT date_trunc('hour', published_at) AS bucket, count(*) AS count
FROM events
WHERE published_at >= $1
GROUP BY bucket
ORDER BY bucket ASC
`, since)
	if err != nil {
		return nil, fmt.Errorf("store: dashboard trends: %w", err)
	}
	return buckets, nil
}
