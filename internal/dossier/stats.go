package dossier

import (
	"context"
	"fmt"
	"time"

	"github.com/harrowgate/sitrep/internal/models"
)

// DossierStats is a from-scratch recomputation of a dossier's derived
// fields (spec.md §3), passed to SetDossierStats as a unit.
type DossierStats struct {
	EventCount         int
	LastEventAt        *time.Time
	Count7d            int
	Count30d           int
	CategoryBreakdown  models.CategoryBreakdown
	SentimentBreakdown models.SentimentBreakdown
}

// StatsStore is the subset of store.Store the periodic stats-refresh tick
// needs.
type StatsStore interface {
	AllDossiers(ctx context.Context) ([]models.Dossier, error)
	LiveEvents(ctx context.Context) ([]models.Event, error)
	SetDossierStats(ctx context.Context, dossierID string, stats DossierStats) error
}

// RefreshAll runs the dossier_stats_refresh_tick job from spec.md §4.8: a
// from-scratch recomputation against the live event set, independent of
// (and correcting for drift in) the incremental updates RecordDossierMatch
// performs inline with matching. This is also how a retention sweep's
// soft-deletions eventually get reflected: Matcher never decrements
// counters on its own, so a shrinking live-event set only shows up on the
// next run of this pass.
func RefreshAll(ctx context.Context, store StatsStore) (int, error) {
	dossiers, err := store.AllDossiers(ctx)
	if err != nil {
		return 0, fmt.Errorf("dossier: refresh all, load dossiers: %w", err)
	}
	events, err := store.LiveEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("dossier: refresh all, load events: %w", err)
	}

	now := time.Now().UTC()
	since7d := now.Add(-7 * 24 * time.Hour)
	since30d := now.Add(-30 * 24 * time.Hour)

	n := 0
	for _, d := range dossiers {
		stats := DossierStats{
			CategoryBreakdown:  models.CategoryBreakdown{},
			SentimentBreakdown: models.SentimentBreakdown{},
		}
		for i := range events {
			ev := &events[i]
			if !matches1(d, ev) {
				continue
			}
			stats.EventCount++
			if ev.PublishedAt.After(since7d) {
				stats.Count7d++
			}
			if ev.PublishedAt.After(since30d) {
				stats.Count30d++
			}
			if stats.LastEventAt == nil || ev.PublishedAt.After(*stats.LastEventAt) {
				t := ev.PublishedAt
				stats.LastEventAt = &t
			}
			stats.CategoryBreakdown[ev.Category]++
			stats.SentimentBreakdown[ev.Sentiment]++
		}
		if err := store.SetDossierStats(ctx, d.ID, stats); err != nil {
			return n, fmt.Errorf("dossier: set stats for %s: %w", d.ID, err)
		}
		n++
	}
	return n, nil
}
