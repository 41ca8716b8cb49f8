// Package ingest fetches raw items from configured Sources, normalizes
// them into candidate events, and hands them to the enrichment/dedup/
// dossier-match pipeline. Concurrency, the per-source circuit breaker, and
// scheduling live alongside the fetcher implementations here.
package ingest

import (
	"context"
	"time"
)

// RawItem is one fetched item before dedup/enrichment.
type RawItem struct {
	Title       string
	RawText     string
	URL         string
	PublishedAt time.Time
	Author      string
}

// SourceFetcher is the plug-in contract from spec.md §6. Only the RSS
// implementation ships today; news_api/gov_feed/crisis_feed/ngo_feed/
// social_public are named types in internal/models.SourceType awaiting a
// concrete fetcher.
type SourceFetcher interface {
	Fetch(ctx context.Context, sourceURL string) ([]RawItem, error)
}
