package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harrowgate/sitrep/internal/models"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// EnrichFunc enriches a candidate event in place (internal/enrichment.Service.Enrich).
// src is the event's originating Source, needed for the confidence-score
// formula's source_trust term (spec.md §4.2).
type EnrichFunc func(ctx context.Context, e *models.Event, src models.Source) error

// PostIngestFunc runs after a new event is persisted — the dossier matcher
// and the realtime broker hook in here (spec.md's supplemented
// dossier-driven-alerting control flow, see SPEC_FULL.md).
type PostIngestFunc func(ctx context.Context, e *models.Event)

// Store is the subset of store.Store the ingest worker needs, declared
// locally to keep this package's dependency surface explicit.
type Store interface {
	ListEnabledSources(ctx context.Context) ([]models.Source, error)
	UpsertEvent(ctx context.Context, e *models.Event) (bool, error)
	RecordFetchSuccess(ctx context.Context, sourceID string, at time.Time) error
	RecordFetchFailure(ctx context.Context, sourceID string, threshold int, at time.Time) error
}

// Pool runs one fetch pass across every enabled Source, bounding
// in-flight fetches per spec.md §5 and guarding each source behind its own
// circuit breaker (spec.md §4.3: open after 5 consecutive failures,
// half-open probe every 10 minutes).
type Pool struct {
	store           Store
	fetchers        map[models.SourceType]SourceFetcher
	enrich          EnrichFunc
	postIngest      PostIngestFunc
	maxInFlight     int
	failureThreshold int
	halfOpenAfter   time.Duration
	breakers        map[string]*gobreaker.CircuitBreaker
	log             zerolog.Logger
}

func NewPool(store Store, enrich EnrichFunc, postIngest PostIngestFunc, maxInFlight, failureThreshold int, halfOpenAfter time.Duration, log zerolog.Logger) *Pool {
	return &Pool{
		store:            store,
		fetchers:         map[models.SourceType]SourceFetcher{models.SourceTypeRSS: NewRSSFetcher()},
		enrich:           enrich,
		postIngest:       postIngest,
		maxInFlight:      maxInFlight,
		failureThreshold: failureThreshold,
		halfOpenAfter:    halfOpenAfter,
		breakers:         make(map[string]*gobreaker.CircuitBreaker),
		log:              log,
	}
}

func (p *Pool) breakerFor(sourceID string) *gobreaker.CircuitBreaker {
	if b, ok := p.breakers[sourceID]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    sourceID,
		Timeout: p.halfOpenAfter,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(p.failureThreshold)
		},
	})
	p.breakers[sourceID] = b
	return b
}

// RunOnce fetches every enabled source, bounding concurrency to
// maxInFlight, and returns the total number of new events ingested.
func (p *Pool) RunOnce(ctx context.Context) (int, error) {
	sources, err := p.store.ListEnabledSources(ctx)
	if err != nil {
		return 0, fmt.Errorf("ingest: list sources: %w", err)
	}

	sem := make(chan struct{}, p.maxInFlight)
	results := make(chan int, len(sources))
	var wg sync.WaitGroup
	for _, src := range sources {
		src := src
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			results <- p.fetchSource(ctx, src)
		}()
	}
	wg.Wait()
	close(results)

	total := 0
	for n := range results {
		total += n
	}
	return total, nil
}

func (p *Pool) fetchSource(ctx context.Context, src models.Source) int {
	fetcher, ok := p.fetchers[src.Type]
	if !ok {
		p.log.Warn().Str("source", src.Name).Str("type", string(src.Type)).Msg("ingest: no fetcher registered for source type")
		return 0
	}
	breaker := p.breakerFor(src.ID)

	result, err := breaker.Execute(func() (interface{}, error) {
		return fetcher.Fetch(ctx, src.URL)
	})
	if err != nil {
		p.log.Warn().Err(err).Str("source", src.Name).Msg("ingest: fetch failed")
		_ = p.store.RecordFetchFailure(ctx, src.ID, p.failureThreshold, time.Now().UTC())
		return 0
	}
	items, _ := result.([]RawItem)
	_ = p.store.RecordFetchSuccess(ctx, src.ID, time.Now().UTC())

	count := 0
	for _, item := range items {
		event := Normalize(src.ID, item)
		if p.enrich != nil {
			if err := p.enrich(ctx, event, src); err != nil {
				p.log.Warn().Err(err).Msg("ingest: enrichment error")
			}
		}
		inserted, err := p.store.UpsertEvent(ctx, event)
		if err != nil {
			p.log.Warn().Err(err).Msg("ingest: upsert event failed")
			continue
		}
		if inserted {
			count++
			if p.postIngest != nil {
				p.postIngest(ctx, event)
			}
		}
	}
	return count
}

// maxFutureSkew is the tolerance before a published_at timestamp is
// clamped to now (spec.md §9 Open Question 2, resolved as clamp-and-flag).
const maxFutureSkew = 5 * time.Minute

// Normalize converts a fetched RawItem into a candidate Event: computes
// the dedup hash, clamps future-dated published_at values, and leaves
// enrichment fields zero for the enrichment pass to fill in.
func Normalize(sourceID string, item RawItem) *models.Event {
	publishedAt := item.PublishedAt
	clockSkew := false
	if publishedAt.After(time.Now().UTC().Add(maxFutureSkew)) {
		clockSkew = true
		publishedAt = time.Now().UTC()
	}
	return &models.Event{
		ID:            uuid.NewString(),
		SourceID:      sourceID,
		DedupHash:     dedupHash(item.URL, item.Title),
		Title:         item.Title,
		RawText:       item.RawText,
		URL:           item.URL,
		PublishedAt:   publishedAt,
		ClockSkewFlag: clockSkew,
		SourceCount:   1,
	}
}

// dedupHash identifies re-fetches of the same item so UpsertEvent can stay
// idempotent (spec.md §8: re-ingesting the same item must not duplicate
// it). URL is the primary key component; title is mixed in as a fallback
// signal for feeds that reuse a tracking URL across distinct items.
func dedupHash(url, title string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(url)) + "|" + strings.ToLower(strings.TrimSpace(title))))
	return hex.EncodeToString(h[:])
}
