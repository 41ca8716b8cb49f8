// Package enrichment turns a raw ingested event into an enriched one:
// entity extraction, summarization, sentiment, categorization, geocoding,
// and the three deterministic scoring formulas from spec.md §4.2.
//
// The LLM-backed and deterministic-fallback implementations are expressed
// as a single Capability interface (spec.md §9's design note: "polymorphism
// over enrichment backends... a small capability interface with two
// implementations", generalizing the teacher's internal/ai.go call-with-
// timeout pipeline rather than a class hierarchy).
package enrichment

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/harrowgate/sitrep/internal/models"
	"github.com/rs/zerolog"
)

// Capability is the enrichment backend contract from spec.md §6.
type Capability interface {
	ExtractEntities(ctx context.Context, text string) ([]models.Entity, error)
	Summarize(ctx context.Context, text string) (string, error)
	Sentiment(ctx context.Context, text string) (models.Sentiment, error)
	Categorize(ctx context.Context, text string) (models.Category, error)
}

// Geocoder resolves a place name to coordinates (spec.md §6). Enrichment
// treats geocoding as best-effort: a failure never blocks enrichment.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (lat, lon float64, ok bool, err error)
}

// Service runs the full enrich(raw_event) -> enriched_event pipeline.
type Service struct {
	primary  Capability
	fallback Capability
	geocoder Geocoder
	log      zerolog.Logger
	timeout  time.Duration
}

func NewService(primary, fallback Capability, geocoder Geocoder, log zerolog.Logger, timeout time.Duration) *Service {
	return &Service{primary: primary, fallback: fallback, geocoder: geocoder, log: log, timeout: timeout}
}

// Enrich fills in the derived fields of e in place and records in
// e.EnrichmentDegraded whether the primary capability was absent or failed
// for any subpass, so that the fallback served it (spec.md §7: "degradations are silent to end
// users but visible in health and metrics"). src is the event's Source
// record, consulted only for its TrustScore (the confidence_score
// formula's source_trust term, spec.md §4.2).
func (s *Service) Enrich(ctx context.Context, e *models.Event, src models.Source) error {
	cleaned := CleanHTML(e.RawText)

	degraded := false

	entities, err := s.callEntities(ctx, cleaned)
	if err != nil {
		degraded = true
	}
	e.Entities = entities

	summary, err := s.callSummarize(ctx, cleaned)
	if err != nil {
		degraded = true
	}
	e.Summary = summary

	sentiment, err := s.callSentiment(ctx, cleaned)
	if err != nil {
		degraded = true
	}
	e.Sentiment = sentiment

	category, err := s.callCategorize(ctx, cleaned)
	if err != nil {
		degraded = true
	}
	e.Category = category

	locations := extractLocationNames(entities)
	e.Locations = locations
	if s.geocoder != nil && len(locations) > 0 {
		gctx, cancel := context.WithTimeout(ctx, s.timeout)
		lat, lon, ok, gerr := s.geocoder.Geocode(gctx, locations[0])
		cancel()
		if gerr == nil && ok {
			e.Latitude = &lat
			e.Longitude = &lon
		}
	}

	if e.SourceCount == 0 {
		e.SourceCount = 1
	}
	e.EnrichmentDegraded = degraded
	e.ConfidenceScore = ConfidenceScore(e, src, degraded)
	e.RelevanceScore = RelevanceScore(e)
	e.PriorityScore = PriorityScore(e)
	return nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) callEntities(ctx context.Context, text string) ([]models.Entity, error) {
	cctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if s.primary != nil {
		if ents, err := s.primary.ExtractEntities(cctx, text); err == nil {
			return ents, nil
		} else {
			s.log.Warn().Err(err).Msg("enrichment: primary ExtractEntities failed, falling back")
		}
	}
	ents, err := s.fallback.ExtractEntities(ctx, text)
	return ents, degradedErr(err)
}

// errFallbackUsed marks a subpass whose value came from the fallback
// because the primary capability was absent or failed.
var errFallbackUsed = errors.New("enrichment: served by fallback")

// degradedErr returns the fallback's own error, or errFallbackUsed when the
// fallback succeeded, so every fallback-served subpass counts as degraded.
func degradedErr(err error) error {
	if err != nil {
		return err
	}
	return errFallbackUsed
}

func (s *Service) callSummarize(ctx context.Context, text string) (string, error) {
	cctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if s.primary != nil {
		if sum, err := s.primary.Summarize(cctx, text); err == nil {
			return sum, nil
		} else {
			s.log.Warn().Err(err).Msg("enrichment: primary Summarize failed, falling back")
		}
	}
	sum, err := s.fallback.Summarize(ctx, text)
	return sum, degradedErr(err)
}

func (s *Service) callSentiment(ctx context.Context, text string) (models.Sentiment, error) {
	cctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if s.primary != nil {
		if sent, err := s.primary.Sentiment(cctx, text); err == nil {
			return sent, nil
		} else {
			s.log.Warn().Err(err).Msg("enrichment: primary Sentiment failed, falling back")
		}
	}
	sent, err := s.fallback.Sentiment(ctx, text)
	return sent, degradedErr(err)
}

func (s *Service) callCategorize(ctx context.Context, text string) (models.Category, error) {
	cctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if s.primary != nil {
		if cat, err := s.primary.Categorize(cctx, text); err == nil {
			return cat, nil
		} else {
			s.log.Warn().Err(err).Msg("enrichment: primary Categorize failed, falling back")
		}
	}
	cat, err := s.fallback.Categorize(ctx, text)
	return cat, degradedErr(err)
}

func extractLocationNames(entities []models.Entity) []string {
	var out []string
	for _, e := range entities {
		if e.Type == "location" {
			out = append(out, e.Text)
		}
	}
	return out
}

// textLengthSaturation is the character count at which text_length_factor
// reaches 1.0 (spec.md §4.2).
const textLengthSaturation = 600

// defaultSourceTrust is used when a Source carries no explicit TrustScore.
const defaultSourceTrust = 0.5

// ConfidenceScore is the literal weighted formula from spec.md §4.2:
// `0.25*text_length_factor + 0.25*entity_density_factor + 0.30*category_specificity + 0.20*source_trust`,
// clipped to [0,1]. A degraded enrichment pass (LLM unavailable) still runs
// this formula over whatever the fallback produced — degradation shows up
// naturally through thinner entities/categorization, not a separate
// penalty term.
func ConfidenceScore(e *models.Event, src models.Source, degraded bool) float64 {
	textLengthFactor := math.Min(1.0, float64(len(strings.TrimSpace(e.RawText)))/textLengthSaturation)
	entityDensityFactor := math.Min(1.0, float64(len(e.Entities))/8.0)
	categorySpecificity := 0.0
	if e.Category != "" && e.Category != models.CategoryOther {
		categorySpecificity = 1.0
	}
	sourceTrust := src.TrustScore
	if sourceTrust == 0 {
		sourceTrust = defaultSourceTrust
	}
	return clamp01(0.25*textLengthFactor + 0.25*entityDensityFactor + 0.30*categorySpecificity + 0.20*sourceTrust)
}

// RelevanceScore is spec.md §4.2's formula: base 0.4, +0.3 when the
// category is in the safety set, +0.1 when sentiment is negative.
func RelevanceScore(e *models.Event) float64 {
	score := 0.4
	if models.SafetyCategories[e.Category] {
		score += 0.3
	}
	if e.Sentiment == models.SentimentNegative {
		score += 0.1
	}
	return clamp01(score)
}

// PriorityScore is spec.md §4.2's formula:
// `0.5*relevance + 0.3*confidence + 0.1*recency_factor + 0.1*multi_source_factor`.
// recency_factor decays linearly to 0 over 72 hours; multi_source_factor
// saturates once source_count reaches 4 (three additional corroborating
// sources beyond the first).
func PriorityScore(e *models.Event) float64 {
	ageHours := time.Since(e.PublishedAt).Hours()
	recencyFactor := math.Max(0, 1-ageHours/72)
	multiSourceFactor := math.Min(1.0, float64(e.SourceCount-1)/3.0)
	return clamp01(0.5*e.RelevanceScore + 0.3*e.ConfidenceScore + 0.1*recencyFactor + 0.1*multiSourceFactor)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
