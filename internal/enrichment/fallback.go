package enrichment

import (
	"context"
	"strings"

	"github.com/harrowgate/sitrep/internal/models"
)

// FallbackClient is the deterministic Capability implementation required
// by spec.md §4.2 ("the system must remain functional without [the LLM]").
// It uses a small gazetteer/lexicon/keyword-dictionary approach rather than
// any inference, so its output is fully reproducible.
type FallbackClient struct {
	gazetteer  []string
	positive   []string
	negative   []string
	categories map[models.Category][]string
}

// NewFallbackClient builds the deterministic client with a baseline
// gazetteer/lexicon keyed to the real 12-value category enum (spec.md §3),
// so its Categorize output always lands on a value the rest of the system
// recognizes. Callers may extend these lists (e.g. from OrgSettings or a
// future ops runbook) without changing the interface.
func NewFallbackClient() *FallbackClient {
	return &FallbackClient{
		gazetteer: []string{
			"ukraine", "russia", "gaza", "israel", "syria", "yemen", "sudan",
			"taiwan", "china", "united states", "washington", "beijing",
			"moscow", "kyiv", "london", "paris", "berlin", "tokyo", "seoul",
			"pyongyang", "tehran", "baghdad", "kabul",
		},
		positive: []string{"agreement", "ceasefire", "recovery", "aid", "rescue", "peace", "growth"},
		negative: []string{"attack", "crisis", "conflict", "explosion", "casualties", "disaster", "collapse", "sanction"},
		categories: map[models.Category][]string{
			models.CategoryProtest:          {"protest", "demonstration", "rally", "march", "sit-in"},
			models.CategoryCrime:            {"robbery", "assault", "shooting", "arrested", "homicide", "theft"},
			models.CategoryReligiousFreedom: {"church", "mosque", "synagogue", "blasphemy", "persecution", "religious"},
			models.CategoryCulturalTension:  {"ethnic", "sectarian", "xenophobia", "hate crime", "communal"},
			models.CategoryPolitical:        {"election", "parliament", "president", "minister", "government", "coup"},
			models.CategoryInfrastructure:   {"power outage", "bridge", "pipeline", "transit", "blackout", "grid"},
			models.CategoryHealth:           {"outbreak", "virus", "hospital", "disease", "epidemic"},
			models.CategoryMigration:        {"migrant", "refugee", "asylum", "border crossing", "deportation"},
			models.CategoryEconomic:         {"market", "inflation", "trade", "recession", "sanction", "currency"},
			models.CategoryWeather:          {"earthquake", "flood", "hurricane", "wildfire", "storm", "drought"},
			models.CategoryCommunityEvent:   {"festival", "parade", "ceremony", "fair", "celebration"},
		},
	}
}

func (f *FallbackClient) ExtractEntities(ctx context.Context, text string) ([]models.Entity, error) {
	lower := strings.ToLower(text)
	var entities []models.Entity
	for _, place := range f.gazetteer {
		if strings.Contains(lower, place) {
			entities = append(entities, models.Entity{Text: strings.Title(place), Type: "location"})
		}
	}
	return entities, nil
}

func (f *FallbackClient) Summarize(ctx context.Context, text string) (string, error) {
	sentences := strings.Split(text, ".")
	var out []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == 2 {
			break
		}
	}
	return strings.Join(out, ". ") + ".", nil
}

func (f *FallbackClient) Sentiment(ctx context.Context, text string) (models.Sentiment, error) {
	lower := strings.ToLower(text)
	pos, neg := 0, 0
	for _, w := range f.positive {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range f.negative {
		if strings.Contains(lower, w) {
			neg++
		}
	}
	switch {
	case neg > pos:
		return models.SentimentNegative, nil
	case pos > neg:
		return models.SentimentPositive, nil
	default:
		return models.SentimentNeutral, nil
	}
}

// Categorize scans the text against each category's keyword list in
// models.AllCategories order and returns the first match, defaulting to
// "other" when nothing matches (spec.md §4.2: "keyword→category mapping
// with other as terminal default").
func (f *FallbackClient) Categorize(ctx context.Context, text string) (models.Category, error) {
	lower := strings.ToLower(text)
	for _, cat := range models.AllCategories {
		for _, kw := range f.categories[cat] {
			if strings.Contains(lower, kw) {
				return cat, nil
			}
		}
	}
	return models.CategoryOther, nil
}
