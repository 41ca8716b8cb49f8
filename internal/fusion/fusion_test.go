package fusion

import (
	"testing"
	"time"

	"github.com/harrowgate/sitrep/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWindow = 24 * time.Hour

func mkEvent(id, title, summary string, category models.Category, locations []string, at time.Time, priority, confidence float64) models.Event {
	return models.Event{
		ID:              id,
		Title:           title,
		Summary:         summary,
		Category:        category,
		Locations:       models.StringArray(locations),
		PublishedAt:     at,
		PriorityScore:   priority,
		ConfidenceScore: confidence,
	}
}

func TestSimSymmetric(t *testing.T) {
	base := time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)
	a := mkEvent("a", "Madrid transit strike halts subway lines", "Workers walked off the job citywide.", models.CategoryInfrastructure, []string{"madrid"}, base, 0.5, 0.5)
	b := mkEvent("b", "Subway strike paralyzes Madrid transit lines", "Citywide walkout stopped the subway.", models.CategoryInfrastructure, []string{"madrid"}, base.Add(90*time.Minute), 0.6, 0.6)

	assert.InDelta(t, Sim(a, b, testWindow), Sim(b, a, testWindow), 1e-9, "sim must be symmetric")
}

func TestSimEmptyEvents(t *testing.T) {
	base := time.Now()
	a := mkEvent("a", "", "", models.CategoryOther, nil, base, 0, 0)
	b := mkEvent("b", "", "", models.CategoryOther, nil, base, 0, 0)
	assert.Equal(t, 0.0, Sim(a, b, testWindow))
}

func TestSimDifferentCategoryGatesToZero(t *testing.T) {
	base := time.Now()
	a := mkEvent("a", "Protest erupts near parliament", "Crowd gathers.", models.CategoryProtest, []string{"brussels"}, base, 0.4, 0.4)
	b := mkEvent("b", "Protest erupts near parliament", "Crowd gathers.", models.CategoryCrime, []string{"brussels"}, base, 0.4, 0.4)
	assert.Equal(t, 0.0, Sim(a, b, testWindow))
}

func TestSimIdenticalTextWithoutCoordinatesOrEntities(t *testing.T) {
	base := time.Now()
	a := mkEvent("a", "Protest erupts near parliament building", "Crowd gathers outside parliament.", models.CategoryProtest, []string{"brussels"}, base, 0.4, 0.4)
	b := mkEvent("b", "Protest erupts near parliament building", "Crowd gathers outside parliament.", models.CategoryProtest, []string{"brussels"}, base, 0.4, 0.4)
	// No coordinates: L falls back to the name-overlap score; T is 1; no
	// entities, so E is 0.
	assert.InDelta(t, 0.4*locationNameFallbackScore+0.4*1.0+0.2*0.0, Sim(a, b, testWindow), 1e-9)
}

func TestClusterSingletonsStayUnclustered(t *testing.T) {
	base := time.Now()
	events := []models.Event{
		mkEvent("a", "Earthquake strikes coastal region overnight", "Tremors felt across the coast.", models.CategoryWeather, []string{"chile"}, base, 0.5, 0.5),
		mkEvent("b", "Parliament passes new trade agreement today", "Lawmakers approved the deal.", models.CategoryPolitical, []string{"london"}, base, 0.3, 0.3),
	}
	groups := Cluster(events, testWindow)
	require.Len(t, groups, 2)
	for _, g := range groups {
		assert.Len(t, g, 1)
	}
}

func TestClusterJoinsSimilarEvents(t *testing.T) {
	base := time.Date(2025, 11, 20, 8, 0, 0, 0, time.UTC)
	a := mkEvent("a", "Madrid transit workers launch citywide strike", "Workers launched a citywide strike in Madrid.", models.CategoryInfrastructure, []string{"madrid"}, base, 0.4, 0.4)
	b := mkEvent("b", "Citywide strike launched by Madrid transit workers", "A citywide strike was launched by Madrid workers.", models.CategoryInfrastructure, []string{"madrid"}, base.Add(2*time.Hour), 0.6, 0.6)

	groups := Cluster([]models.Event{a, b}, testWindow)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0], 2)
}

func TestClusterRespectsTimeWindow(t *testing.T) {
	base := time.Date(2025, 11, 20, 8, 0, 0, 0, time.UTC)
	a := mkEvent("a", "Madrid transit workers launch citywide strike", "Workers launched a citywide strike in Madrid.", models.CategoryInfrastructure, []string{"madrid"}, base, 0.4, 0.4)
	b := mkEvent("b", "Citywide strike launched by Madrid transit workers", "A citywide strike was launched by Madrid workers.", models.CategoryInfrastructure, []string{"madrid"}, base.Add(72*time.Hour), 0.6, 0.6)

	groups := Cluster([]models.Event{a, b}, testWindow)
	require.Len(t, groups, 2, "events further apart than the fusion window must not join")
}

func TestClusterIdempotentOnUnchangedInput(t *testing.T) {
	base := time.Date(2025, 11, 20, 8, 0, 0, 0, time.UTC)
	a := mkEvent("a", "Madrid transit workers launch citywide strike", "Workers launched a citywide strike in Madrid.", models.CategoryInfrastructure, []string{"madrid"}, base, 0.4, 0.4)
	b := mkEvent("b", "Citywide strike launched by Madrid transit workers", "A citywide strike was launched by Madrid workers.", models.CategoryInfrastructure, []string{"madrid"}, base.Add(time.Hour), 0.6, 0.6)

	first := Cluster([]models.Event{a, b}, testWindow)
	second := Cluster([]models.Event{b, a}, testWindow)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Len(t, first[0], len(second[0]))
}

func TestSynthesizePicksHighestConfidenceAsRepresentative(t *testing.T) {
	base := time.Date(2025, 11, 20, 8, 0, 0, 0, time.UTC)
	a := mkEvent("a", "early low-confidence title", "early summary", models.CategoryProtest, []string{"brussels"}, base, 0.4, 0.3)
	b := mkEvent("b", "later high-confidence title", "later summary", models.CategoryProtest, []string{"brussels"}, base.Add(3*time.Hour), 0.9, 0.8)

	c := synthesize([]models.Event{a, b})
	assert.Equal(t, 2, c.MemberCount)
	assert.Equal(t, 0.9, c.TopPriority)
	assert.Equal(t, base, c.FirstEventAt)
	assert.Equal(t, base.Add(3*time.Hour), c.LastEventAt)
	assert.Equal(t, "b", c.CanonicalEventID)
	assert.Equal(t, "later high-confidence title", c.Title)
	assert.Equal(t, "later summary", c.Summary)
	assert.Equal(t, models.TrendUnknown, c.StabilityTrend)
	assert.NotEmpty(t, c.ID)
}

func TestJaccardUnion(t *testing.T) {
	assert.Equal(t, 0.0, jaccard(nil, nil))
	assert.InDelta(t, 1.0, jaccard([]string{"Madrid"}, []string{"madrid"}), 1e-9)
	assert.InDelta(t, 0.5, jaccard([]string{"a", "b"}, []string{"b", "c"}), 1e-9)
}

func TestLocationScoreHaversineDecaysWithDistance(t *testing.T) {
	madridLat, madridLon := 40.4168, -3.7038
	nearbyLat, nearbyLon := 40.45, -3.7
	farLat, farLon := 48.8566, 2.3522 // Paris

	base := time.Now()
	origin := mkEvent("o", "", "", models.CategoryOther, nil, base, 0, 0)
	origin.Latitude, origin.Longitude = &madridLat, &madridLon

	near := mkEvent("n", "", "", models.CategoryOther, nil, base, 0, 0)
	near.Latitude, near.Longitude = &nearbyLat, &nearbyLon

	far := mkEvent("f", "", "", models.CategoryOther, nil, base, 0, 0)
	far.Latitude, far.Longitude = &farLat, &farLon

	assert.Greater(t, locationScore(origin, near), locationScore(origin, far))
	assert.Equal(t, 0.0, locationScore(origin, far))
}

func TestLocationScoreFallsBackToNameOverlap(t *testing.T) {
	base := time.Now()
	a := mkEvent("a", "", "", models.CategoryOther, []string{"Madrid"}, base, 0, 0)
	b := mkEvent("b", "", "", models.CategoryOther, []string{"madrid"}, base, 0, 0)
	assert.Equal(t, locationNameFallbackScore, locationScore(a, b))
}
