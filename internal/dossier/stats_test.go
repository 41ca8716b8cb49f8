package dossier

import (
	"context"
	"testing"
	"time"

	"github.com/harrowgate/sitrep/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatsStore struct {
	dossiers []models.Dossier
	events   []models.Event
	set      map[string]DossierStats
}

func (f *fakeStatsStore) AllDossiers(ctx context.Context) ([]models.Dossier, error) {
	return f.dossiers, nil
}

func (f *fakeStatsStore) LiveEvents(ctx context.Context) ([]models.Event, error) {
	return f.events, nil
}

func (f *fakeStatsStore) SetDossierStats(ctx context.Context, dossierID string, stats DossierStats) error {
	if f.set == nil {
		f.set = map[string]DossierStats{}
	}
	f.set[dossierID] = stats
	return nil
}

func TestRefreshAllRecomputesFromLiveEvents(t *testing.T) {
	now := time.Now().UTC()
	recent := now.Add(-time.Hour)
	old := now.Add(-60 * 24 * time.Hour)
	store := &fakeStatsStore{
		dossiers: []models.Dossier{
			{ID: "d1", OrgID: "org-a", SubjectType: models.SubjectLocation, Locations: models.StringArray{"brussels"}},
		},
		events: []models.Event{
			{ID: "e1", Locations: models.StringArray{"Brussels"}, Category: models.CategoryProtest, Sentiment: models.SentimentNegative, PublishedAt: old},
			{ID: "e2", Locations: models.StringArray{"Brussels"}, Category: models.CategoryCrime, Sentiment: models.SentimentNegative, PublishedAt: recent},
			{ID: "e3", Locations: models.StringArray{"Madrid"}, Category: models.CategoryCrime, PublishedAt: recent},
		},
	}

	n, err := RefreshAll(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := store.set["d1"]
	assert.Equal(t, 2, got.EventCount)
	assert.Equal(t, 1, got.Count7d)
	assert.Equal(t, 1, got.Count30d)
	require.NotNil(t, got.LastEventAt)
	assert.True(t, got.LastEventAt.Equal(recent))
	assert.Equal(t, 1, got.CategoryBreakdown[models.CategoryProtest])
	assert.Equal(t, 1, got.CategoryBreakdown[models.CategoryCrime])
	assert.Equal(t, 2, got.SentimentBreakdown[models.SentimentNegative])
}

func TestRefreshAllZeroesOutDossiersWithNoLiveMatches(t *testing.T) {
	store := &fakeStatsStore{
		dossiers: []models.Dossier{
			{ID: "d1", OrgID: "org-a", SubjectType: models.SubjectLocation, Locations: models.StringArray{"brussels"}},
		},
		events: []models.Event{
			{ID: "e1", Locations: models.StringArray{"Madrid"}, Category: models.CategoryOther, PublishedAt: time.Now()},
		},
	}

	_, err := RefreshAll(context.Background(), store)
	require.NoError(t, err)

	got := store.set["d1"]
	assert.Equal(t, 0, got.EventCount)
	assert.Nil(t, got.LastEventAt)
}
