package graphql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harrowgate/sitrep/internal/models"
	"github.com/harrowgate/sitrep/internal/store"
	"github.com/stretchr/testify/require"
)

type fakeDataSource struct {
	events   []models.Event
	clusters []models.Cluster
	dossiers []models.Dossier
}

func (f *fakeDataSource) ListEvents(ctx context.Context, filter store.EventFilter) ([]models.Event, error) {
	return f.events, nil
}

func (f *fakeDataSource) ListClusters(ctx context.Context, limit int) ([]models.Cluster, error) {
	return f.clusters, nil
}

func (f *fakeDataSource) ListDossiers(ctx context.Context, orgID string) ([]models.Dossier, error) {
	return f.dossiers, nil
}

func doQuery(t *testing.T, h http.Handler, query string) map[string]interface{} {
	t.Helper()
	body, err := json.Marshal(map[string]string{"query": query})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestQueryEventsResolvesFromDataSource(t *testing.T) {
	ds := &fakeDataSource{events: []models.Event{{ID: "ev-1", Title: "Unrest reported downtown"}}}
	h := NewHandler(ds)

	out := doQuery(t, h, `{ events(limit: 5) { id title } }`)
	require.Nil(t, out["errors"])

	data := out["data"].(map[string]interface{})
	events := data["events"].([]interface{})
	require.Len(t, events, 1)
	ev := events[0].(map[string]interface{})
	require.Equal(t, "ev-1", ev["id"])
	require.Equal(t, "Unrest reported downtown", ev["title"])
}

func TestQueryClustersDefaultsLimit(t *testing.T) {
	ds := &fakeDataSource{clusters: []models.Cluster{{ID: "cl-1", Title: "Cluster one", MemberCount: 3}}}
	h := NewHandler(ds)

	out := doQuery(t, h, `{ clusters { id member_count } }`)
	require.Nil(t, out["errors"])

	data := out["data"].(map[string]interface{})
	clusters := data["clusters"].([]interface{})
	require.Len(t, clusters, 1)
}

func TestQueryDossiersRequiresOrgID(t *testing.T) {
	ds := &fakeDataSource{}
	h := NewHandler(ds)

	out := doQuery(t, h, `{ dossiers { id } }`)
	require.NotNil(t, out["errors"])
}

func TestQueryDossiersResolvesWithOrgID(t *testing.T) {
	ds := &fakeDataSource{dossiers: []models.Dossier{{ID: "d-1", Name: "Known actor", EventCount: 2}}}
	h := NewHandler(ds)

	out := doQuery(t, h, `{ dossiers(orgId: "org-1") { id name } }`)
	require.Nil(t, out["errors"])

	data := out["data"].(map[string]interface{})
	dossiers := data["dossiers"].([]interface{})
	require.Len(t, dossiers, 1)
}
