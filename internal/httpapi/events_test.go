package httpapi

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/harrowgate/sitrep/internal/models"
	"github.com/stretchr/testify/require"
)

func eventCols() []string {
	return []string{"id", "source_id", "dedup_hash", "title", "raw_text", "url", "published_at",
		"clock_skew_flag", "summary", "category", "entities", "sentiment", "locations",
		"latitude", "longitude", "confidence_score", "relevance_score", "priority_score",
		"enrichment_degraded", "source_count", "multi_source_boost", "cluster_id", "created_at"}
}

func eventRow(id, title string) []driverValue {
	now := time.Now().UTC()
	return []driverValue{id, uuid.NewString(), "hash-1", title, "raw text", "https://news.example/1", now,
		false, "summary", "other", "[]", "neutral", "{}",
		nil, nil, 0.5, 0.5, 0.5, false, 1, false, nil, now}
}

// driverValue is a tiny alias to keep eventRow's return type terse.
type driverValue = interface{}

func TestHandleListEventsAppliesQueryFilters(t *testing.T) {
	a, mock := newTestAPI(t)

	mock.ExpectQuery("SELECT \\* FROM events WHERE priority_score").
		WillReturnRows(sqlmock.NewRows(eventCols()).AddRow(eventRow("ev-1", "Unrest downtown")...))

	req := httptest.NewRequest(http.MethodGet, "/v1/events?min_priority=0.4&sentiment=neutral", nil)
	rec := httptest.NewRecorder()

	a.handleListEvents(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "Unrest downtown", got[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleGetEventReadsIDFromRoute(t *testing.T) {
	a, mock := newTestAPI(t)

	mock.ExpectQuery("SELECT \\* FROM events WHERE id").
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows(eventCols()).AddRow(eventRow("ev-1", "Border incident")...))

	r := chi.NewRouter()
	r.Get("/v1/events/{id}", a.handleGetEvent)

	req := httptest.NewRequest(http.MethodGet, "/v1/events/ev-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "Border incident", got.Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleGetEventNotFoundReturnsProblemDocument(t *testing.T) {
	a, mock := newTestAPI(t)

	mock.ExpectQuery("SELECT \\* FROM events WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	r := chi.NewRouter()
	r.Get("/v1/events/{id}", a.handleGetEvent)

	req := httptest.NewRequest(http.MethodGet, "/v1/events/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestHandleDashboardTrendsDefaultsToLastDay(t *testing.T) {
	a, mock := newTestAPI(t)

	mock.ExpectQuery("SELECT date_trunc").
		WillReturnRows(sqlmock.NewRows([]string{"bucket", "count"}))

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/trends", nil)
	rec := httptest.NewRecorder()

	a.handleDashboardTrends(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
