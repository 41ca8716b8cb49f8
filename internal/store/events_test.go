package store

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/harrowgate/sitrep/internal/models"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	// "postgres" here only drives sqlx's placeholder-rebind choice (DOLLAR
	// syntax); the mock driver underneath is go-sqlmock's, not lib/pq.
	sqlxDB := sqlx.NewDb(db, "postgres")
	return &Store{DB: sqlxDB}, mock
}

func sampleEvent() *models.Event {
	return &models.Event{
		ID:          uuid.NewString(),
		SourceID:    uuid.NewString(),
		DedupHash:   "hash-1",
		Title:       "Protest in Brussels over migration policy",
		RawText:     "Demonstrators gathered downtown.",
		URL:         "https://news.example/1",
		PublishedAt: time.Now().UTC(),
		Category:    models.CategoryProtest,
		Locations:   models.StringArray{"brussels"},
		Sentiment:   models.SentimentNeutral,
	}
}

func TestUpsertEventNewRow(t *testing.T) {
	s, mock := newMockStore(t)
	ev := sampleEvent()

	mock.ExpectQuery("INSERT INTO events").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(ev.ID))

	inserted, err := s.UpsertEvent(t.Context(), ev)
	require.NoError(t, err)
	require.True(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEventConflictIsNotNew(t *testing.T) {
	s, mock := newMockStore(t)
	ev := sampleEvent()

	mock.ExpectQuery("INSERT INTO events").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	inserted, err := s.UpsertEvent(t.Context(), ev)
	require.NoError(t, err)
	require.False(t, inserted, "ON CONFLICT DO NOTHING must report is_new=false without touching the existing row")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetEventClusterAssignsAndClears(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE events SET cluster_id").
		WithArgs("cluster-1", "event-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SetEventCluster(t.Context(), "event-1", "cluster-1"))

	mock.ExpectExec("UPDATE events SET cluster_id").
		WithArgs(nil, "event-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SetEventCluster(t.Context(), "event-1", ""))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteEventDissolvesClusterBelowTwoMembers(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	clusterID := "cluster-1"
	mock.ExpectQuery("SELECT cluster_id FROM events").
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows([]string{"cluster_id"}).AddRow(clusterID))
	mock.ExpectExec("DELETE FROM events WHERE id").
		WithArgs("event-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT count").
		WithArgs(clusterID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("UPDATE events SET cluster_id = NULL").
		WithArgs(clusterID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM clusters").
		WithArgs(clusterID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteEvent(t.Context(), "event-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteEventKeepsClusterWithRemainingMembers(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	clusterID := "cluster-1"
	mock.ExpectQuery("SELECT cluster_id FROM events").
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows([]string{"cluster_id"}).AddRow(clusterID))
	mock.ExpectExec("DELETE FROM events WHERE id").
		WithArgs("event-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT count").
		WithArgs(clusterID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteEvent(t.Context(), "event-1"))
	require.NoError(t, mock.ExpectationsWereMet(), "cluster with >=2 remaining members must not be touched")
}

func TestSoftDeleteExpiredEventsDissolvesOrphanedCluster(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM events WHERE deleted_at IS NULL").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("event-1"))
	mock.ExpectExec("UPDATE events SET deleted_at = now").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT DISTINCT cluster_id FROM events").
		WillReturnRows(sqlmock.NewRows([]string{"cluster_id"}).AddRow("cluster-1"))
	mock.ExpectQuery("SELECT count").
		WithArgs("cluster-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("UPDATE events SET cluster_id = NULL").
		WithArgs("cluster-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM clusters").
		WithArgs("cluster-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := s.SoftDeleteExpiredEvents(t.Context(), 90)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteExpiredEventsNoneDueCommitsEmpty(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM events WHERE deleted_at IS NULL").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	n, err := s.SoftDeleteExpiredEvents(t.Context(), 90)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeDeletedEventsReturnsRowsAffected(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM events WHERE deleted_at IS NOT NULL").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.PurgeDeletedEvents(t.Context(), 7)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
