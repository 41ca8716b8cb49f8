package httpapi

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/harrowgate/sitrep/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// newTestAPI wires an API to a sqlmock-backed Store, mirroring the
// internal/store package's mock-driver trick: "postgres" only steers
// sqlx's placeholder rebinding, not the underlying mock driver.
func newTestAPI(t *testing.T) (*API, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sqlxDB := sqlx.NewDb(db, "postgres")
	st := &store.Store{DB: sqlxDB}
	return &API{store: st, log: zerolog.Nop(), adminKey: "test-admin-key"}, mock
}
