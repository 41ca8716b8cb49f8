package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/harrowgate/sitrep/internal/models"
	"github.com/stretchr/testify/require"
)

func TestHandleCreateWatchlistPersistsAndAudits(t *testing.T) {
	a, mock := newTestAPI(t)
	a.validate = validator.New()

	mock.ExpectExec("INSERT INTO watchlists").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_records").WillReturnResult(sqlmock.NewResult(1, 1))

	body := `{"name":"Flashpoint tracker","categories":["protest"],"min_priority":0.5}`
	req := httptest.NewRequest(http.MethodPost, "/v1/watchlists", strings.NewReader(body))
	req = withOrgClaims(req, "org-1", "user-1")
	rec := httptest.NewRecorder()

	a.handleCreateWatchlist(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got models.Watchlist
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "org-1", got.OrgID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCreateWatchlistRejectsMissingName(t *testing.T) {
	a, _ := newTestAPI(t)
	a.validate = validator.New()

	req := httptest.NewRequest(http.MethodPost, "/v1/watchlists", strings.NewReader(`{"min_priority":0.5}`))
	req = withOrgClaims(req, "org-1", "user-1")
	rec := httptest.NewRecorder()

	a.handleCreateWatchlist(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
