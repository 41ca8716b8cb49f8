package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/harrowgate/sitrep/internal/models"
	"github.com/stretchr/testify/require"
)

func newChiRouterWithDeleteDossier(a *API) *chi.Mux {
	r := chi.NewRouter()
	r.Delete("/v1/dossiers/{id}", a.handleDeleteDossier)
	return r
}

func TestHandleCreateDossierRejectsUnofficialPersonSubject(t *testing.T) {
	a, _ := newTestAPI(t)
	a.validate = validator.New()

	body := `{"name":"Someone of Interest","subject_type":"person","is_official":false}`
	req := httptest.NewRequest(http.MethodPost, "/v1/dossiers", strings.NewReader(body))
	req = withOrgClaims(req, "org-1", "user-1")
	rec := httptest.NewRecorder()

	a.handleCreateDossier(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCreateDossierPersistsLocationSubject(t *testing.T) {
	a, mock := newTestAPI(t)
	a.validate = validator.New()

	mock.ExpectExec("INSERT INTO dossiers").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_records").WillReturnResult(sqlmock.NewResult(1, 1))

	body := `{"name":"Border crossing watch","subject_type":"location","keywords":["border"],"locations":["brussels"]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/dossiers", strings.NewReader(body))
	req = withOrgClaims(req, "org-1", "user-1")
	rec := httptest.NewRecorder()

	a.handleCreateDossier(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got models.Dossier
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "org-1", got.OrgID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleDeleteDossierScopesToOrg(t *testing.T) {
	a, mock := newTestAPI(t)

	cols := []string{"id", "org_id", "name", "subject_type", "is_official", "description", "aliases",
		"tags", "notes", "keywords", "locations", "latitude", "longitude",
		"event_count", "last_event_at", "count_7d", "count_30d",
		"category_breakdown", "sentiment_breakdown", "created_by", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT \\* FROM dossiers").WillReturnRows(sqlmock.NewRows(cols).AddRow(
		"d-1", "org-1", "Brussels", "location", false, "", "{}",
		"{}", "", "{}", "{}", nil, nil,
		0, nil, 0, 0,
		[]byte(`{}`), []byte(`{}`), "user-1", time.Now(), time.Now(),
	))
	mock.ExpectExec("DELETE FROM dossiers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_records").WillReturnResult(sqlmock.NewResult(1, 1))

	r := newChiRouterWithDeleteDossier(a)
	req := httptest.NewRequest(http.MethodDelete, "/v1/dossiers/d-1", nil)
	req = withOrgClaims(req, "org-1", "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
