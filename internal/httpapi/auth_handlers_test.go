package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/harrowgate/sitrep/internal/auth"
	"github.com/stretchr/testify/require"
)

func newTestAPIWithAuth(t *testing.T) (*API, sqlmock.Sqlmock) {
	t.Helper()
	a, mock := newTestAPI(t)
	a.auth = auth.NewService("test-secret", time.Hour)
	a.validate = validator.New()
	return a, mock
}

func TestHandleLoginIssuesTokenOnValidCredentials(t *testing.T) {
	a, mock := newTestAPIWithAuth(t)

	hash, err := a.auth.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	userID := uuid.NewString()

	mock.ExpectQuery("SELECT \\* FROM users WHERE email").
		WithArgs("analyst@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "display_name", "created_at"}).
			AddRow(userID, "analyst@example.com", hash, "Analyst", time.Now()))
	mock.ExpectQuery("SELECT \\* FROM memberships WHERE org_id").
		WithArgs("org-1", userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "user_id", "role", "created_at"}).
			AddRow(uuid.NewString(), "org-1", userID, "admin", time.Now()))
	mock.ExpectExec("INSERT INTO audit_records").WillReturnResult(sqlmock.NewResult(1, 1))

	body := `{"email":"analyst@example.com","password":"correct horse battery staple","org_id":"org-1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	a.handleLogin(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out["token"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleLoginRejectsWrongPassword(t *testing.T) {
	a, mock := newTestAPIWithAuth(t)

	hash, err := a.auth.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	userID := uuid.NewString()

	mock.ExpectQuery("SELECT \\* FROM users WHERE email").
		WithArgs("analyst@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "display_name", "created_at"}).
			AddRow(userID, "analyst@example.com", hash, "Analyst", time.Now()))

	body := `{"email":"analyst@example.com","password":"wrong password","org_id":"org-1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	a.handleLogin(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleLoginRejectsInvalidBody(t *testing.T) {
	a, _ := newTestAPIWithAuth(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email":"not-an-email"}`))
	rec := httptest.NewRecorder()

	a.handleLogin(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
