package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetKind(t *testing.T) {
	cases := []struct {
		build func(string, error) *Error
		kind  Kind
	}{
		{Transient, KindTransient},
		{Permanent, KindPermanent},
		{Validation, KindValidation},
		{Unauthorized, KindUnauthorized},
		{Tenancy, KindTenancy},
		{Integrity, KindIntegrity},
		{Fatal, KindFatal},
	}
	for _, c := range cases {
		err := c.build("boom", nil)
		assert.Equal(t, c.kind, err.Kind)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := Validation("bad filter", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bad filter")
	assert.Contains(t, err.Error(), "underlying")
}

func TestAsExtractsWrappedError(t *testing.T) {
	inner := Tenancy("not visible", nil)
	wrapped := errors.New("context: " + inner.Error())
	_, ok := As(wrapped)
	assert.False(t, ok, "a plain errors.New should not unwrap to *Error")

	found, ok := As(inner)
	require.True(t, ok)
	assert.Equal(t, KindTenancy, found.Kind)

	found, ok = As(fmt.Errorf("context: %w", inner))
	require.True(t, ok)
	assert.Equal(t, KindTenancy, found.Kind)
}

func TestWriteProblemStatusByKind(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{Transient("retry later", nil), http.StatusServiceUnavailable},
		{Validation("bad input", nil), http.StatusBadRequest},
		{Tenancy("not yours", nil), http.StatusForbidden},
		{Unauthorized("no token", nil), http.StatusUnauthorized},
		{Integrity("conflict", nil), http.StatusConflict},
		{Fatal("down", nil), http.StatusInternalServerError},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		WriteProblem(rec, c.err, "req-123")
		assert.Equal(t, c.status, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

		var p Problem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(t, c.status, p.Status)
		assert.Equal(t, "req-123", p.CorrelationID)
	}
}
