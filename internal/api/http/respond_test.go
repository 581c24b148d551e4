package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openschool/school-api/internal/apperr"
)

func TestWriteErrStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{apperr.New(apperr.Validation, "bad input"), http.StatusBadRequest, "bad input"},
		{apperr.New(apperr.Conflict, "already exists"), http.StatusBadRequest, "already exists"},
		{apperr.New(apperr.Auth, "invalid credentials"), http.StatusUnauthorized, "invalid credentials"},
		{apperr.New(apperr.Permission, "permission denied"), http.StatusForbidden, "permission denied"},
		{apperr.New(apperr.NotFound, "exam not found"), http.StatusNotFound, "exam not found"},
		{errors.New("boom"), http.StatusInternalServerError, "boom"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeErr(rec, tc.err)
		require.Equal(t, tc.status, rec.Code)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, tc.body, body["error"])
	}
}

func TestWriteErrHidesWrappedCause(t *testing.T) {
	// The wrapped driver error stays out of the response body.
	rec := httptest.NewRecorder()
	writeErr(rec, apperr.Wrap(apperr.Internal, "create exam", errors.New("constraint violated")))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "create exam", body["error"])
}
