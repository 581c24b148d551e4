// Package http holds the HTTP handlers. Handlers stay thin: decode, call a
// store, translate the outcome. Status codes are decided in exactly one place,
// writeErr.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openschool/school-api/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr is the single boundary translator from the error taxonomy to HTTP.
// Conflicts map to 400 like other business-rule violations; only genuinely
// unexpected failures surface as 500.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.Validation, apperr.Conflict:
		status = http.StatusBadRequest
	case apperr.Auth:
		status = http.StatusUnauthorized
	case apperr.Permission:
		status = http.StatusForbidden
	case apperr.NotFound:
		status = http.StatusNotFound
	}

	msg := err.Error()
	var e *apperr.Error
	if errors.As(err, &e) {
		msg = e.Msg
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.New(apperr.Validation, "invalid request body")
	}
	return nil
}
