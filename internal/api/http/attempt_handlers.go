package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openschool/school-api/internal/apperr"
	authmw "github.com/openschool/school-api/internal/auth/middleware"
	"github.com/openschool/school-api/internal/exam"
)

// ListAttemptsHandler returns the calling student's own attempts, newest
// first.
func ListAttemptsHandler(es *exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		if p == nil || p.StudentID == "" {
			writeErr(w, apperr.New(apperr.NotFound, "student profile not found"))
			return
		}
		attempts, err := es.ListAttempts(r.Context(), p.StudentID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, attempts)
	}
}

// AttemptResultHandler returns the graded review for one completed attempt.
// Ownership is enforced in the query: another student's attempt is a 404.
func AttemptResultHandler(es *exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		if p == nil || p.StudentID == "" {
			writeErr(w, apperr.New(apperr.NotFound, "student profile not found"))
			return
		}
		res, err := es.Result(r.Context(), chi.URLParam(r, "attemptID"), p.StudentID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
