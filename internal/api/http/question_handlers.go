package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openschool/school-api/internal/apperr"
	authmw "github.com/openschool/school-api/internal/auth/middleware"
	"github.com/openschool/school-api/internal/exam"
)

func callerTeacherID(p *authmw.Principal) string {
	if p != nil && p.Role == "teacher" {
		return p.TeacherID
	}
	return ""
}

// ListQuestionsHandler returns the questions across the caller's exams,
// answer key included. Admins pass an empty teacher id and see everything.
func ListQuestionsHandler(es *exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		qs, err := es.ListQuestions(r.Context(), callerTeacherID(p))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, qs)
	}
}

func CreateQuestionHandler(es *exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		if p == nil {
			writeErr(w, apperr.New(apperr.Auth, "unauthorized"))
			return
		}
		var q exam.Question
		if err := decodeJSON(r, &q); err != nil {
			writeErr(w, err)
			return
		}
		// Teachers may only attach questions to their own exams; the store
		// skips the ownership check for an empty teacher id (admin).
		created, err := es.CreateQuestion(r.Context(), q, callerTeacherID(p))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func UpdateQuestionHandler(es *exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		var in exam.UpdateQuestionInput
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, err)
			return
		}
		q, err := es.UpdateQuestion(r.Context(), chi.URLParam(r, "questionID"), in, callerTeacherID(p))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func DeleteQuestionHandler(es *exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		if err := es.DeleteQuestion(r.Context(), chi.URLParam(r, "questionID"), callerTeacherID(p)); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Question deleted successfully"})
	}
}
