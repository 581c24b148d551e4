package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openschool/school-api/internal/apperr"
	authmw "github.com/openschool/school-api/internal/auth/middleware"
	"github.com/openschool/school-api/internal/exam"
)

func examScope(p *authmw.Principal) exam.Scope {
	if p == nil {
		return exam.Scope{}
	}
	return exam.Scope{Role: p.Role, TeacherID: p.TeacherID, StudentID: p.StudentID}
}

func ListExamsHandler(es *exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		exams, err := es.ListExams(r.Context(), examScope(p))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, exams)
	}
}

func GetExamHandler(es *exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		e, err := es.GetExam(r.Context(), examScope(p), chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func CreateExamHandler(es *exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		if p == nil || p.TeacherID == "" {
			writeErr(w, apperr.New(apperr.Permission, "teacher profile not found"))
			return
		}
		var e exam.Exam
		if err := decodeJSON(r, &e); err != nil {
			writeErr(w, err)
			return
		}
		e.CreatedBy = p.TeacherID
		created, err := es.CreateExam(r.Context(), e)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func UpdateExamHandler(es *exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		id := chi.URLParam(r, "examID")

		// Scoped lookup doubles as the ownership check: a teacher cannot see,
		// let alone edit, another teacher's exam.
		if _, err := es.GetExam(r.Context(), examScope(p), id); err != nil {
			writeErr(w, err)
			return
		}
		var in exam.UpdateExamInput
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, err)
			return
		}
		e, err := es.UpdateExam(r.Context(), id, in)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func DeleteExamHandler(es *exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		id := chi.URLParam(r, "examID")

		if _, err := es.GetExam(r.Context(), examScope(p), id); err != nil {
			writeErr(w, err)
			return
		}
		if err := es.DeleteExam(r.Context(), id); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Exam deleted successfully"})
	}
}

func StartExamHandler(es *exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		if p == nil || p.StudentID == "" {
			writeErr(w, apperr.New(apperr.NotFound, "student profile not found"))
			return
		}
		id := chi.URLParam(r, "examID")

		// Visibility first: an exam outside the student's assigned teacher's
		// catalog reads as nonexistent.
		if _, err := es.GetExam(r.Context(), examScope(p), id); err != nil {
			writeErr(w, err)
			return
		}
		res, err := es.Start(r.Context(), id, p.StudentID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func SubmitExamHandler(es *exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		if p == nil || p.StudentID == "" {
			writeErr(w, apperr.New(apperr.NotFound, "student profile not found"))
			return
		}
		id := chi.URLParam(r, "examID")

		if _, err := es.GetExam(r.Context(), examScope(p), id); err != nil {
			writeErr(w, err)
			return
		}
		var req struct {
			Answers []exam.AnswerSubmission `json:"answers"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		res, err := es.Submit(r.Context(), id, p.StudentID, req.Answers)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
