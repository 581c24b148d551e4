package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openschool/school-api/internal/apperr"
	authmw "github.com/openschool/school-api/internal/auth/middleware"
	"github.com/openschool/school-api/internal/roster"
)

func rosterScope(p *authmw.Principal) roster.Scope {
	if p == nil {
		return roster.Scope{}
	}
	return roster.Scope{Role: p.Role, StudentID: p.StudentID, TeacherID: p.TeacherID}
}

func ListStudentsHandler(rs *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		q := r.URL.Query()
		f := roster.StudentFilter{
			Status:            q.Get("status"),
			ClassGrade:        q.Get("class_grade"),
			AssignedTeacherID: q.Get("assigned_teacher"),
			Search:            q.Get("search"),
		}
		students, err := rs.ListStudents(r.Context(), f, rosterScope(p))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, students)
	}
}

func GetStudentHandler(rs *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		id := chi.URLParam(r, "studentID")

		st, err := rs.GetStudent(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !canSeeStudent(p, st) {
			writeErr(w, apperr.New(apperr.Permission, "permission denied"))
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func canSeeStudent(p *authmw.Principal, st roster.Student) bool {
	if p == nil {
		return false
	}
	switch p.Role {
	case "admin":
		return true
	case "student":
		return p.StudentID == st.ID
	case "teacher":
		return st.AssignedTeacherID != nil && *st.AssignedTeacherID == p.TeacherID
	}
	return false
}

func CreateStudentHandler(rs *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in roster.CreateStudentInput
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, err)
			return
		}
		st, err := rs.CreateStudent(r.Context(), in)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, st)
	}
}

func UpdateStudentHandler(rs *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		id := chi.URLParam(r, "studentID")

		// Admin may update anyone; a student only their own record.
		if p == nil || (p.Role != "admin" && !(p.Role == "student" && p.StudentID == id)) {
			writeErr(w, apperr.New(apperr.Permission, "permission denied"))
			return
		}

		var in roster.UpdateStudentInput
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, err)
			return
		}
		st, err := rs.UpdateStudent(r.Context(), id, in)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func DeleteStudentHandler(rs *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "studentID")
		if err := rs.DeleteStudent(r.Context(), id); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Student deleted successfully"})
	}
}
