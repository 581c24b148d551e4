package http

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openschool/school-api/internal/apperr"
	authmw "github.com/openschool/school-api/internal/auth/middleware"
	"github.com/openschool/school-api/internal/roster"
)

func ListTeachersHandler(rs *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		teachers, err := rs.ListTeachers(r.Context(), rosterScope(p))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, teachers)
	}
}

func GetTeacherHandler(rs *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := rs.GetTeacher(r.Context(), chi.URLParam(r, "teacherID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func CreateTeacherHandler(rs *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in roster.CreateTeacherInput
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, err)
			return
		}
		t, err := rs.CreateTeacher(r.Context(), in)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func UpdateTeacherHandler(rs *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		id := chi.URLParam(r, "teacherID")

		if p == nil || (p.Role != "admin" && !(p.Role == "teacher" && p.TeacherID == id)) {
			writeErr(w, apperr.New(apperr.Permission, "permission denied"))
			return
		}

		var in roster.UpdateTeacherInput
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, err)
			return
		}
		t, err := rs.UpdateTeacher(r.Context(), id, in)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func DeleteTeacherHandler(rs *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := rs.DeleteTeacher(r.Context(), chi.URLParam(r, "teacherID")); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Teacher deleted successfully"})
	}
}

// TeacherStudentsHandler lists the students assigned to one teacher.
func TeacherStudentsHandler(rs *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "teacherID")
		if _, err := rs.GetTeacher(r.Context(), id); err != nil {
			writeErr(w, err)
			return
		}
		students, err := rs.ListStudents(r.Context(),
			roster.StudentFilter{AssignedTeacherID: id}, roster.Scope{Role: "admin"})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, students)
	}
}

func ExportTeachersCSVHandler(rs *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teachers, err := rs.ListTeachers(r.Context(), roster.Scope{Role: "admin"})
		if err != nil {
			writeErr(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="teachers.csv"`)

		cw := csv.NewWriter(w)
		_ = cw.Write([]string{
			"First Name", "Last Name", "Email", "Phone Number", "Subject",
			"Qualification", "Experience Years", "Status", "Students Count",
		})
		for _, t := range teachers {
			qual := ""
			if t.Qualification != nil {
				qual = *t.Qualification
			}
			_ = cw.Write([]string{
				t.FirstName, t.LastName, t.Email, t.PhoneNumber, t.Subject,
				qual, fmt.Sprintf("%d", t.ExperienceYears), t.Status,
				fmt.Sprintf("%d", t.StudentsCount),
			})
		}
		cw.Flush()
	}
}
