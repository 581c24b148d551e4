package http

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openschool/school-api/internal/apperr"
	"github.com/openschool/school-api/internal/roster"
)

var importRequiredCols = []string{
	"first_name", "last_name", "email", "phone_number",
	"roll_number", "class_grade", "date_of_birth", "admission_date",
}

// ExportStudentsCSVHandler streams the full student roster as a CSV download.
func ExportStudentsCSVHandler(rs *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		students, err := rs.ListStudents(r.Context(), roster.StudentFilter{}, roster.Scope{Role: "admin"})
		if err != nil {
			writeErr(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="students.csv"`)

		cw := csv.NewWriter(w)
		_ = cw.Write([]string{
			"First Name", "Last Name", "Email", "Phone Number", "Roll Number",
			"Class Grade", "Date of Birth", "Admission Date", "Status", "Assigned Teacher",
		})
		for _, st := range students {
			teacher := ""
			if st.AssignedTeacherName != nil {
				teacher = *st.AssignedTeacherName
			}
			_ = cw.Write([]string{
				st.FirstName, st.LastName, st.Email, st.PhoneNumber, st.RollNumber,
				st.ClassGrade, st.DateOfBirth, st.AdmissionDate, st.Status, teacher,
			})
		}
		cw.Flush()
	}
}

// ImportStudentsCSVHandler accepts a multipart upload under the "file" field
// and imports rows one by one. A bad row is reported, not fatal: the response
// carries the per-row errors next to the success count.
func ImportStudentsCSVHandler(rs *roster.Store, defaultPassword string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			writeErr(w, apperr.New(apperr.Validation, "no file uploaded"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeErr(w, apperr.New(apperr.Validation, "no file uploaded"))
			return
		}
		defer file.Close()

		if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
			writeErr(w, apperr.New(apperr.Validation, "file must be a CSV"))
			return
		}

		rows, err := parseStudentCSV(file)
		if err != nil {
			writeErr(w, err)
			return
		}

		count, errs := rs.ImportStudents(r.Context(), rows, defaultPassword)
		if errs == nil {
			errs = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":       fmt.Sprintf("Imported %d students", count),
			"success_count": count,
			"errors":        errs,
		})
	}
}

func parseStudentCSV(f io.Reader) ([]roster.StudentImportRow, error) {
	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, apperr.New(apperr.Validation, "empty or unreadable CSV file")
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, c := range importRequiredCols {
		if _, ok := col[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Newf(apperr.Validation,
			"missing required columns: %s", strings.Join(missing, ", "))
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []roster.StudentImportRow
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, apperr.Newf(apperr.Validation, "malformed CSV at row %d", line)
		}
		rows = append(rows, roster.StudentImportRow{
			Line:                 line,
			FirstName:            field(rec, "first_name"),
			LastName:             field(rec, "last_name"),
			Email:                field(rec, "email"),
			PhoneNumber:          field(rec, "phone_number"),
			RollNumber:           field(rec, "roll_number"),
			ClassGrade:           field(rec, "class_grade"),
			DateOfBirth:          field(rec, "date_of_birth"),
			AdmissionDate:        field(rec, "admission_date"),
			Status:               field(rec, "status"),
			Password:             field(rec, "password"),
			AssignedTeacherEmail: field(rec, "assigned_teacher_email"),
		})
	}
	return rows, nil
}
