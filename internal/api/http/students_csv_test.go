package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openschool/school-api/internal/apperr"
)

func TestParseStudentCSV(t *testing.T) {
	csvData := strings.Join([]string{
		"first_name,last_name,email,phone_number,roll_number,class_grade,date_of_birth,admission_date,password,assigned_teacher_email",
		"Amy,Pond,amy@example.com,555-0001,R1,10A,2008-04-01,2023-09-01,strongpass,teach@example.com",
		"Rory,Williams,rory@example.com,,R2,10A,2008-06-12,2023-09-01,,",
	}, "\n")

	rows, err := parseStudentCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, 2, rows[0].Line)
	require.Equal(t, "Amy", rows[0].FirstName)
	require.Equal(t, "amy@example.com", rows[0].Email)
	require.Equal(t, "teach@example.com", rows[0].AssignedTeacherEmail)
	require.Equal(t, "strongpass", rows[0].Password)

	require.Equal(t, 3, rows[1].Line)
	require.Empty(t, rows[1].Password)
	require.Empty(t, rows[1].AssignedTeacherEmail)
}

func TestParseStudentCSVHeaderCaseInsensitive(t *testing.T) {
	csvData := strings.Join([]string{
		"First_Name,LAST_NAME,Email,phone_number,Roll_Number,class_grade,date_of_birth,admission_date",
		"Amy,Pond,amy@example.com,,R1,10A,2008-04-01,2023-09-01",
	}, "\n")

	rows, err := parseStudentCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Pond", rows[0].LastName)
}

func TestParseStudentCSVMissingColumns(t *testing.T) {
	csvData := "first_name,last_name,email\nAmy,Pond,amy@example.com\n"

	_, err := parseStudentCSV(strings.NewReader(csvData))
	require.Equal(t, apperr.Validation, apperr.KindOf(err))
	require.Contains(t, err.Error(), "missing required columns")
	require.Contains(t, err.Error(), "roll_number")

	_, err = parseStudentCSV(strings.NewReader(""))
	require.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestParseStudentCSVShortRow(t *testing.T) {
	// A row shorter than the header still parses; absent cells read as empty.
	csvData := strings.Join([]string{
		"first_name,last_name,email,phone_number,roll_number,class_grade,date_of_birth,admission_date",
		"Amy,Pond,amy@example.com",
	}, "\n")

	rows, err := parseStudentCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Empty(t, rows[0].RollNumber)
}
