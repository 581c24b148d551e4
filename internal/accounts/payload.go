package accounts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/openschool/school-api/internal/apperr"
)

// UserPayload builds the role-annotated user object returned by login and
// register. Profile fields default to null when the role profile row does not
// exist yet.
func (s *Store) UserPayload(ctx context.Context, a Account) (map[string]any, error) {
	out := map[string]any{
		"id":         a.ID,
		"username":   a.Username,
		"email":      a.Email,
		"first_name": a.FirstName,
		"last_name":  a.LastName,
		"role":       a.Role,
	}

	switch a.Role {
	case RoleStudent:
		if err := s.addStudentFields(ctx, a.ID, out); err != nil {
			return nil, err
		}
	case RoleTeacher:
		if err := s.addTeacherFields(ctx, a.ID, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) addStudentFields(ctx context.Context, userID string, out map[string]any) error {
	for _, k := range []string{
		"roll_number", "class_grade", "phone_number", "date_of_birth", "admission_date", "status",
		"assigned_teacher_id", "assigned_teacher_name", "assigned_teacher_email",
		"assigned_teacher_phone", "assigned_teacher_subject",
	} {
		out[k] = nil
	}

	var roll, grade, phone, dob, admission, status string
	var tID, tFirst, tLast, tEmail, tPhone, tSubject sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT s.roll_number, s.class_grade, s.phone_number, s.date_of_birth, s.admission_date, s.status,
		        s.assigned_teacher_id, t.first_name, t.last_name, t.email, t.phone_number, t.subject
		 FROM students s
		 LEFT JOIN teachers t ON t.id = s.assigned_teacher_id
		 WHERE s.user_id = $1`, userID).
		Scan(&roll, &grade, &phone, &dob, &admission, &status,
			&tID, &tFirst, &tLast, &tEmail, &tPhone, &tSubject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return apperr.Wrap(apperr.Internal, "load student profile", err)
	}

	out["roll_number"] = roll
	out["class_grade"] = grade
	out["phone_number"] = phone
	out["date_of_birth"] = dob
	out["admission_date"] = admission
	out["status"] = status
	if tID.Valid {
		out["assigned_teacher_id"] = tID.String
		out["assigned_teacher_name"] = tFirst.String + " " + tLast.String
		out["assigned_teacher_email"] = tEmail.String
		out["assigned_teacher_phone"] = tPhone.String
		out["assigned_teacher_subject"] = tSubject.String
	}
	return nil
}

func (s *Store) addTeacherFields(ctx context.Context, userID string, out map[string]any) error {
	for _, k := range []string{"phone_number", "subject", "qualification", "experience_years", "salary", "status"} {
		out[k] = nil
	}
	out["students_count"] = 0

	var id, phone, subject, status string
	var qualification sql.NullString
	var salary sql.NullFloat64
	var experience int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, phone_number, subject, qualification, experience_years, salary, status
		 FROM teachers WHERE user_id = $1`, userID).
		Scan(&id, &phone, &subject, &qualification, &experience, &salary, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return apperr.Wrap(apperr.Internal, "load teacher profile", err)
	}

	out["phone_number"] = phone
	out["subject"] = subject
	if qualification.Valid {
		out["qualification"] = qualification.String
	}
	out["experience_years"] = experience
	if salary.Valid {
		out["salary"] = salary.Float64
	}
	out["status"] = status

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM students WHERE assigned_teacher_id = $1`, id).Scan(&count); err != nil {
		return apperr.Wrap(apperr.Internal, "count students", err)
	}
	out["students_count"] = count
	return nil
}
