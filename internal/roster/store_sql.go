package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/openschool/school-api/internal/apperr"
)

const bcryptCost = 12

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// ---- students ----

var studentCols = []string{
	"s.id", "s.user_id", "s.first_name", "s.last_name", "s.email", "s.phone_number",
	"s.roll_number", "s.class_grade", "s.date_of_birth", "s.admission_date", "s.status",
	"s.assigned_teacher_id", "t.first_name", "t.last_name", "s.created_at", "s.updated_at",
}

func scanStudent(row sq.RowScanner) (Student, error) {
	var st Student
	var teacherID, tFirst, tLast sql.NullString
	var created, updated int64
	err := row.Scan(&st.ID, &st.UserID, &st.FirstName, &st.LastName, &st.Email, &st.PhoneNumber,
		&st.RollNumber, &st.ClassGrade, &st.DateOfBirth, &st.AdmissionDate, &st.Status,
		&teacherID, &tFirst, &tLast, &created, &updated)
	if err != nil {
		return Student{}, err
	}
	if teacherID.Valid {
		st.AssignedTeacherID = &teacherID.String
		name := tFirst.String + " " + tLast.String
		st.AssignedTeacherName = &name
	}
	st.CreatedAt = time.Unix(created, 0).UTC()
	st.UpdatedAt = time.Unix(updated, 0).UTC()
	return st, nil
}

func (s *Store) studentQuery() sq.SelectBuilder {
	return psql.Select(studentCols...).
		From("students s").
		LeftJoin("teachers t ON t.id = s.assigned_teacher_id")
}

func (s *Store) ListStudents(ctx context.Context, f StudentFilter, scope Scope) ([]Student, error) {
	qb := s.studentQuery().OrderBy("s.created_at DESC")

	switch scope.Role {
	case "admin":
		// sees everything
	case "teacher":
		if scope.TeacherID == "" {
			return []Student{}, nil
		}
		qb = qb.Where(sq.Eq{"s.assigned_teacher_id": scope.TeacherID})
	case "student":
		if scope.StudentID == "" {
			return []Student{}, nil
		}
		qb = qb.Where(sq.Eq{"s.id": scope.StudentID})
	default:
		return []Student{}, nil
	}

	if f.Status != "" {
		qb = qb.Where(sq.Eq{"s.status": f.Status})
	}
	if f.ClassGrade != "" {
		qb = qb.Where(sq.Eq{"s.class_grade": f.ClassGrade})
	}
	if f.AssignedTeacherID != "" {
		qb = qb.Where(sq.Eq{"s.assigned_teacher_id": f.AssignedTeacherID})
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		qb = qb.Where(sq.Or{
			sq.Like{"s.first_name": like},
			sq.Like{"s.last_name": like},
			sq.Like{"s.email": like},
			sq.Like{"s.roll_number": like},
		})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "build query", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list students", err)
	}
	defer rows.Close()

	out := []Student{}
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan student", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) GetStudent(ctx context.Context, id string) (Student, error) {
	query, args, err := s.studentQuery().Where(sq.Eq{"s.id": id}).ToSql()
	if err != nil {
		return Student{}, apperr.Wrap(apperr.Internal, "build query", err)
	}
	st, err := scanStudent(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, apperr.New(apperr.NotFound, "student not found")
		}
		return Student{}, apperr.Wrap(apperr.Internal, "load student", err)
	}
	return st, nil
}

// CreateStudent provisions the account and the roster row in one transaction.
// A failure at any step leaves no orphan account behind.
func (s *Store) CreateStudent(ctx context.Context, in CreateStudentInput) (Student, error) {
	if in.Password == "" {
		return Student{}, apperr.New(apperr.Validation, "password is required")
	}
	if len(in.Password) < 6 {
		return Student{}, apperr.New(apperr.Validation, "password must be at least 6 characters long")
	}
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.RollNumber == "" {
		return Student{}, apperr.New(apperr.Validation, "first_name, last_name, email and roll_number are required")
	}
	if in.Status == "" {
		in.Status = "active"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Student{}, apperr.Wrap(apperr.Internal, "begin tx", err)
	}
	defer tx.Rollback()

	st, err := s.createStudentTx(ctx, tx, in)
	if err != nil {
		return Student{}, err
	}
	if err := tx.Commit(); err != nil {
		return Student{}, apperr.Wrap(apperr.Internal, "commit", err)
	}
	return st, nil
}

func (s *Store) createStudentTx(ctx context.Context, tx *sql.Tx, in CreateStudentInput) (Student, error) {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email=$1 OR username=$1`, in.Email).Scan(&exists)
	if err == nil {
		return Student{}, apperr.New(apperr.Validation, "a user with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return Student{}, apperr.Wrap(apperr.Internal, "check email", err)
	}
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM students WHERE roll_number=$1`, in.RollNumber).Scan(&exists)
	if err == nil {
		return Student{}, apperr.Newf(apperr.Validation, "roll number %s already exists", in.RollNumber)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return Student{}, apperr.Wrap(apperr.Internal, "check roll number", err)
	}

	var teacherID *string
	var teacherName *string
	if in.AssignedTeacherID != "" {
		var first, last string
		err := tx.QueryRowContext(ctx, `SELECT first_name, last_name FROM teachers WHERE id=$1`, in.AssignedTeacherID).Scan(&first, &last)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return Student{}, apperr.New(apperr.Validation, "assigned teacher not found")
			}
			return Student{}, apperr.Wrap(apperr.Internal, "check teacher", err)
		}
		teacherID = &in.AssignedTeacherID
		name := first + " " + last
		teacherName = &name
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return Student{}, apperr.Wrap(apperr.Internal, "hash password", err)
	}

	now := time.Now()
	userID := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, first_name, last_name, role, is_superuser, is_active, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,'student',$7,$8,$9)`,
		userID, in.Email, in.Email, string(hash), in.FirstName, in.LastName, false, true, now.Unix())
	if err != nil {
		return Student{}, apperr.Wrap(apperr.Internal, "create account", err)
	}

	st := Student{
		ID:                  uuid.NewString(),
		UserID:              userID,
		FirstName:           in.FirstName,
		LastName:            in.LastName,
		Email:               in.Email,
		PhoneNumber:         in.PhoneNumber,
		RollNumber:          in.RollNumber,
		ClassGrade:          in.ClassGrade,
		DateOfBirth:         in.DateOfBirth,
		AdmissionDate:       in.AdmissionDate,
		Status:              in.Status,
		AssignedTeacherID:   teacherID,
		AssignedTeacherName: teacherName,
		CreatedAt:           now.UTC(),
		UpdatedAt:           now.UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO students (id, user_id, first_name, last_name, email, phone_number, roll_number, class_grade,
		                       date_of_birth, admission_date, status, assigned_teacher_id, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		st.ID, st.UserID, st.FirstName, st.LastName, st.Email, st.PhoneNumber, st.RollNumber, st.ClassGrade,
		st.DateOfBirth, st.AdmissionDate, st.Status, teacherID, now.Unix(), now.Unix())
	if err != nil {
		return Student{}, apperr.Wrap(apperr.Internal, "create student", err)
	}
	return st, nil
}

func (s *Store) UpdateStudent(ctx context.Context, id string, in UpdateStudentInput) (Student, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Student{}, apperr.Wrap(apperr.Internal, "begin tx", err)
	}
	defer tx.Rollback()

	var userID, curEmail string
	err = tx.QueryRowContext(ctx, `SELECT user_id, email FROM students WHERE id=$1`, id).Scan(&userID, &curEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, apperr.New(apperr.NotFound, "student not found")
		}
		return Student{}, apperr.Wrap(apperr.Internal, "load student", err)
	}

	set := map[string]interface{}{}
	put := func(col string, v *string) {
		if v != nil {
			set[col] = *v
		}
	}
	put("first_name", in.FirstName)
	put("last_name", in.LastName)
	put("phone_number", in.PhoneNumber)
	put("roll_number", in.RollNumber)
	put("class_grade", in.ClassGrade)
	put("date_of_birth", in.DateOfBirth)
	put("admission_date", in.AdmissionDate)
	put("status", in.Status)

	if in.AssignedTeacherID != nil {
		if *in.AssignedTeacherID == "" {
			set["assigned_teacher_id"] = nil
		} else {
			var one int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM teachers WHERE id=$1`, *in.AssignedTeacherID).Scan(&one)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return Student{}, apperr.New(apperr.Validation, "assigned teacher not found")
				}
				return Student{}, apperr.Wrap(apperr.Internal, "check teacher", err)
			}
			set["assigned_teacher_id"] = *in.AssignedTeacherID
		}
	}

	// An email change propagates to the linked account's username.
	if in.Email != nil && *in.Email != curEmail {
		if err := propagateEmail(ctx, tx, userID, *in.Email); err != nil {
			return Student{}, err
		}
		set["email"] = *in.Email
	}

	if len(set) > 0 {
		set["updated_at"] = time.Now().Unix()
		query, args, err := psql.Update("students").SetMap(set).Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return Student{}, apperr.Wrap(apperr.Internal, "build update", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return Student{}, apperr.Wrap(apperr.Internal, "update student", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Student{}, apperr.Wrap(apperr.Internal, "commit", err)
	}
	return s.GetStudent(ctx, id)
}

// DeleteStudent removes the linked account; the students row goes with it via
// ON DELETE CASCADE.
func (s *Store) DeleteStudent(ctx context.Context, id string) error {
	return s.deleteByProfile(ctx, "students", id, "student not found")
}

// ---- teachers ----

var teacherCols = []string{
	"t.id", "t.user_id", "t.first_name", "t.last_name", "t.email", "t.phone_number",
	"t.subject", "t.qualification", "t.experience_years", "t.salary", "t.status",
	"(SELECT COUNT(*) FROM students st WHERE st.assigned_teacher_id = t.id)",
	"t.created_at", "t.updated_at",
}

func scanTeacher(row sq.RowScanner) (Teacher, error) {
	var t Teacher
	var qualification sql.NullString
	var salary sql.NullFloat64
	var created, updated int64
	err := row.Scan(&t.ID, &t.UserID, &t.FirstName, &t.LastName, &t.Email, &t.PhoneNumber,
		&t.Subject, &qualification, &t.ExperienceYears, &salary, &t.Status,
		&t.StudentsCount, &created, &updated)
	if err != nil {
		return Teacher{}, err
	}
	if qualification.Valid {
		t.Qualification = &qualification.String
	}
	if salary.Valid {
		t.Salary = &salary.Float64
	}
	t.CreatedAt = time.Unix(created, 0).UTC()
	t.UpdatedAt = time.Unix(updated, 0).UTC()
	return t, nil
}

func (s *Store) teacherQuery() sq.SelectBuilder {
	return psql.Select(teacherCols...).From("teachers t")
}

func (s *Store) ListTeachers(ctx context.Context, scope Scope) ([]Teacher, error) {
	qb := s.teacherQuery().OrderBy("t.first_name", "t.last_name")

	switch scope.Role {
	case "admin":
	case "teacher":
		if scope.TeacherID == "" {
			return []Teacher{}, nil
		}
		qb = qb.Where(sq.Eq{"t.id": scope.TeacherID})
	case "student":
		if scope.StudentID == "" {
			return []Teacher{}, nil
		}
		qb = qb.Where("t.id = (SELECT assigned_teacher_id FROM students WHERE id = ?)", scope.StudentID)
	default:
		return []Teacher{}, nil
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "build query", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list teachers", err)
	}
	defer rows.Close()

	out := []Teacher{}
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan teacher", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTeacher(ctx context.Context, id string) (Teacher, error) {
	query, args, err := s.teacherQuery().Where(sq.Eq{"t.id": id}).ToSql()
	if err != nil {
		return Teacher{}, apperr.Wrap(apperr.Internal, "build query", err)
	}
	t, err := scanTeacher(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Teacher{}, apperr.New(apperr.NotFound, "teacher not found")
		}
		return Teacher{}, apperr.Wrap(apperr.Internal, "load teacher", err)
	}
	return t, nil
}

func (s *Store) CreateTeacher(ctx context.Context, in CreateTeacherInput) (Teacher, error) {
	if in.Password == "" {
		return Teacher{}, apperr.New(apperr.Validation, "password is required")
	}
	if len(in.Password) < 6 {
		return Teacher{}, apperr.New(apperr.Validation, "password must be at least 6 characters long")
	}
	if in.FirstName == "" || in.LastName == "" || in.Email == "" {
		return Teacher{}, apperr.New(apperr.Validation, "first_name, last_name and email are required")
	}
	if in.Status == "" {
		in.Status = "active"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Teacher{}, apperr.Wrap(apperr.Internal, "begin tx", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email=$1 OR username=$1`, in.Email).Scan(&exists)
	if err == nil {
		return Teacher{}, apperr.New(apperr.Validation, "a user with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return Teacher{}, apperr.Wrap(apperr.Internal, "check email", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return Teacher{}, apperr.Wrap(apperr.Internal, "hash password", err)
	}

	now := time.Now()
	userID := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, first_name, last_name, role, is_superuser, is_active, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,'teacher',$7,$8,$9)`,
		userID, in.Email, in.Email, string(hash), in.FirstName, in.LastName, false, true, now.Unix())
	if err != nil {
		return Teacher{}, apperr.Wrap(apperr.Internal, "create account", err)
	}

	t := Teacher{
		ID:              uuid.NewString(),
		UserID:          userID,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Email:           in.Email,
		PhoneNumber:     in.PhoneNumber,
		Subject:         in.Subject,
		Qualification:   in.Qualification,
		ExperienceYears: in.ExperienceYears,
		Salary:          in.Salary,
		Status:          in.Status,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO teachers (id, user_id, first_name, last_name, email, phone_number, subject, qualification,
		                       experience_years, salary, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		t.ID, t.UserID, t.FirstName, t.LastName, t.Email, t.PhoneNumber, t.Subject, t.Qualification,
		t.ExperienceYears, t.Salary, t.Status, now.Unix(), now.Unix())
	if err != nil {
		return Teacher{}, apperr.Wrap(apperr.Internal, "create teacher", err)
	}

	if err := tx.Commit(); err != nil {
		return Teacher{}, apperr.Wrap(apperr.Internal, "commit", err)
	}
	return t, nil
}

func (s *Store) UpdateTeacher(ctx context.Context, id string, in UpdateTeacherInput) (Teacher, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Teacher{}, apperr.Wrap(apperr.Internal, "begin tx", err)
	}
	defer tx.Rollback()

	var userID, curEmail string
	err = tx.QueryRowContext(ctx, `SELECT user_id, email FROM teachers WHERE id=$1`, id).Scan(&userID, &curEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Teacher{}, apperr.New(apperr.NotFound, "teacher not found")
		}
		return Teacher{}, apperr.Wrap(apperr.Internal, "load teacher", err)
	}

	set := map[string]interface{}{}
	if in.FirstName != nil {
		set["first_name"] = *in.FirstName
	}
	if in.LastName != nil {
		set["last_name"] = *in.LastName
	}
	if in.PhoneNumber != nil {
		set["phone_number"] = *in.PhoneNumber
	}
	if in.Subject != nil {
		set["subject"] = *in.Subject
	}
	if in.Qualification != nil {
		set["qualification"] = *in.Qualification
	}
	if in.ExperienceYears != nil {
		set["experience_years"] = *in.ExperienceYears
	}
	if in.Salary != nil {
		set["salary"] = *in.Salary
	}
	if in.Status != nil {
		set["status"] = *in.Status
	}

	if in.Email != nil && *in.Email != curEmail {
		if err := propagateEmail(ctx, tx, userID, *in.Email); err != nil {
			return Teacher{}, err
		}
		set["email"] = *in.Email
	}

	if len(set) > 0 {
		set["updated_at"] = time.Now().Unix()
		query, args, err := psql.Update("teachers").SetMap(set).Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return Teacher{}, apperr.Wrap(apperr.Internal, "build update", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return Teacher{}, apperr.Wrap(apperr.Internal, "update teacher", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Teacher{}, apperr.Wrap(apperr.Internal, "commit", err)
	}
	return s.GetTeacher(ctx, id)
}

// DeleteTeacher removes the linked account. The teachers row cascades away and
// assigned students fall back to no teacher via ON DELETE SET NULL.
func (s *Store) DeleteTeacher(ctx context.Context, id string) error {
	return s.deleteByProfile(ctx, "teachers", id, "teacher not found")
}

func (s *Store) deleteByProfile(ctx context.Context, table, id, notFoundMsg string) error {
	// table is a compile-time constant at every call site.
	var userID string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM `+table+` WHERE id=$1`, id).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, notFoundMsg)
		}
		return apperr.Wrap(apperr.Internal, "load profile", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, userID); err != nil {
		return apperr.Wrap(apperr.Internal, "delete account", err)
	}
	return nil
}

func propagateEmail(ctx context.Context, tx *sql.Tx, userID, newEmail string) error {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE (email=$1 OR username=$1) AND id<>$2`, newEmail, userID).Scan(&one)
	if err == nil {
		return apperr.New(apperr.Validation, "a user with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return apperr.Wrap(apperr.Internal, "check email", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET email=$1, username=$1 WHERE id=$2`, newEmail, userID); err != nil {
		return apperr.Wrap(apperr.Internal, "propagate email", err)
	}
	return nil
}

// ImportStudents commits valid rows one by one; a failing row is reported and
// skipped without blocking rows that already committed.
func (s *Store) ImportStudents(ctx context.Context, rows []StudentImportRow, defaultPassword string) (int, []string) {
	created := 0
	var errs []string

	for _, r := range rows {
		if r.Email == "" {
			errs = append(errs, fmt.Sprintf("Row %d: Email is required", r.Line))
			continue
		}
		if r.RollNumber == "" {
			errs = append(errs, fmt.Sprintf("Row %d: Roll number is required", r.Line))
			continue
		}

		password := r.Password
		if len(password) < 6 {
			password = defaultPassword
		}

		teacherID := ""
		if r.AssignedTeacherEmail != "" {
			err := s.db.QueryRowContext(ctx,
				`SELECT id FROM teachers WHERE email=$1`, r.AssignedTeacherEmail).Scan(&teacherID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					// Row still imports, just without the assignment.
					errs = append(errs, fmt.Sprintf("Row %d: Assigned teacher with email %s not found", r.Line, r.AssignedTeacherEmail))
					teacherID = ""
				} else {
					errs = append(errs, fmt.Sprintf("Row %d: %v", r.Line, err))
					continue
				}
			}
		}

		status := r.Status
		if status == "" {
			status = "active"
		}

		_, err := s.CreateStudent(ctx, CreateStudentInput{
			FirstName:         r.FirstName,
			LastName:          r.LastName,
			Email:             r.Email,
			PhoneNumber:       r.PhoneNumber,
			RollNumber:        r.RollNumber,
			ClassGrade:        r.ClassGrade,
			DateOfBirth:       r.DateOfBirth,
			AdmissionDate:     r.AdmissionDate,
			Status:            status,
			AssignedTeacherID: teacherID,
			Password:          password,
		})
		if err != nil {
			errs = append(errs, fmt.Sprintf("Row %d: %s", r.Line, errMessage(err)))
			continue
		}
		created++
	}
	return created, errs
}

func errMessage(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}
