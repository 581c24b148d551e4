package exam

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openschool/school-api/internal/apperr"
	"github.com/openschool/school-api/internal/db"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	h, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func seedTeacher(t *testing.T, h *sql.DB) string {
	t.Helper()
	ctx := context.Background()
	userID := uuid.NewString()
	teacherID := uuid.NewString()
	now := time.Now().Unix()
	_, err := h.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, created_at)
		 VALUES ($1,$2,$3,'x','teacher',$4)`,
		userID, "t-"+userID, userID+"@example.com", now)
	require.NoError(t, err)
	_, err = h.ExecContext(ctx,
		`INSERT INTO teachers (id, user_id, first_name, last_name, email, created_at, updated_at)
		 VALUES ($1,$2,'Jane','Doe',$3,$4,$4)`,
		teacherID, userID, userID+"@t.example.com", now)
	require.NoError(t, err)
	return teacherID
}

func seedStudent(t *testing.T, h *sql.DB, teacherID string) string {
	t.Helper()
	ctx := context.Background()
	userID := uuid.NewString()
	studentID := uuid.NewString()
	now := time.Now().Unix()
	_, err := h.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, created_at)
		 VALUES ($1,$2,$3,'x','student',$4)`,
		userID, "s-"+userID, userID+"@example.com", now)
	require.NoError(t, err)
	var assigned any
	if teacherID != "" {
		assigned = teacherID
	}
	_, err = h.ExecContext(ctx,
		`INSERT INTO students (id, user_id, first_name, last_name, email, roll_number, assigned_teacher_id, created_at, updated_at)
		 VALUES ($1,$2,'John','Roe',$3,$4,$5,$6,$6)`,
		studentID, userID, userID+"@s.example.com", "R-"+studentID[:8], assigned, now)
	require.NoError(t, err)
	return studentID
}

func seedExam(t *testing.T, s *Store, teacherID string, passingMarks int, marks ...int) (Exam, []Question) {
	t.Helper()
	ctx := context.Background()
	total := 0
	for _, m := range marks {
		total += m
	}
	e, err := s.CreateExam(ctx, Exam{
		Title:           "Algebra Basics",
		DurationMinutes: 30,
		TotalMarks:      total,
		PassingMarks:    passingMarks,
		CreatedBy:       teacherID,
	})
	require.NoError(t, err)

	qs := make([]Question, 0, len(marks))
	for i, m := range marks {
		q, err := s.CreateQuestion(ctx, Question{
			ExamID:        e.ID,
			QuestionText:  fmt.Sprintf("question number %d", i+1),
			OptionA:       "a", OptionB: "b", OptionC: "c", OptionD: "d",
			CorrectAnswer: "B",
			Marks:         m,
		}, teacherID)
		require.NoError(t, err)
		qs = append(qs, q)
	}
	return e, qs
}

func TestCreateExamValidation(t *testing.T) {
	h := newTestDB(t)
	s := NewStore(h)
	teacherID := seedTeacher(t, h)
	ctx := context.Background()

	_, err := s.CreateExam(ctx, Exam{Title: "ab", DurationMinutes: 10, CreatedBy: teacherID})
	require.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = s.CreateExam(ctx, Exam{Title: "Valid Title", DurationMinutes: 0, CreatedBy: teacherID})
	require.Equal(t, apperr.Validation, apperr.KindOf(err))

	e, err := s.CreateExam(ctx, Exam{Title: "Valid Title", DurationMinutes: 10, CreatedBy: teacherID})
	require.NoError(t, err)
	require.True(t, e.IsActive)
	require.NotEmpty(t, e.ID)
}

func TestExamVisibilityScopes(t *testing.T) {
	h := newTestDB(t)
	s := NewStore(h)
	ctx := context.Background()

	t1 := seedTeacher(t, h)
	t2 := seedTeacher(t, h)
	st := seedStudent(t, h, t1)
	unassigned := seedStudent(t, h, "")

	e1, _ := seedExam(t, s, t1, 1, 1)
	e2, _ := seedExam(t, s, t2, 1, 1)

	all, err := s.ListExams(ctx, Scope{Role: "admin"})
	require.NoError(t, err)
	require.Len(t, all, 2)

	mine, err := s.ListExams(ctx, Scope{Role: "teacher", TeacherID: t1})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, e1.ID, mine[0].ID)

	visible, err := s.ListExams(ctx, Scope{Role: "student", StudentID: st})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, e1.ID, visible[0].ID)

	// Another teacher's exam reads as missing, not forbidden.
	_, err = s.GetExam(ctx, Scope{Role: "student", StudentID: st}, e2.ID)
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))

	none, err := s.ListExams(ctx, Scope{Role: "student", StudentID: unassigned})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestStartRequiresQuestions(t *testing.T) {
	h := newTestDB(t)
	s := NewStore(h)
	ctx := context.Background()

	teacherID := seedTeacher(t, h)
	studentID := seedStudent(t, h, teacherID)
	e, err := s.CreateExam(ctx, Exam{Title: "Empty Exam", DurationMinutes: 10, CreatedBy: teacherID})
	require.NoError(t, err)

	_, err = s.Start(ctx, e.ID, studentID)
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))
	require.Contains(t, err.Error(), "no questions")
}

func TestStartCreatesThenResetsAttempt(t *testing.T) {
	h := newTestDB(t)
	s := NewStore(h)
	ctx := context.Background()

	teacherID := seedTeacher(t, h)
	studentID := seedStudent(t, h, teacherID)
	e, qs := seedExam(t, s, teacherID, 1, 2, 3)

	res, err := s.Start(ctx, e.ID, studentID)
	require.NoError(t, err)
	require.Equal(t, "Algebra Basics", res.ExamTitle)
	require.Len(t, res.Questions, 2)
	require.Equal(t, 2, res.Attempt.TotalQuestions)
	require.Nil(t, res.Attempt.CompletedAt)

	// The student never sees the answer key on start.
	for _, q := range res.Questions {
		require.NotEmpty(t, q.QuestionText)
	}

	// Stash an answer, then restart: same attempt row, answers gone.
	_, err = h.ExecContext(ctx,
		`INSERT INTO student_answers (id, student_exam_id, question_id, selected_answer, is_correct)
		 VALUES ($1,$2,$3,'B',1)`, uuid.NewString(), res.Attempt.ID, qs[0].ID)
	require.NoError(t, err)

	res2, err := s.Start(ctx, e.ID, studentID)
	require.NoError(t, err)
	require.Equal(t, res.Attempt.ID, res2.Attempt.ID)

	var n int
	require.NoError(t, h.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM student_answers WHERE student_exam_id=$1`, res.Attempt.ID).Scan(&n))
	require.Zero(t, n)

	// Only one attempt row per (student, exam), ever.
	require.NoError(t, h.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM student_exams WHERE student_id=$1 AND exam_id=$2`, studentID, e.ID).Scan(&n))
	require.Equal(t, 1, n)
}

func TestStartAfterCompletionRejected(t *testing.T) {
	h := newTestDB(t)
	s := NewStore(h)
	ctx := context.Background()

	teacherID := seedTeacher(t, h)
	studentID := seedStudent(t, h, teacherID)
	e, qs := seedExam(t, s, teacherID, 2, 2, 3)

	_, err := s.Start(ctx, e.ID, studentID)
	require.NoError(t, err)
	_, err = s.Submit(ctx, e.ID, studentID, []AnswerSubmission{
		{QuestionID: qs[0].ID, SelectedAnswer: "B"},
	})
	require.NoError(t, err)

	_, err = s.Start(ctx, e.ID, studentID)
	require.Equal(t, apperr.Validation, apperr.KindOf(err))
	require.Contains(t, err.Error(), "already completed")
	require.Contains(t, err.Error(), "2/5")
}

func TestSubmitScoring(t *testing.T) {
	h := newTestDB(t)
	s := NewStore(h)
	ctx := context.Background()

	teacherID := seedTeacher(t, h)
	studentID := seedStudent(t, h, teacherID)
	e, qs := seedExam(t, s, teacherID, 3, 2, 3, 5)

	_, err := s.Start(ctx, e.ID, studentID)
	require.NoError(t, err)

	res, err := s.Submit(ctx, e.ID, studentID, []AnswerSubmission{
		{QuestionID: qs[0].ID, SelectedAnswer: "B"}, // correct, 2 marks
		{QuestionID: qs[1].ID, SelectedAnswer: "A"}, // wrong
		{QuestionID: qs[2].ID, SelectedAnswer: "B"}, // correct, 5 marks
	})
	require.NoError(t, err)
	require.Equal(t, 7, res.Score)
	require.Equal(t, 2, res.CorrectAnswers)
	require.Equal(t, 3, res.TotalQuestions)
	require.Equal(t, 10, res.TotalMarks)
	require.True(t, res.IsPassed)
}

func TestSubmitSkipsJunkEntries(t *testing.T) {
	h := newTestDB(t)
	s := NewStore(h)
	ctx := context.Background()

	teacherID := seedTeacher(t, h)
	studentID := seedStudent(t, h, teacherID)
	e, qs := seedExam(t, s, teacherID, 1, 4)

	_, err := s.Start(ctx, e.ID, studentID)
	require.NoError(t, err)

	// Unknown question ids and out-of-range letters are dropped, not errors.
	res, err := s.Submit(ctx, e.ID, studentID, []AnswerSubmission{
		{QuestionID: uuid.NewString(), SelectedAnswer: "A"},
		{QuestionID: qs[0].ID, SelectedAnswer: "E"},
		{QuestionID: qs[0].ID, SelectedAnswer: "B"},
	})
	require.NoError(t, err)
	require.Equal(t, 4, res.Score)
	require.Equal(t, 1, res.CorrectAnswers)
	require.True(t, res.IsPassed)

	var n int
	require.NoError(t, h.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM student_answers WHERE selected_answer='E'`).Scan(&n))
	require.Zero(t, n)
}

func TestSubmitWithoutStart(t *testing.T) {
	h := newTestDB(t)
	s := NewStore(h)
	ctx := context.Background()

	teacherID := seedTeacher(t, h)
	studentID := seedStudent(t, h, teacherID)
	e, qs := seedExam(t, s, teacherID, 0, 1)

	res, err := s.Submit(ctx, e.ID, studentID, []AnswerSubmission{
		{QuestionID: qs[0].ID, SelectedAnswer: "A"},
	})
	require.NoError(t, err)
	// passing_marks of zero means even a zero score passes
	require.Zero(t, res.Score)
	require.True(t, res.IsPassed)
}

func TestSubmitEmptyAndRepeatRejected(t *testing.T) {
	h := newTestDB(t)
	s := NewStore(h)
	ctx := context.Background()

	teacherID := seedTeacher(t, h)
	studentID := seedStudent(t, h, teacherID)
	e, qs := seedExam(t, s, teacherID, 1, 1)

	_, err := s.Submit(ctx, e.ID, studentID, nil)
	require.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = s.Submit(ctx, e.ID, studentID, []AnswerSubmission{{QuestionID: qs[0].ID, SelectedAnswer: "B"}})
	require.NoError(t, err)

	_, err = s.Submit(ctx, e.ID, studentID, []AnswerSubmission{{QuestionID: qs[0].ID, SelectedAnswer: "B"}})
	require.Equal(t, apperr.Validation, apperr.KindOf(err))
	require.Contains(t, err.Error(), "already completed")
}

func TestTotalQuestionsRefreshedAtSubmit(t *testing.T) {
	h := newTestDB(t)
	s := NewStore(h)
	ctx := context.Background()

	teacherID := seedTeacher(t, h)
	studentID := seedStudent(t, h, teacherID)
	e, qs := seedExam(t, s, teacherID, 1, 1)

	start, err := s.Start(ctx, e.ID, studentID)
	require.NoError(t, err)
	require.Equal(t, 1, start.Attempt.TotalQuestions)

	// A question added between start and submit still counts.
	_, err = s.CreateQuestion(ctx, Question{
		ExamID: e.ID, QuestionText: "late addition question",
		OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
		CorrectAnswer: "B", Marks: 1,
	}, teacherID)
	require.NoError(t, err)

	res, err := s.Submit(ctx, e.ID, studentID, []AnswerSubmission{
		{QuestionID: qs[0].ID, SelectedAnswer: "B"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.TotalQuestions)
}

func TestQuestionOwnership(t *testing.T) {
	h := newTestDB(t)
	s := NewStore(h)
	ctx := context.Background()

	t1 := seedTeacher(t, h)
	t2 := seedTeacher(t, h)
	e, _ := seedExam(t, s, t1, 1, 1)

	_, err := s.CreateQuestion(ctx, Question{
		ExamID: e.ID, QuestionText: "not your exam question",
		OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
		CorrectAnswer: "A",
	}, t2)
	require.Equal(t, apperr.Permission, apperr.KindOf(err))

	// Empty teacher id is the admin path and bypasses ownership.
	q, err := s.CreateQuestion(ctx, Question{
		ExamID: e.ID, QuestionText: "admin-added question",
		OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
		CorrectAnswer: "A",
	}, "")
	require.NoError(t, err)
	require.Equal(t, 1, q.Marks)
}

func TestUpdateAndDeleteQuestion(t *testing.T) {
	h := newTestDB(t)
	s := NewStore(h)
	ctx := context.Background()

	t1 := seedTeacher(t, h)
	t2 := seedTeacher(t, h)
	_, qs := seedExam(t, s, t1, 1, 2)

	text := "rephrased question text"
	answer := "C"
	got, err := s.UpdateQuestion(ctx, qs[0].ID, UpdateQuestionInput{
		QuestionText:  &text,
		CorrectAnswer: &answer,
	}, t1)
	require.NoError(t, err)
	require.Equal(t, text, got.QuestionText)
	require.Equal(t, "C", got.CorrectAnswer)
	require.Equal(t, 2, got.Marks)

	bad := "Z"
	_, err = s.UpdateQuestion(ctx, qs[0].ID, UpdateQuestionInput{CorrectAnswer: &bad}, t1)
	require.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = s.UpdateQuestion(ctx, qs[0].ID, UpdateQuestionInput{QuestionText: &text}, t2)
	require.Equal(t, apperr.Permission, apperr.KindOf(err))

	require.Equal(t, apperr.Permission, apperr.KindOf(s.DeleteQuestion(ctx, qs[0].ID, t2)))
	require.NoError(t, s.DeleteQuestion(ctx, qs[0].ID, t1))
	require.Equal(t, apperr.NotFound, apperr.KindOf(s.DeleteQuestion(ctx, qs[0].ID, t1)))
}

func TestResultOwnershipAndReview(t *testing.T) {
	h := newTestDB(t)
	s := NewStore(h)
	ctx := context.Background()

	teacherID := seedTeacher(t, h)
	studentID := seedStudent(t, h, teacherID)
	other := seedStudent(t, h, teacherID)
	e, qs := seedExam(t, s, teacherID, 2, 2, 3)

	start, err := s.Start(ctx, e.ID, studentID)
	require.NoError(t, err)

	_, err = s.Result(ctx, start.Attempt.ID, studentID)
	require.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = s.Submit(ctx, e.ID, studentID, []AnswerSubmission{
		{QuestionID: qs[0].ID, SelectedAnswer: "B"},
		{QuestionID: qs[1].ID, SelectedAnswer: "C"},
	})
	require.NoError(t, err)

	res, err := s.Result(ctx, start.Attempt.ID, studentID)
	require.NoError(t, err)
	require.Equal(t, 2, res.Score)
	require.Len(t, res.Answers, 2)
	require.True(t, res.IsPassed)

	// Another student's attempt id reads as missing.
	_, err = s.Result(ctx, start.Attempt.ID, other)
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestListAttemptsNewestFirst(t *testing.T) {
	h := newTestDB(t)
	s := NewStore(h)
	ctx := context.Background()

	teacherID := seedTeacher(t, h)
	studentID := seedStudent(t, h, teacherID)
	e, qs := seedExam(t, s, teacherID, 1, 1)

	_, err := s.Start(ctx, e.ID, studentID)
	require.NoError(t, err)
	_, err = s.Submit(ctx, e.ID, studentID, []AnswerSubmission{{QuestionID: qs[0].ID, SelectedAnswer: "B"}})
	require.NoError(t, err)

	attempts, err := s.ListAttempts(ctx, studentID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	require.Equal(t, "Algebra Basics", attempts[0].ExamTitle)
	require.NotNil(t, attempts[0].CompletedAt)
}
