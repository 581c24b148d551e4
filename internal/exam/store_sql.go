package exam

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openschool/school-api/internal/apperr"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// ---- catalog ----

func (s *Store) CreateExam(ctx context.Context, e Exam) (Exam, error) {
	if len(strings.TrimSpace(e.Title)) < 3 {
		return Exam{}, apperr.New(apperr.Validation, "title must be at least 3 characters long")
	}
	if e.DurationMinutes <= 0 {
		return Exam{}, apperr.New(apperr.Validation, "duration must be greater than zero")
	}
	if e.CreatedBy == "" {
		return Exam{}, apperr.New(apperr.Validation, "exam must have an owning teacher")
	}

	e.ID = uuid.NewString()
	e.IsActive = true
	e.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exams (id, title, description, subject, duration_minutes, total_marks, passing_marks, created_by, is_active, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.Title, e.Description, e.Subject, e.DurationMinutes, e.TotalMarks, e.PassingMarks, e.CreatedBy, e.IsActive, e.CreatedAt.Unix())
	if err != nil {
		return Exam{}, apperr.Wrap(apperr.Internal, "create exam", err)
	}
	return e, nil
}

const examSelect = `SELECT e.id, e.title, e.description, e.subject, e.duration_minutes, e.total_marks, e.passing_marks,
       e.created_by, e.is_active,
       (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id),
       e.created_at
  FROM exams e`

func scanExam(row interface{ Scan(...any) error }) (Exam, error) {
	var e Exam
	var created int64
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Subject, &e.DurationMinutes, &e.TotalMarks,
		&e.PassingMarks, &e.CreatedBy, &e.IsActive, &e.QuestionCount, &created)
	if err != nil {
		return Exam{}, err
	}
	e.CreatedAt = time.Unix(created, 0).UTC()
	return e, nil
}

// scopeClause returns the visibility condition for exams, or ok=false when the
// caller can see nothing at all.
func scopeClause(scope Scope) (cond string, arg string, ok bool) {
	switch scope.Role {
	case "admin":
		return "", "", true
	case "teacher":
		if scope.TeacherID == "" {
			return "", "", false
		}
		return " WHERE e.created_by = $1", scope.TeacherID, true
	case "student":
		if scope.StudentID == "" {
			return "", "", false
		}
		return " WHERE e.created_by = (SELECT assigned_teacher_id FROM students WHERE id = $1)", scope.StudentID, true
	default:
		return "", "", false
	}
}

func (s *Store) ListExams(ctx context.Context, scope Scope) ([]Exam, error) {
	cond, arg, ok := scopeClause(scope)
	if !ok {
		return []Exam{}, nil
	}
	query := examSelect + cond + " ORDER BY e.created_at DESC"
	var rows *sql.Rows
	var err error
	if cond == "" {
		rows, err = s.db.QueryContext(ctx, query)
	} else {
		rows, err = s.db.QueryContext(ctx, query, arg)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list exams", err)
	}
	defer rows.Close()

	out := []Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan exam", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetExam fetches one exam within the caller's visibility; an exam outside the
// scope reads as not found, same as a missing one.
func (s *Store) GetExam(ctx context.Context, scope Scope, id string) (Exam, error) {
	cond, arg, ok := scopeClause(scope)
	if !ok {
		return Exam{}, apperr.New(apperr.NotFound, "exam not found")
	}
	var row *sql.Row
	if cond == "" {
		row = s.db.QueryRowContext(ctx, examSelect+" WHERE e.id = $1", id)
	} else {
		row = s.db.QueryRowContext(ctx, examSelect+cond+" AND e.id = $2", arg, id)
	}
	e, err := scanExam(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Exam{}, apperr.New(apperr.NotFound, "exam not found")
		}
		return Exam{}, apperr.Wrap(apperr.Internal, "load exam", err)
	}
	return e, nil
}

func (s *Store) UpdateExam(ctx context.Context, id string, in UpdateExamInput) (Exam, error) {
	e, err := s.GetExam(ctx, Scope{Role: "admin"}, id)
	if err != nil {
		return Exam{}, err
	}
	if in.Title != nil {
		if len(strings.TrimSpace(*in.Title)) < 3 {
			return Exam{}, apperr.New(apperr.Validation, "title must be at least 3 characters long")
		}
		e.Title = *in.Title
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.Subject != nil {
		e.Subject = *in.Subject
	}
	if in.DurationMinutes != nil {
		if *in.DurationMinutes <= 0 {
			return Exam{}, apperr.New(apperr.Validation, "duration must be greater than zero")
		}
		e.DurationMinutes = *in.DurationMinutes
	}
	if in.TotalMarks != nil {
		e.TotalMarks = *in.TotalMarks
	}
	if in.PassingMarks != nil {
		e.PassingMarks = *in.PassingMarks
	}
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE exams SET title=$1, description=$2, subject=$3, duration_minutes=$4, total_marks=$5, passing_marks=$6, is_active=$7
		 WHERE id=$8`,
		e.Title, e.Description, e.Subject, e.DurationMinutes, e.TotalMarks, e.PassingMarks, e.IsActive, id)
	if err != nil {
		return Exam{}, apperr.Wrap(apperr.Internal, "update exam", err)
	}
	return e, nil
}

func (s *Store) DeleteExam(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exams WHERE id=$1`, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "delete exam", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.NotFound, "exam not found")
	}
	return nil
}

// CreateQuestion adds a question to an exam the teacher owns. An empty
// teacherID means an admin call and skips the ownership check.
func (s *Store) CreateQuestion(ctx context.Context, q Question, teacherID string) (Question, error) {
	if len(strings.TrimSpace(q.QuestionText)) < 5 {
		return Question{}, apperr.New(apperr.Validation, "question text must be at least 5 characters long")
	}
	if !validLetter(q.CorrectAnswer) {
		return Question{}, apperr.New(apperr.Validation, "correct_answer must be one of A, B, C, D")
	}
	if q.Marks <= 0 {
		q.Marks = 1
	}

	var createdBy string
	err := s.db.QueryRowContext(ctx, `SELECT created_by FROM exams WHERE id=$1`, q.ExamID).Scan(&createdBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, apperr.New(apperr.NotFound, "exam not found")
		}
		return Question{}, apperr.Wrap(apperr.Internal, "load exam", err)
	}
	if teacherID != "" && createdBy != teacherID {
		return Question{}, apperr.New(apperr.Permission, "you can only add questions to your own exams")
	}

	q.ID = uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO questions (id, exam_id, question_text, option_a, option_b, option_c, option_d, correct_answer, marks)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		q.ID, q.ExamID, q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectAnswer, q.Marks)
	if err != nil {
		return Question{}, apperr.Wrap(apperr.Internal, "create question", err)
	}
	return q, nil
}

// ListQuestions returns questions on the teacher's own exams, or all of them
// for an admin (empty teacherID).
func (s *Store) ListQuestions(ctx context.Context, teacherID string) ([]Question, error) {
	query := `SELECT q.id, q.exam_id, q.question_text, q.option_a, q.option_b, q.option_c, q.option_d, q.correct_answer, q.marks
	            FROM questions q JOIN exams e ON e.id = q.exam_id`
	var rows *sql.Rows
	var err error
	if teacherID == "" {
		rows, err = s.db.QueryContext(ctx, query)
	} else {
		rows, err = s.db.QueryContext(ctx, query+` WHERE e.created_by = $1`, teacherID)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list questions", err)
	}
	defer rows.Close()

	out := []Question{}
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectAnswer, &q.Marks); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan question", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// questionOwner loads the question and the id of the teacher owning its exam.
func (s *Store) questionOwner(ctx context.Context, questionID string) (Question, string, error) {
	var q Question
	var createdBy string
	err := s.db.QueryRowContext(ctx,
		`SELECT q.id, q.exam_id, q.question_text, q.option_a, q.option_b, q.option_c, q.option_d, q.correct_answer, q.marks, e.created_by
		   FROM questions q JOIN exams e ON e.id = q.exam_id
		  WHERE q.id=$1`, questionID).
		Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectAnswer, &q.Marks, &createdBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, "", apperr.New(apperr.NotFound, "question not found")
		}
		return Question{}, "", apperr.Wrap(apperr.Internal, "load question", err)
	}
	return q, createdBy, nil
}

// UpdateQuestion rewrites a question in place. An empty teacherID is the admin
// path, same convention as CreateQuestion.
func (s *Store) UpdateQuestion(ctx context.Context, id string, in UpdateQuestionInput, teacherID string) (Question, error) {
	q, createdBy, err := s.questionOwner(ctx, id)
	if err != nil {
		return Question{}, err
	}
	if teacherID != "" && createdBy != teacherID {
		return Question{}, apperr.New(apperr.Permission, "you can only edit questions on your own exams")
	}

	if in.QuestionText != nil {
		if len(strings.TrimSpace(*in.QuestionText)) < 5 {
			return Question{}, apperr.New(apperr.Validation, "question text must be at least 5 characters long")
		}
		q.QuestionText = *in.QuestionText
	}
	if in.OptionA != nil {
		q.OptionA = *in.OptionA
	}
	if in.OptionB != nil {
		q.OptionB = *in.OptionB
	}
	if in.OptionC != nil {
		q.OptionC = *in.OptionC
	}
	if in.OptionD != nil {
		q.OptionD = *in.OptionD
	}
	if in.CorrectAnswer != nil {
		if !validLetter(*in.CorrectAnswer) {
			return Question{}, apperr.New(apperr.Validation, "correct_answer must be one of A, B, C, D")
		}
		q.CorrectAnswer = *in.CorrectAnswer
	}
	if in.Marks != nil {
		if *in.Marks <= 0 {
			return Question{}, apperr.New(apperr.Validation, "marks must be greater than zero")
		}
		q.Marks = *in.Marks
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE questions SET question_text=$1, option_a=$2, option_b=$3, option_c=$4, option_d=$5, correct_answer=$6, marks=$7
		 WHERE id=$8`,
		q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectAnswer, q.Marks, id)
	if err != nil {
		return Question{}, apperr.Wrap(apperr.Internal, "update question", err)
	}
	return q, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id, teacherID string) error {
	_, createdBy, err := s.questionOwner(ctx, id)
	if err != nil {
		return err
	}
	if teacherID != "" && createdBy != teacherID {
		return apperr.New(apperr.Permission, "you can only delete questions on your own exams")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id); err != nil {
		return apperr.Wrap(apperr.Internal, "delete question", err)
	}
	return nil
}

func (s *Store) examQuestions(ctx context.Context, examID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, exam_id, question_text, option_a, option_b, option_c, option_d, correct_answer, marks
		   FROM questions WHERE exam_id=$1`, examID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load questions", err)
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectAnswer, &q.Marks); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan question", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ---- attempt workflow ----

// Start is the NotStarted/InProgress -> InProgress transition. A missing
// attempt is created, an in-progress one is reset to a clean slate (fresh
// start timestamp, zeroed score, previous answers discarded), a completed one
// is rejected with the recorded score. The unique (student_id, exam_id)
// constraint backstops concurrent starts.
func (s *Store) Start(ctx context.Context, examID, studentID string) (StartResult, error) {
	var title string
	var duration, totalMarks int
	err := s.db.QueryRowContext(ctx,
		`SELECT title, duration_minutes, total_marks FROM exams WHERE id=$1`, examID).
		Scan(&title, &duration, &totalMarks)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StartResult{}, apperr.New(apperr.NotFound, "exam not found")
		}
		return StartResult{}, apperr.Wrap(apperr.Internal, "load exam", err)
	}

	questions, err := s.examQuestions(ctx, examID)
	if err != nil {
		return StartResult{}, err
	}
	if len(questions) == 0 {
		return StartResult{}, apperr.New(apperr.NotFound, "this exam has no questions")
	}

	now := time.Now().UTC()
	attempt := StudentExam{
		StudentID:      studentID,
		ExamID:         examID,
		StartedAt:      now,
		TotalQuestions: len(questions),
	}

	var attemptID string
	var completedAt sql.NullInt64
	var prevScore int
	err = s.db.QueryRowContext(ctx,
		`SELECT id, completed_at, score FROM student_exams WHERE student_id=$1 AND exam_id=$2`,
		studentID, examID).Scan(&attemptID, &completedAt, &prevScore)
	switch {
	case err == nil:
		if completedAt.Valid {
			return StartResult{}, apperr.Newf(apperr.Validation,
				"you have already completed this exam (score %d/%d)", prevScore, totalMarks)
		}
		// In progress: reset to a clean slate and drop saved answers.
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return StartResult{}, apperr.Wrap(apperr.Internal, "begin tx", err)
		}
		defer tx.Rollback()
		if _, err := tx.ExecContext(ctx,
			`UPDATE student_exams SET started_at=$1, score=0, correct_answers=0, is_passed=$2, total_questions=$3
			 WHERE id=$4`, now.Unix(), false, len(questions), attemptID); err != nil {
			return StartResult{}, apperr.Wrap(apperr.Internal, "reset attempt", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM student_answers WHERE student_exam_id=$1`, attemptID); err != nil {
			return StartResult{}, apperr.Wrap(apperr.Internal, "clear answers", err)
		}
		if err := tx.Commit(); err != nil {
			return StartResult{}, apperr.Wrap(apperr.Internal, "commit", err)
		}
		attempt.ID = attemptID

	case errors.Is(err, sql.ErrNoRows):
		attempt.ID = uuid.NewString()
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO student_exams (id, student_id, exam_id, started_at, completed_at, score, total_questions, correct_answers, is_passed)
			 VALUES ($1,$2,$3,$4,NULL,0,$5,0,$6)`,
			attempt.ID, studentID, examID, now.Unix(), len(questions), false)
		if err != nil {
			if isUniqueViolation(err) {
				return StartResult{}, apperr.New(apperr.Conflict, "an attempt for this exam already exists")
			}
			return StartResult{}, apperr.Wrap(apperr.Internal, "create attempt", err)
		}

	default:
		return StartResult{}, apperr.Wrap(apperr.Internal, "load attempt", err)
	}

	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, QuestionView{
			ID: q.ID, QuestionText: q.QuestionText,
			OptionA: q.OptionA, OptionB: q.OptionB, OptionC: q.OptionC, OptionD: q.OptionD,
			Marks: q.Marks,
		})
	}
	return StartResult{
		ExamTitle:       title,
		DurationMinutes: duration,
		TotalMarks:      totalMarks,
		Attempt:         attempt,
		Questions:       views,
	}, nil
}

// Submit is the terminal InProgress -> Completed transition. Prior answers are
// replaced wholesale, unknown question ids and invalid letters are skipped,
// and the attempt is never mutated again once completed_at is set.
func (s *Store) Submit(ctx context.Context, examID, studentID string, answers []AnswerSubmission) (SubmitResult, error) {
	var passingMarks, totalMarks int
	err := s.db.QueryRowContext(ctx,
		`SELECT passing_marks, total_marks FROM exams WHERE id=$1`, examID).Scan(&passingMarks, &totalMarks)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SubmitResult{}, apperr.New(apperr.NotFound, "exam not found")
		}
		return SubmitResult{}, apperr.Wrap(apperr.Internal, "load exam", err)
	}

	if len(answers) == 0 {
		return SubmitResult{}, apperr.New(apperr.Validation, "no answers provided")
	}

	questions, err := s.examQuestions(ctx, examID)
	if err != nil {
		return SubmitResult{}, err
	}
	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	now := time.Now().UTC()

	var attemptID string
	var completedAt sql.NullInt64
	var prevScore int
	err = s.db.QueryRowContext(ctx,
		`SELECT id, completed_at, score FROM student_exams WHERE student_id=$1 AND exam_id=$2`,
		studentID, examID).Scan(&attemptID, &completedAt, &prevScore)
	switch {
	case err == nil:
		if completedAt.Valid {
			return SubmitResult{}, apperr.Newf(apperr.Validation,
				"exam already completed (score %d/%d)", prevScore, totalMarks)
		}
	case errors.Is(err, sql.ErrNoRows):
		// Submitting without an explicit start is allowed; the attempt row is
		// created on the spot.
		attemptID = uuid.NewString()
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO student_exams (id, student_id, exam_id, started_at, completed_at, score, total_questions, correct_answers, is_passed)
			 VALUES ($1,$2,$3,$4,NULL,0,$5,0,$6)`,
			attemptID, studentID, examID, now.Unix(), len(questions), false)
		if err != nil {
			if isUniqueViolation(err) {
				return SubmitResult{}, apperr.New(apperr.Conflict, "an attempt for this exam already exists")
			}
			return SubmitResult{}, apperr.Wrap(apperr.Internal, "create attempt", err)
		}
	default:
		return SubmitResult{}, apperr.Wrap(apperr.Internal, "load attempt", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SubmitResult{}, apperr.Wrap(apperr.Internal, "begin tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM student_answers WHERE student_exam_id=$1`, attemptID); err != nil {
		return SubmitResult{}, apperr.Wrap(apperr.Internal, "clear answers", err)
	}

	score, correct := 0, 0
	for _, a := range answers {
		if !validLetter(a.SelectedAnswer) {
			continue
		}
		q, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		isCorrect := q.CorrectAnswer == a.SelectedAnswer
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO student_answers (id, student_exam_id, question_id, selected_answer, is_correct)
			 VALUES ($1,$2,$3,$4,$5)`,
			uuid.NewString(), attemptID, q.ID, a.SelectedAnswer, isCorrect); err != nil {
			return SubmitResult{}, apperr.Wrap(apperr.Internal, "store answer", err)
		}
		if isCorrect {
			score += q.Marks
			correct++
		}
	}

	isPassed := score >= passingMarks
	if _, err := tx.ExecContext(ctx,
		`UPDATE student_exams SET score=$1, correct_answers=$2, is_passed=$3, completed_at=$4, total_questions=$5
		 WHERE id=$6`,
		score, correct, isPassed, now.Unix(), len(questions), attemptID); err != nil {
		return SubmitResult{}, apperr.Wrap(apperr.Internal, "complete attempt", err)
	}
	if err := tx.Commit(); err != nil {
		return SubmitResult{}, apperr.Wrap(apperr.Internal, "commit", err)
	}

	return SubmitResult{
		Score:          score,
		TotalMarks:     totalMarks,
		CorrectAnswers: correct,
		TotalQuestions: len(questions),
		IsPassed:       isPassed,
		CompletedAt:    now,
	}, nil
}

// ListAttempts returns the student's own attempts, newest first.
func (s *Store) ListAttempts(ctx context.Context, studentID string) ([]StudentExam, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT se.id, se.student_id, se.exam_id, e.title, se.started_at, se.completed_at,
		        se.score, se.total_questions, se.correct_answers, se.is_passed
		   FROM student_exams se JOIN exams e ON e.id = se.exam_id
		  WHERE se.student_id=$1
		  ORDER BY se.started_at DESC`, studentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list attempts", err)
	}
	defer rows.Close()

	out := []StudentExam{}
	for rows.Next() {
		se, err := scanAttempt(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan attempt", err)
		}
		out = append(out, se)
	}
	return out, rows.Err()
}

func scanAttempt(row interface{ Scan(...any) error }) (StudentExam, error) {
	var se StudentExam
	var started int64
	var completed sql.NullInt64
	err := row.Scan(&se.ID, &se.StudentID, &se.ExamID, &se.ExamTitle, &started, &completed,
		&se.Score, &se.TotalQuestions, &se.CorrectAnswers, &se.IsPassed)
	if err != nil {
		return StudentExam{}, err
	}
	se.StartedAt = time.Unix(started, 0).UTC()
	if completed.Valid {
		t := time.Unix(completed.Int64, 0).UTC()
		se.CompletedAt = &t
	}
	return se, nil
}

// Result reconstructs the per-question breakdown of a finished attempt. Only
// the owning student can read it; an attempt still in progress is rejected.
func (s *Store) Result(ctx context.Context, attemptID, studentID string) (ResultView, error) {
	var title string
	var totalMarks, score int
	var isPassed bool
	var completed sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT e.title, e.total_marks, se.score, se.is_passed, se.completed_at
		   FROM student_exams se JOIN exams e ON e.id = se.exam_id
		  WHERE se.id=$1 AND se.student_id=$2`, attemptID, studentID).
		Scan(&title, &totalMarks, &score, &isPassed, &completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ResultView{}, apperr.New(apperr.NotFound, "attempt not found")
		}
		return ResultView{}, apperr.Wrap(apperr.Internal, "load attempt", err)
	}
	if !completed.Valid {
		return ResultView{}, apperr.New(apperr.Validation, "exam not completed yet")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT q.question_text, a.selected_answer, q.correct_answer, a.is_correct
		   FROM student_answers a JOIN questions q ON q.id = a.question_id
		  WHERE a.student_exam_id=$1`, attemptID)
	if err != nil {
		return ResultView{}, apperr.Wrap(apperr.Internal, "load answers", err)
	}
	defer rows.Close()

	answers := []AnswerReview{}
	for rows.Next() {
		var ar AnswerReview
		if err := rows.Scan(&ar.Question, &ar.SelectedAnswer, &ar.CorrectAnswer, &ar.IsCorrect); err != nil {
			return ResultView{}, apperr.Wrap(apperr.Internal, "scan answer", err)
		}
		answers = append(answers, ar)
	}
	if err := rows.Err(); err != nil {
		return ResultView{}, apperr.Wrap(apperr.Internal, "iterate answers", err)
	}

	return ResultView{
		ExamTitle:   title,
		Score:       score,
		TotalMarks:  totalMarks,
		IsPassed:    isPassed,
		CompletedAt: time.Unix(completed.Int64, 0).UTC(),
		Answers:     answers,
	}, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}
