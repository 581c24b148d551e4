package exam

import "time"

type Exam struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Subject         string    `json:"subject"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalMarks      int       `json:"total_marks"`
	PassingMarks    int       `json:"passing_marks"`
	CreatedBy       string    `json:"created_by"` // owning teacher id
	IsActive        bool      `json:"is_active"`
	QuestionCount   int       `json:"question_count"`
	CreatedAt       time.Time `json:"created_at"`
}

type Question struct {
	ID            string `json:"id"`
	ExamID        string `json:"exam_id"`
	QuestionText  string `json:"question_text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectAnswer string `json:"correct_answer"`
	Marks         int    `json:"marks"`
}

// QuestionView is the student-facing shape of a question: same fields minus
// the answer key.
type QuestionView struct {
	ID           string `json:"id"`
	QuestionText string `json:"question_text"`
	OptionA      string `json:"option_a"`
	OptionB      string `json:"option_b"`
	OptionC      string `json:"option_c"`
	OptionD      string `json:"option_d"`
	Marks        int    `json:"marks"`
}

// StudentExam is one attempt: at most one row per (student, exam) pair ever.
// A nil CompletedAt means the attempt is still in progress; once set, the row
// is immutable.
type StudentExam struct {
	ID             string     `json:"id"`
	StudentID      string     `json:"student_id"`
	ExamID         string     `json:"exam_id"`
	ExamTitle      string     `json:"exam_title,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"total_questions"`
	CorrectAnswers int        `json:"correct_answers"`
	IsPassed       bool       `json:"is_passed"`
}

type AnswerSubmission struct {
	QuestionID     string `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
}

type StartResult struct {
	ExamTitle       string         `json:"exam_title"`
	DurationMinutes int            `json:"duration_minutes"`
	TotalMarks      int            `json:"total_marks"`
	Attempt         StudentExam    `json:"attempt"`
	Questions       []QuestionView `json:"questions"`
}

type SubmitResult struct {
	Score          int       `json:"score"`
	TotalMarks     int       `json:"total_marks"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	IsPassed       bool      `json:"is_passed"`
	CompletedAt    time.Time `json:"completed_at"`
}

type AnswerReview struct {
	Question       string `json:"question"`
	SelectedAnswer string `json:"selected_answer"`
	CorrectAnswer  string `json:"correct_answer"`
	IsCorrect      bool   `json:"is_correct"`
}

type ResultView struct {
	ExamTitle   string         `json:"exam_title"`
	Score       int            `json:"score"`
	TotalMarks  int            `json:"total_marks"`
	IsPassed    bool           `json:"is_passed"`
	CompletedAt time.Time      `json:"completed_at"`
	Answers     []AnswerReview `json:"answers"`
}

type UpdateQuestionInput struct {
	QuestionText  *string `json:"question_text"`
	OptionA       *string `json:"option_a"`
	OptionB       *string `json:"option_b"`
	OptionC       *string `json:"option_c"`
	OptionD       *string `json:"option_d"`
	CorrectAnswer *string `json:"correct_answer"`
	Marks         *int    `json:"marks"`
}

type UpdateExamInput struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	Subject         *string `json:"subject"`
	DurationMinutes *int    `json:"duration_minutes"`
	TotalMarks      *int    `json:"total_marks"`
	PassingMarks    *int    `json:"passing_marks"`
	IsActive        *bool   `json:"is_active"`
}

// Scope narrows catalog queries to what the caller may see: admins see all,
// teachers their own exams, students their assigned teacher's exams.
type Scope struct {
	Role      string
	TeacherID string
	StudentID string
}

func validLetter(s string) bool {
	return s == "A" || s == "B" || s == "C" || s == "D"
}
