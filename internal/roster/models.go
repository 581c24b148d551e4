// Package roster manages Student and Teacher records and their 1:1 link to an
// account. Creation is atomic: account, role assignment and roster row either
// all commit or none do.
package roster

import "time"

type Teacher struct {
	ID              string   `json:"id"`
	UserID          string   `json:"user_id"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Email           string   `json:"email"`
	PhoneNumber     string   `json:"phone_number"`
	Subject         string   `json:"subject"`
	Qualification   *string  `json:"qualification"`
	ExperienceYears int      `json:"experience_years"`
	Salary          *float64 `json:"salary"`
	Status          string   `json:"status"`
	StudentsCount   int      `json:"students_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Student struct {
	ID                  string  `json:"id"`
	UserID              string  `json:"user_id"`
	FirstName           string  `json:"first_name"`
	LastName            string  `json:"last_name"`
	Email               string  `json:"email"`
	PhoneNumber         string  `json:"phone_number"`
	RollNumber          string  `json:"roll_number"`
	ClassGrade          string  `json:"class_grade"`
	DateOfBirth         string  `json:"date_of_birth"`
	AdmissionDate       string  `json:"admission_date"`
	Status              string  `json:"status"`
	AssignedTeacherID   *string `json:"assigned_teacher_id"`
	AssignedTeacherName *string `json:"assigned_teacher_name"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type CreateStudentInput struct {
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Email             string `json:"email"`
	PhoneNumber       string `json:"phone_number"`
	RollNumber        string `json:"roll_number"`
	ClassGrade        string `json:"class_grade"`
	DateOfBirth       string `json:"date_of_birth"`
	AdmissionDate     string `json:"admission_date"`
	Status            string `json:"status"`
	AssignedTeacherID string `json:"assigned_teacher_id"`
	Password          string `json:"password"`
}

type CreateTeacherInput struct {
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Email           string   `json:"email"`
	PhoneNumber     string   `json:"phone_number"`
	Subject         string   `json:"subject"`
	Qualification   *string  `json:"qualification"`
	ExperienceYears int      `json:"experience_years"`
	Salary          *float64 `json:"salary"`
	Status          string   `json:"status"`
	Password        string   `json:"password"`
}

// Update inputs use pointers so absent fields are left untouched.
type UpdateStudentInput struct {
	FirstName         *string `json:"first_name"`
	LastName          *string `json:"last_name"`
	Email             *string `json:"email"`
	PhoneNumber       *string `json:"phone_number"`
	RollNumber        *string `json:"roll_number"`
	ClassGrade        *string `json:"class_grade"`
	DateOfBirth       *string `json:"date_of_birth"`
	AdmissionDate     *string `json:"admission_date"`
	Status            *string `json:"status"`
	AssignedTeacherID *string `json:"assigned_teacher_id"`
}

type UpdateTeacherInput struct {
	FirstName       *string  `json:"first_name"`
	LastName        *string  `json:"last_name"`
	Email           *string  `json:"email"`
	PhoneNumber     *string  `json:"phone_number"`
	Subject         *string  `json:"subject"`
	Qualification   *string  `json:"qualification"`
	ExperienceYears *int     `json:"experience_years"`
	Salary          *float64 `json:"salary"`
	Status          *string  `json:"status"`
}

type StudentFilter struct {
	Status            string
	ClassGrade        string
	AssignedTeacherID string
	Search            string
}

// Scope narrows list queries to what the caller's role may see.
type Scope struct {
	Role      string
	StudentID string
	TeacherID string
}

// StudentImportRow is one parsed CSV line plus its 1-based file position.
type StudentImportRow struct {
	Line                 int
	FirstName            string
	LastName             string
	Email                string
	PhoneNumber          string
	RollNumber           string
	ClassGrade           string
	DateOfBirth          string
	AdmissionDate        string
	Status               string
	Password             string
	AssignedTeacherEmail string
}
