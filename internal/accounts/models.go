// Package accounts owns the identity store: user rows, role assignment,
// password reset tokens and the role-enriched user payload returned by the
// auth endpoints.
package accounts

import "time"

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// ResetTokenTTL is how long a password reset token stays valid.
const ResetTokenTTL = time.Hour

type Account struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Role         string `json:"role"`
	IsSuperuser  bool   `json:"-"`
	IsActive     bool   `json:"-"`
	PasswordHash string `json:"-"`
}

type RegisterInput struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleTeacher || r == RoleStudent
}
