package accounts

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/openschool/school-api/internal/apperr"
)

const bcryptCost = 12

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle for middleware that resolves principals.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Authenticate(ctx context.Context, username, password string) (Account, error) {
	if username == "" || password == "" {
		return Account{}, apperr.New(apperr.Validation, "username and password are required")
	}
	a, err := s.getBy(ctx, "username", username)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return Account{}, apperr.New(apperr.Auth, "invalid credentials")
		}
		return Account{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return Account{}, apperr.New(apperr.Auth, "invalid credentials")
	}

	// Superusers are treated as admins; correct a drifted role on the spot.
	if a.IsSuperuser && a.Role != RoleAdmin {
		if _, err := s.db.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, RoleAdmin, a.ID); err != nil {
			return Account{}, apperr.Wrap(apperr.Internal, "promote superuser", err)
		}
		a.Role = RoleAdmin
	}
	return a, nil
}

func (s *Store) Register(ctx context.Context, in RegisterInput) (Account, error) {
	if in.Username == "" || in.Password == "" || in.Email == "" {
		return Account{}, apperr.New(apperr.Validation, "username, password, and email are required")
	}
	if in.Role == "" {
		in.Role = RoleStudent
	}
	if !ValidRole(in.Role) {
		return Account{}, apperr.Newf(apperr.Validation, "invalid role: %s", in.Role)
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username=$1`, in.Username).Scan(&exists)
	if err == nil {
		return Account{}, apperr.New(apperr.Validation, "username already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return Account{}, apperr.Wrap(apperr.Internal, "check username", err)
	}
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email=$1`, in.Email).Scan(&exists)
	if err == nil {
		return Account{}, apperr.New(apperr.Validation, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return Account{}, apperr.Wrap(apperr.Internal, "check email", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return Account{}, apperr.Wrap(apperr.Internal, "hash password", err)
	}

	a := Account{
		ID:        uuid.NewString(),
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      in.Role,
		IsActive:  true,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, first_name, last_name, role, is_superuser, is_active, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.Username, a.Email, string(hash), a.FirstName, a.LastName, a.Role, false, true, time.Now().Unix())
	if err != nil {
		return Account{}, apperr.Wrap(apperr.Internal, "create account", err)
	}
	return a, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (Account, error) {
	return s.getBy(ctx, "id", id)
}

func (s *Store) getBy(ctx context.Context, col, val string) (Account, error) {
	// col is one of "id" / "username", never user input.
	var a Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, first_name, last_name, role, is_superuser, is_active
		 FROM users WHERE `+col+`=$1`, val).
		Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.Role, &a.IsSuperuser, &a.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, apperr.New(apperr.NotFound, "account not found")
		}
		return Account{}, apperr.Wrap(apperr.Internal, "load account", err)
	}
	return a, nil
}

// CreateResetToken invalidates any previous reset tokens for the matching
// account and mints a new single-use token. When several accounts share the
// email, an active one wins.
func (s *Store) CreateResetToken(ctx context.Context, email string) (string, Account, error) {
	if email == "" {
		return "", Account{}, apperr.New(apperr.Validation, "email is required")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, email, password_hash, first_name, last_name, role, is_superuser, is_active
		 FROM users WHERE email=$1 ORDER BY is_active DESC, created_at ASC`, email)
	if err != nil {
		return "", Account{}, apperr.Wrap(apperr.Internal, "lookup email", err)
	}
	defer rows.Close()

	var acct Account
	found := false
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.Role, &a.IsSuperuser, &a.IsActive); err != nil {
			return "", Account{}, apperr.Wrap(apperr.Internal, "scan account", err)
		}
		if !found {
			acct, found = a, true
		}
	}
	if err := rows.Err(); err != nil {
		return "", Account{}, apperr.Wrap(apperr.Internal, "iterate accounts", err)
	}
	if !found {
		return "", Account{}, apperr.New(apperr.NotFound, "user with this email does not exist")
	}
	if !acct.IsActive {
		return "", Account{}, apperr.New(apperr.Validation, "no active account found for this email, please contact admin")
	}

	token, err := randomToken()
	if err != nil {
		return "", Account{}, apperr.Wrap(apperr.Internal, "generate token", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", Account{}, apperr.Wrap(apperr.Internal, "begin tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE user_id=$1`, acct.ID); err != nil {
		return "", Account{}, apperr.Wrap(apperr.Internal, "drop old tokens", err)
	}
	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (token, user_id, created_at, expires_at, used) VALUES ($1,$2,$3,$4,$5)`,
		token, acct.ID, now.Unix(), now.Add(ResetTokenTTL).Unix(), false); err != nil {
		return "", Account{}, apperr.Wrap(apperr.Internal, "store token", err)
	}
	if err := tx.Commit(); err != nil {
		return "", Account{}, apperr.Wrap(apperr.Internal, "commit", err)
	}
	return token, acct, nil
}

func (s *Store) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return apperr.New(apperr.Validation, "token and new password are required")
	}
	if len(newPassword) < 6 {
		return apperr.New(apperr.Validation, "password must be at least 6 characters long")
	}

	var userID string
	var expiresAt int64
	var used bool
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at, used FROM password_reset_tokens WHERE token=$1`, token).
		Scan(&userID, &expiresAt, &used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.Validation, "invalid reset token")
		}
		return apperr.Wrap(apperr.Internal, "lookup token", err)
	}
	if used || time.Now().Unix() > expiresAt {
		return apperr.New(apperr.Validation, "reset token has expired or already been used")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "hash password", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "begin tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), userID); err != nil {
		return apperr.Wrap(apperr.Internal, "update password", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE password_reset_tokens SET used=$1 WHERE token=$2`, true, token); err != nil {
		return apperr.Wrap(apperr.Internal, "mark token used", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.Internal, "commit", err)
	}
	return nil
}

// ChangePassword verifies the current password and sets a new one. Previously
// issued tokens stay valid until they expire; callers are told to log in again.
func (s *Store) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" || next == "" {
		return apperr.New(apperr.Validation, "current password and new password are required")
	}
	if len(next) < 6 {
		return apperr.New(apperr.Validation, "new password must be at least 6 characters long")
	}

	a, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(current)) != nil {
		return apperr.New(apperr.Validation, "current password is incorrect")
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(next)) == nil {
		return apperr.New(apperr.Validation, "new password must be different from current password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "hash password", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), userID); err != nil {
		return apperr.Wrap(apperr.Internal, "update password", err)
	}
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, 40)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
