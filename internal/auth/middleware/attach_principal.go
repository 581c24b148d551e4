package auth

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/openschool/school-api/internal/rbac"
)

// Principal is the resolved identity every handler works against: the account,
// its DB-authoritative role and the linked role profile, if one exists. No
// handler probes for profile presence on its own.
type Principal struct {
	UserID    string
	Username  string
	Email     string
	Role      string
	StudentID string // empty unless role=student with a profile row
	TeacherID string // empty unless role=teacher with a profile row
}

// AttachPrincipal resolves the authenticated subject against the users table
// and overrides whatever role the token claimed. Unknown subjects are
// rejected; a stale token must not outlive its account.
func AttachPrincipal(db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)
			if sub == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			p := &Principal{}
			err := db.QueryRowContext(ctx,
				`SELECT id, username, email, role FROM users WHERE id=$1 AND is_active`,
				sub,
			).Scan(&p.UserID, &p.Username, &p.Email, &p.Role)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				http.Error(w, "server error", http.StatusInternalServerError)
				return
			}

			switch p.Role {
			case "student":
				if err := db.QueryRowContext(ctx,
					`SELECT id FROM students WHERE user_id=$1`, p.UserID,
				).Scan(&p.StudentID); err != nil && !errors.Is(err, sql.ErrNoRows) {
					http.Error(w, "server error", http.StatusInternalServerError)
					return
				}
			case "teacher":
				if err := db.QueryRowContext(ctx,
					`SELECT id FROM teachers WHERE user_id=$1`, p.UserID,
				).Scan(&p.TeacherID); err != nil && !errors.Is(err, sql.ErrNoRows) {
					http.Error(w, "server error", http.StatusInternalServerError)
					return
				}
			}

			ctx = WithPrincipal(ctx, p)
			ctx = rbac.WithRole(ctx, p.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
