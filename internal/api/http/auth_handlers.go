package http

import (
	"net/http"
	"strings"

	"github.com/openschool/school-api/internal/accounts"
	"github.com/openschool/school-api/internal/apperr"
	authmw "github.com/openschool/school-api/internal/auth/middleware"
	"github.com/openschool/school-api/internal/mail"
)

func LoginHandler(st *accounts.Store, svc *authmw.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		a, err := st.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			writeErr(w, err)
			return
		}
		user, err := st.UserPayload(r.Context(), a)
		if err != nil {
			writeErr(w, err)
			return
		}
		pair, err := svc.IssuePair(a.ID, a.Role)
		if err != nil {
			writeErr(w, apperr.Wrap(apperr.Internal, "issue tokens", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access":  pair.Access,
			"refresh": pair.Refresh,
			"user":    user,
		})
	}
}

func RegisterHandler(st *accounts.Store, svc *authmw.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accounts.RegisterInput
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		a, err := st.Register(r.Context(), req)
		if err != nil {
			writeErr(w, err)
			return
		}
		user, err := st.UserPayload(r.Context(), a)
		if err != nil {
			writeErr(w, err)
			return
		}
		pair, err := svc.IssuePair(a.ID, a.Role)
		if err != nil {
			writeErr(w, apperr.Wrap(apperr.Internal, "issue tokens", err))
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"access":  pair.Access,
			"refresh": pair.Refresh,
			"user":    user,
		})
	}
}

func RefreshHandler(st *accounts.Store, svc *authmw.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Refresh string `json:"refresh"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		claims, err := svc.ParseRefresh(req.Refresh)
		if err != nil {
			writeErr(w, apperr.New(apperr.Auth, "invalid refresh token"))
			return
		}
		// Role is re-read from the DB so a role change invalidates old claims.
		a, err := st.GetByID(r.Context(), claims.Sub)
		if err != nil || !a.IsActive {
			writeErr(w, apperr.New(apperr.Auth, "invalid refresh token"))
			return
		}
		pair, err := svc.IssuePair(a.ID, a.Role)
		if err != nil {
			writeErr(w, apperr.Wrap(apperr.Internal, "issue tokens", err))
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

func ForgotPasswordHandler(st *accounts.Store, sender mail.Sender, linkBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		token, acct, err := st.CreateResetToken(r.Context(), req.Email)
		if err != nil {
			writeErr(w, err)
			return
		}
		name := acct.FirstName
		if name == "" {
			name = acct.Username
		}
		link := strings.TrimSuffix(linkBase, "/") + "/" + token
		if err := sender.SendPasswordReset(acct.Email, name, link); err != nil {
			writeErr(w, apperr.Wrap(apperr.Internal, "failed to send email", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Password reset email sent successfully. Please check your email.",
		})
	}
}

func ResetPasswordHandler(st *accounts.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token       string `json:"token"`
			NewPassword string `json:"new_password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		if err := st.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Password reset successfully. You can now login with your new password.",
		})
	}
}

func ChangePasswordHandler(st *accounts.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := authmw.PrincipalFromContext(r.Context())
		if p == nil {
			writeErr(w, apperr.New(apperr.Auth, "unauthorized"))
			return
		}
		var req struct {
			CurrentPassword string `json:"current_password"`
			NewPassword     string `json:"new_password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		if err := st.ChangePassword(r.Context(), p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Password changed successfully. Please login again with your new password.",
		})
	}
}
