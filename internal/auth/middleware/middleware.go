package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openschool/school-api/internal/rbac"
)

type AuthService struct {
	hmac       []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(secret string, accessTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{hmac: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"` // "admin", "teacher" or "student"
	Typ  string `json:"typ"`  // "access" or "refresh"
	jwt.RegisteredClaims
}

// TokenPair is the access/refresh pair issued at login, registration and
// refresh time.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (a *AuthService) IssuePair(sub, role string) (TokenPair, error) {
	access, err := a.issue(sub, role, "access", a.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := a.issue(sub, role, "refresh", a.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (a *AuthService) issue(sub, role, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:  sub,
		Role: role,
		Typ:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "school-api",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	c, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return c, nil
}

// ParseRefresh accepts only tokens minted with typ=refresh.
func (a *AuthService) ParseRefresh(tokenStr string) (*Claims, error) {
	c, err := a.Parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if c.Typ != "refresh" {
		return nil, errors.New("not a refresh token")
	}
	return c, nil
}

// JWTMiddleware authenticates the bearer access token and stashes subject and
// claimed role into the request context. The DB-authoritative role is attached
// afterwards by AttachPrincipal.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			c, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			if c.Typ == "refresh" {
				http.Error(w, "refresh token not accepted here", http.StatusUnauthorized)
				return
			}
			ctx := WithSubject(r.Context(), c.Sub)
			ctx = rbac.WithRole(ctx, c.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
