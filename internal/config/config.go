package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Config struct {
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	CORSOrigins []string

	// ResetLinkBase is the frontend URL the raw reset token gets appended to,
	// e.g. https://app.example.com/reset
	ResetLinkBase string

	// DefaultStudentPassword is assigned to CSV-imported students that come
	// without a usable password column.
	DefaultStudentPassword string

	SMTP SMTP
}

func FromEnv() Config {
	pub := os.Getenv("PUBLIC_URL")
	return Config{
		HTTPAddr:  envOr("HTTP_ADDR", ":8080"),
		PublicURL: pub,

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		JWTSecret:  envOr("JWT_SECRET", "supersecret-dev-key"),
		AccessTTL:  envDur("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTTL: envDur("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000"),

		ResetLinkBase:          envOr("RESET_LINK_BASE", strings.TrimSuffix(pub, "/")+"/reset"),
		DefaultStudentPassword: envOr("DEFAULT_STUDENT_PASSWORD", "student123"),

		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     envOr("SMTP_FROM", "noreply@school.local"),
		},
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDur(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
