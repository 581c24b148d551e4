package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/openschool/school-api/internal/accounts"
	api "github.com/openschool/school-api/internal/api/http"
	auth "github.com/openschool/school-api/internal/auth/middleware"
	"github.com/openschool/school-api/internal/config"
	"github.com/openschool/school-api/internal/db"
	"github.com/openschool/school-api/internal/exam"
	"github.com/openschool/school-api/internal/mail"
	"github.com/openschool/school-api/internal/rbac"
	"github.com/openschool/school-api/internal/roster"
)

func main() {
	cfg := config.FromEnv()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	accountStore := accounts.NewStore(dbh)
	rosterStore := roster.NewStore(dbh)
	examStore := exam.NewStore(dbh)

	authSvc := auth.NewAuthService(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)

	var sender mail.Sender
	if cfg.SMTP.Host != "" {
		sender = mail.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	} else {
		sender = mail.LogSender{Log: logger}
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public surface
	r.Post("/login", api.LoginHandler(accountStore, authSvc))
	r.Post("/register", api.RegisterHandler(accountStore, authSvc))
	r.Post("/refresh", api.RefreshHandler(accountStore, authSvc))
	r.Post("/forgot-password", api.ForgotPasswordHandler(accountStore, sender, cfg.ResetLinkBase))
	r.Post("/reset-password", api.ResetPasswordHandler(accountStore))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	// Protected API (JWT → principal in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachPrincipal(dbh))

		pr.With(rbac.Require("user:change_password")).
			Post("/change-password", api.ChangePasswordHandler(accountStore))

		// Students
		pr.With(rbac.Require("student:view")).
			Get("/students", api.ListStudentsHandler(rosterStore))
		pr.With(rbac.Require("student:create")).
			Post("/students", api.CreateStudentHandler(rosterStore))
		pr.With(rbac.Require("student:export")).
			Get("/students/export-csv", api.ExportStudentsCSVHandler(rosterStore))
		pr.With(rbac.Require("student:import")).
			Post("/students/import-csv", api.ImportStudentsCSVHandler(rosterStore, cfg.DefaultStudentPassword))
		pr.With(rbac.Require("student:view")).
			Get("/students/{studentID}", api.GetStudentHandler(rosterStore))
		pr.With(rbac.Require("student:update")).
			Put("/students/{studentID}", api.UpdateStudentHandler(rosterStore))
		pr.With(rbac.Require("student:delete")).
			Delete("/students/{studentID}", api.DeleteStudentHandler(rosterStore))

		// Teachers
		pr.With(rbac.Require("teacher:view")).
			Get("/teachers", api.ListTeachersHandler(rosterStore))
		pr.With(rbac.Require("teacher:create")).
			Post("/teachers", api.CreateTeacherHandler(rosterStore))
		pr.With(rbac.Require("teacher:export")).
			Get("/teachers/export-csv", api.ExportTeachersCSVHandler(rosterStore))
		pr.With(rbac.Require("teacher:view")).
			Get("/teachers/{teacherID}", api.GetTeacherHandler(rosterStore))
		pr.With(rbac.Require("teacher:update")).
			Put("/teachers/{teacherID}", api.UpdateTeacherHandler(rosterStore))
		pr.With(rbac.Require("teacher:delete")).
			Delete("/teachers/{teacherID}", api.DeleteTeacherHandler(rosterStore))
		pr.With(rbac.Require("teacher:view")).
			Get("/teachers/{teacherID}/students", api.TeacherStudentsHandler(rosterStore))

		// Exam catalog
		pr.With(rbac.Require("exam:view")).
			Get("/exams", api.ListExamsHandler(examStore))
		pr.With(rbac.Require("exam:create")).
			Post("/exams", api.CreateExamHandler(examStore))
		pr.With(rbac.Require("exam:view")).
			Get("/exams/{examID}", api.GetExamHandler(examStore))
		pr.With(rbac.Require("exam:update")).
			Put("/exams/{examID}", api.UpdateExamHandler(examStore))
		pr.With(rbac.Require("exam:delete")).
			Delete("/exams/{examID}", api.DeleteExamHandler(examStore))

		pr.With(rbac.Require("question:view")).
			Get("/questions", api.ListQuestionsHandler(examStore))
		pr.With(rbac.Require("question:create")).
			Post("/questions", api.CreateQuestionHandler(examStore))
		pr.With(rbac.Require("question:update")).
			Put("/questions/{questionID}", api.UpdateQuestionHandler(examStore))
		pr.With(rbac.Require("question:delete")).
			Delete("/questions/{questionID}", api.DeleteQuestionHandler(examStore))

		// Attempt flow
		pr.With(rbac.Require("exam:start")).
			Post("/exams/{examID}/start-exam", api.StartExamHandler(examStore))
		pr.With(rbac.Require("exam:submit")).
			Post("/exams/{examID}/submit-exam", api.SubmitExamHandler(examStore))
		pr.With(rbac.Require("attempt:view-own")).
			Get("/student-exams", api.ListAttemptsHandler(examStore))
		pr.With(rbac.Require("attempt:view-own")).
			Get("/student-exams/{attemptID}/result", api.AttemptResultHandler(examStore))
	})

	log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
