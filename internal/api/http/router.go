package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/attempt"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/auth"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/rbac"
)

type Deps struct {
	Auth        *auth.AuthService
	Login       auth.LoginConfig
	Quizzes     quiz.Store
	Engine      *attempt.Engine
	Events      EventFeed // optional; nil leaves /events unmounted
	Logger      zerolog.Logger
	CORSOrigins []string
}

func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(d.Logger), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Login))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		pr.With(rbac.Require(rbac.PermQuizCreate)).Post("/quizzes", CreateQuizHandler(d.Quizzes))
		pr.With(rbac.Require(rbac.PermQuizView)).Get("/quizzes/{quizID}", GetQuizHandler(d.Quizzes))

		pr.With(rbac.Require(rbac.PermAttemptCreate)).Post("/quizzes/{quizID}/attempts", StartAttemptHandler(d.Engine))
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).Get("/quizzes/{quizID}/attempts", ListAttemptsHandler(d.Engine))

		pr.Route("/attempts/{attemptID}", func(ar chi.Router) {
			ar.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).Get("/", GetAttemptHandler(d.Engine))
			ar.With(rbac.Require(rbac.PermAttemptSave)).Post("/answers", SaveAnswerHandler(d.Engine))
			ar.With(rbac.Require(rbac.PermAttemptSave)).Post("/pause", PauseAttemptHandler(d.Engine))
			ar.With(rbac.Require(rbac.PermAttemptSave)).Post("/resume", ResumeAttemptHandler(d.Engine))
			ar.With(rbac.Require(rbac.PermAttemptSubmit)).Post("/submit", SubmitAttemptHandler(d.Engine))
			ar.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).Get("/review", ReviewAttemptHandler(d.Engine))
			ar.With(rbac.Require(rbac.PermAttemptGrade)).Post("/grades", ApplyGradesHandler(d.Engine))
		})

		if d.Events != nil {
			pr.With(rbac.Require(rbac.PermAttemptViewAll)).Get("/events", ListEventsHandler(d.Events))
		}
	})
	return r
}
