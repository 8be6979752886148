// Package http exposes the quiz use cases over JSON HTTP and WebSocket.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"quiz-forge-service/internal/app"
	"quiz-forge-service/internal/logger"
)

type RouterConfig struct {
	Quizzes        *app.QuizService
	Accounts       *app.AccountService
	Log            *logger.Logger
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	api := &API{quizzes: cfg.Quizzes, accounts: cfg.Accounts, log: log.With("component", "http")}
	ws := NewWSHandler(cfg.Quizzes, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/users", api.createUser)
	r.Post("/sessions", api.authenticate)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth(cfg.Accounts))
		r.Get("/quizzes", api.listQuizzes)
		r.Post("/quizzes", api.createQuiz)
		r.Post("/quizzes/generate", api.generateQuiz)
		r.Post("/quizzes/placeholder", api.placeholderQuiz)
		r.Get("/quizzes/{id}", api.getQuiz)
		r.Post("/quizzes/{id}/answers", api.submitAnswer)
		r.Get("/quizzes/{id}/results", api.getResults)
		r.Get("/ws/quizzes/{id}", ws.ServeWS)
	})
	return r
}
