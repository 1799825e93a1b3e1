package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/agent"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/brevo"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/events"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/extractor"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/giphy"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/recommend"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/session"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/store"
)

// SubmissionStore is the slice of the document store the API needs.
type SubmissionStore interface {
	InsertSubmission(ctx context.Context, sub store.Submission) (string, error)
	ListAllUsers(ctx context.Context) ([]store.UserRecord, error)
}

// Deps carries everything the HTTP surface orchestrates. Mailer and Events
// are optional; the flow degrades without them.
type Deps struct {
	Sessions    *session.Manager
	Agent       *agent.Agent
	Extractor   *extractor.Extractor
	Store       SubmissionStore
	Recommender *recommend.Processor
	Gifs        *giphy.Service
	Mailer      *brevo.Client
	Events      *events.Publisher

	DashboardURL string
	Logger       *slog.Logger
}

type Server struct {
	router *chi.Mux
	port   int
	deps   Deps
}

func NewServer(port int, deps Deps) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		deps:   deps,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/uchi/status", s.status)
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", s.createSession)
		r.Post("/sessions/{sessionID}/messages", s.postMessage)
		r.Post("/submissions", s.createSubmission)
		r.Get("/users", s.listUsers)
	})

	return s
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.deps.Logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "uchi-ai-questionnaire",
		"status":  "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
