// Package api exposes the export pipeline over HTTP: a stateless convert
// endpoint plus CRUD over stored captures.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quillhq/convoexport/internal/pipeline"
	"github.com/quillhq/convoexport/internal/record"
	"github.com/quillhq/convoexport/internal/store"
)

type Server struct {
	router *chi.Mux
	port   int
	pipe   *pipeline.Pipeline
	store  *store.Store
}

// NewServer wires the route table. The store may be nil when the daemon runs
// without a database (file mode); capture routes then return 503.
func NewServer(port int, apiToken string, pipe *pipeline.Pipeline, st *store.Store) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		pipe:   pipe,
		store:  st,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/status", s.status)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/exports", s.export)
		r.Post("/captures", s.createCapture)
		r.Get("/captures", s.listCaptures)
		r.Get("/captures/{id}", s.getCapture)
		r.Delete("/captures/{id}", s.deleteCapture)
		r.Post("/captures/{id}/export", s.exportCapture)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"service": "convoexport",
		"platforms": []record.Platform{
			record.PlatformChatGPT,
			record.PlatformClaude,
			record.PlatformCopilot,
			record.PlatformDeepSeek,
		},
		"storage": s.store != nil,
	})
}

// BearerAuthMiddleware enforces a static bearer token on mutating routes.
// An empty configured token disables the check (local single-user setup).
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
