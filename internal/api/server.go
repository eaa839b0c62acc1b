package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/mindmapper/internal/config"
	"github.com/dgallion1/mindmapper/internal/pipeline"
)

// Server is the HTTP API server for mindmapper.
type Server struct {
	router chi.Router
	svc    *pipeline.Service
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(svc *pipeline.Service, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		svc: svc,
		log: log,
		cfg: cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints when an API key is configured.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Route("/api/agents/{agentID}", func(r chi.Router) {
			r.Post("/mindmaps", s.handleGenerate)
			r.Post("/outlines", s.handleOutline)
			r.Post("/files", s.handleRenderFile)
			r.Post("/customize", s.handleCustomize)
			r.Post("/structure", s.handleStructure)
			r.Get("/artifacts", s.handleListArtifacts)
			r.Get("/operations/{opID}", s.handleOperation)
		})

		r.Get("/api/themes", s.handleThemes)
		r.Get("/api/stats/render", s.handleRenderStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
