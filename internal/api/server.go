package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/dgallion1/corpusgest/internal/config"
	"github.com/dgallion1/corpusgest/internal/metrics"
	"github.com/dgallion1/corpusgest/internal/pipeline"
	"github.com/dgallion1/corpusgest/internal/sink"
)

// Searcher runs full-text queries over imported corpora.
type Searcher interface {
	Search(query string, size int) ([]sink.Hit, error)
}

// Server is the HTTP API server for corpus imports.
type Server struct {
	router       chi.Router
	handler      http.Handler
	orchestrator *pipeline.Orchestrator
	search       Searcher
	metrics      *metrics.Metrics
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. search may be nil.
func NewServer(orch *pipeline.Orchestrator, search Searcher, m *metrics.Metrics, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		search:       search,
		metrics:      m,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log, s.metrics))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/import", s.handleImport)
		r.Post("/api/import/batch", s.handleBatchImport)
		r.Get("/api/import/{jobID}/status", s.handleImportStatus)
		r.Get("/api/import/{jobID}/diagnostics", s.handleImportDiagnostics)

		r.Get("/api/search", s.handleSearch)
		r.Delete("/api/corpora", s.handleDeleteCorpus)
	})

	s.router = r
	s.handler = r
	if origins := s.cfg.Origins(); len(origins) > 0 {
		// CORS wraps auth so pre-flight requests need no token.
		s.handler = cors.New(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		}).Handler(r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
