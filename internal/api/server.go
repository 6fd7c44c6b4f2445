package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/dgallion1/badgebind/internal/binder"
	"github.com/dgallion1/badgebind/internal/collect"
	"github.com/dgallion1/badgebind/internal/config"
	"github.com/dgallion1/badgebind/internal/pipeline"
	"github.com/dgallion1/badgebind/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for badgebind.
type Server struct {
	router       chi.Router
	binder       *binder.Binder
	source       binder.Fetcher
	orchestrator *pipeline.Orchestrator
	collector    *collect.Collector
	stats        *stats.Window
	log          *slog.Logger
	cfg          config.Config

	collectMu sync.Mutex
}

// NewServer creates and configures the HTTP server. collector may be nil
// when no profile is configured.
func NewServer(b *binder.Binder, src binder.Fetcher, orch *pipeline.Orchestrator, coll *collect.Collector, st *stats.Window, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		binder:       b,
		source:       src,
		orchestrator: orch,
		collector:    coll,
		stats:        st,
		log:          log,
		cfg:          cfg,
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
	r.Get("/badge", s.handleBadgeHTML)
	r.Get("/badge.md", s.handleBadgeMarkdown)
	r.Get("/badge.docx", s.handleBadgeDOCX)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Get("/api/resolve", s.handleResolve)
		r.Post("/api/snapshots", s.handleSnapshot)
		r.Get("/api/snapshots/{jobID}/status", s.handleSnapshotStatus)
		r.Get("/api/snapshots/{jobID}/png", s.handleSnapshotPNG)
		r.Post("/api/collect", s.handleCollect)
		r.Get("/api/stats/bind", s.handleBindStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
