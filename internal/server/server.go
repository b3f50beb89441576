package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/moltworks/rapport/internal/engine"
	"github.com/moltworks/rapport/internal/store"
)

// Server is the rapport HTTP API server. Inbound interactions arrive from
// the platform client; context and export are read by the reply-generation
// and website collaborators.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server.
func New(db *store.DB, eng *engine.Engine, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/interactions", s.handleRecordInteraction)
		r.Get("/context/{account}", s.handleGetContext)
		r.Get("/export", s.handleExport)
		r.Get("/events", s.handleEvents)

		r.Get("/profiles/{account}", s.handleGetProfile)
		r.Post("/profiles/{account}/classification", s.handleSetClassification)
		r.Post("/profiles/{account}/pin", s.handlePin)

		r.Post("/sweep", s.handleSweep)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}
