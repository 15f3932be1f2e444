// Package server provides the HTTP API for kbassist.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kbassist/internal/chat"
	"github.com/hyperjump/kbassist/internal/config"
	"github.com/hyperjump/kbassist/internal/knowledge"
	"github.com/hyperjump/kbassist/internal/library"
	"github.com/hyperjump/kbassist/internal/metrics"
	"github.com/hyperjump/kbassist/internal/retrieval"
	"github.com/hyperjump/kbassist/internal/storage"
	"go.uber.org/zap"
)

// Deps are the components the server routes requests to.
type Deps struct {
	Base     *knowledge.Base
	Builder  *knowledge.Builder
	Library  *library.Library
	Registry storage.Registry
	Chain    *chat.Chain
	Sessions *chat.SessionStore
	Metrics  *metrics.Metrics
}

// Server is the HTTP server for the kbassist API.
type Server struct {
	deps      Deps
	retriever *retrieval.Retriever
	auth      *adminAuth
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server

	done     chan struct{}
	stopOnce sync.Once
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	auth, err := newAdminAuth(cfg.Admin.Password, cfg.Admin.SessionTimeout, time.Now)
	if err != nil {
		return nil, err
	}
	return &Server{
		deps: deps,
		retriever: retrieval.New(deps.Base, retrieval.Config{
			K:              cfg.Search.K,
			ScoreThreshold: cfg.Search.ScoreThreshold,
		}),
		auth:   auth,
		config: cfg,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/retrieve", s.handleRetrieve)
		r.Get("/sessions/{id}/history", s.handleSessionHistory)
		r.Delete("/sessions/{id}", s.handleSessionDelete)
		r.Get("/status", s.handleStatus)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/rebuild", s.handleRebuild)
				r.Get("/documents", s.handleDocumentsList)
				r.Post("/documents", s.handleDocumentsUpload)
				r.Delete("/documents/{name}", s.handleDocumentDelete)
				r.Get("/backups", s.handleBackupsList)
				r.Post("/backups", s.handleBackupCreate)
				r.Post("/backups/{name}/restore", s.handleBackupRestore)
			})
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	go s.sweepLoop()
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Rebuild rebuilds the knowledge base from the library and swaps the result
// in. The previous index keeps serving when the build fails.
func (s *Server) Rebuild(ctx context.Context) (*knowledge.BuildResult, error) {
	res, err := s.deps.Builder.Build(ctx, s.deps.Library.Dir())
	if err != nil {
		s.logger.Error("rebuild failed", zap.Error(err))
		return nil, err
	}
	s.deps.Base.Swap(res.Index, res.Manifest)
	s.logger.Info("knowledge base rebuilt",
		zap.Int("chunks", res.Manifest.NumChunks),
		zap.Int("pdfs", res.Manifest.NumPDFs))
	return res, nil
}

func (s *Server) sweepLoop() {
	interval := s.config.Admin.SessionTimeout / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			sessions := s.deps.Sessions.Sweep()
			tokens := s.auth.sweep()
			if sessions+tokens > 0 {
				s.logger.Debug("expired sessions removed", zap.Int("sessions", sessions), zap.Int("tokens", tokens))
			}
		}
	}
}
