package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/huzeyfeaktas/python-editor/internal/config"
	"github.com/huzeyfeaktas/python-editor/internal/runner"
	"github.com/huzeyfeaktas/python-editor/internal/tree"
)

// Services are the domain components the server exposes.
type Services struct {
	Tree      *tree.Service
	Engine    *runner.Engine
	Renderers []*runner.RenderRunner
}

// Server is the HTTP server for the codepad web API.
type Server struct {
	cfg    *config.Config
	tree   *tree.Service
	engine *runner.Engine
	render []*runner.RenderRunner
	runs   *RunManager
	log    *slog.Logger
	router chi.Router
	http   *http.Server
	stop   context.CancelFunc
}

// New creates a new Server.
func New(cfg *config.Config, svc Services, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		tree:   svc.Tree,
		engine: svc.Engine,
		render: svc.Renderers,
		runs:   NewRunManager(),
		log:    logger,
		router: chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.With(jsonContentType).Get("/health", s.handleHealth)
		r.With(jsonContentType).Get("/languages", s.handleLanguages)

		// Artifact names are unguessable, so viewers opened without
		// headers can load them.
		r.Get("/artifacts/{name}", s.handleArtifact)

		r.Group(func(r chi.Router) {
			r.Use(requireOwner)

			// Raw responses (no JSON content-type)
			r.Get("/files/{id}/download", s.handleDownload)
			r.Get("/projects/{id}/export", s.handleExport)
			r.Get("/execute/ws", s.handleWebSocket)

			r.Group(func(r chi.Router) {
				r.Use(jsonContentType)

				// Tree
				r.Get("/files", s.handleListFiles)
				r.Post("/files", s.handleCreateFile)
				r.Get("/files/{id}", s.handleGetFile)
				r.Put("/files/{id}", s.handleUpdateFile)
				r.Delete("/files/{id}", s.handleDeleteFile)
				r.Put("/files/{id}/rename", s.handleRenameFile)
				r.Get("/projects", s.handleListProjects)
				r.Post("/projects", s.handleCreateProject)
				r.Get("/projects/{id}/files", s.handleListProject)
				r.Post("/reconcile", s.handleReconcile)

				// Execution
				r.Post("/execute", s.handleExecute)
				r.Get("/runs", s.handleListRuns)
				r.Delete("/runs/{id}", s.handleCancelRun)
			})
		})
	})

	// Editor UI
	r.Handle("/*", spaHandler())
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start begins listening on the given port and sweeping stale render
// artifacts until Shutdown.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	go s.sweepLoop(ctx)

	s.log.Info("codepad server starting", "addr", "http://localhost"+addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down server")
	if s.stop != nil {
		s.stop()
	}
	s.runs.CloseAll()

	if s.http == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) sweepLoop(ctx context.Context) {
	ttl := s.cfg.Render.TTL
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.sweep(ttl)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) sweep(ttl time.Duration) {
	for _, r := range s.render {
		n, err := r.Sweep(ttl)
		if err != nil {
			s.log.Warn("render sweep failed", "error", err)
		}
		if n > 0 {
			s.log.Info("removed stale render artifacts", "count", n)
		}
	}
}
