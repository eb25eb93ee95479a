// Package server exposes a debug/ops HTTP API over the MME's EMM FSM
// core, grounded on the donor UDM server's chi router, middleware and
// JSON response helpers (nf/udm/internal/server/server.go).
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/openepc/mme/nf/mme/internal/config"
	uectx "github.com/openepc/mme/nf/mme/internal/context"
	"github.com/openepc/mme/nf/mme/internal/dispatch"
)

// Server is the MME's debug/ops HTTP API: UE context inspection and
// aggregate stats. Attach/TAU/Service procedures arrive over S1AP, not
// HTTP, so there are no UE-procedure endpoints here — this is strictly
// an operations surface, mirroring the donor's "admin" route group.
type Server struct {
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
	logger *zap.Logger

	store      *uectx.Store
	dispatcher *dispatch.Dispatcher
}

// New builds a Server over the given UE store, configured and ready to
// Start.
func New(cfg *config.Config, store *uectx.Store, dispatcher *dispatch.Dispatcher, logger *zap.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		router:     chi.NewRouter(),
		logger:     logger,
		store:      store,
		dispatcher: dispatcher,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ready", s.handleReady)

	s.router.Route("/admin", func(r chi.Router) {
		r.Get("/stats", s.handleGetStats)
		r.Get("/ues", s.handleListUEs)
		r.Get("/ues/{imsi}", s.handleGetUE)
	})
}

// Start serves the debug/ops API on the configured bind address. It
// blocks until Stop shuts the listener down.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.BindAddress,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting MME ops HTTP server", zap.String("address", s.cfg.Server.BindAddress))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ops HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping MME ops HTTP server")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
