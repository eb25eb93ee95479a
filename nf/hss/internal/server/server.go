package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/openepc/mme/nf/hss/internal/config"
	"github.com/openepc/mme/nf/hss/internal/service"
)

// Server is the HSS's S6a-over-HTTP server, the stand-in for a Diameter
// S6a peer: Authentication-Information-Request/Answer and
// Update-Location-Request/Answer carried as JSON over HTTP.
type Server struct {
	config *config.Config
	router *chi.Mux
	server *http.Server
	logger *zap.Logger

	authService *service.AuthenticationService
}

// NewServer creates a new HSS server.
func NewServer(cfg *config.Config, authService *service.AuthenticationService, logger *zap.Logger) *Server {
	s := &Server{
		config:      cfg,
		router:      chi.NewRouter(),
		logger:      logger,
		authService: authService,
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
	s.router.Get("/status", s.handleStatus)

	s.router.Route("/s6a/v1", func(r chi.Router) {
		r.Post("/authentication-information", s.handleAuthenticationInformationRequest)
		r.Put("/update-location", s.handleUpdateLocationRequest)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.SBI.BindAddress, s.config.SBI.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting HSS HTTP server", zap.String("address", addr))

	if s.config.SBI.TLS.Enabled {
		return s.server.ListenAndServeTLS(s.config.SBI.TLS.CertFile, s.config.SBI.TLS.KeyFile)
	}

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HSS HTTP server")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}

	return nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "HSS",
		"version": "1.0.0",
	})
}
