// Package server hosts the S-GW stand-in's admin/monitoring HTTP API,
// adapted from the donor UPF admin server's chi-router layout down to
// the handful of read-only endpoints an S11-only peer can usefully
// expose: health, readiness, and the session table the GTP-C server
// maintains.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/openepc/mme/nf/sgw/internal/config"
	sgwctx "github.com/openepc/mme/nf/sgw/internal/context"
)

// Server is the S-GW stand-in's admin HTTP server.
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	store      *sgwctx.Store
	logger     *zap.Logger
}

// NewServer builds the admin server, wiring routes against store.
func NewServer(cfg *config.Config, store *sgwctx.Store, logger *zap.Logger) *Server {
	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		store:  store,
		logger: logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/health", s.handleHealthCheck)
	s.router.Get("/ready", s.handleReadinessCheck)
	s.router.Get("/status", s.handleStatus)
	s.router.Get("/sessions", s.handleGetSessions)
}

// Start serves the admin API on addr until the process exits or Stop is
// called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting S-GW admin server", zap.String("address", addr))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts the admin server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sgw_instance_id": s.config.NF.InstanceID,
		"sgw_name":        s.config.NF.Name,
		"session_count":   s.store.Count(),
	})
}

func (s *Server) handleGetSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.store.All()

	sessionList := make([]map[string]interface{}, 0, len(sessions))
	for _, sess := range sessions {
		sessionList = append(sessionList, map[string]interface{}{
			"imsi":       sess.IMSI,
			"local_teid": sess.LocalTEID,
			"mme_teid":   sess.MMETEID,
			"created_at": sess.CreatedAt,
			"touched":    sess.Touched,
		})
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessionList,
		"count":    len(sessionList),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error("failed to encode JSON response", zap.Error(err))
		}
	}
}
