package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ledgerbot/internal/api/health"
	"ledgerbot/internal/metrics"
	"ledgerbot/pkg/errors"
	"ledgerbot/pkg/logger"
)

// Server wraps the HTTP server carrying the liveness probe and metrics
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates and configures the HTTP server
func NewServer(port int, healthHandler *health.Handler, log *logger.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/", healthHandler.HandleRoot)
	mux.HandleFunc("/healthz", healthHandler.HandleLiveness)
	mux.HandleFunc("/readyz", healthHandler.HandleReadiness)
	mux.Handle("/metrics", metrics.Handler())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		log:        log,
	}
}

// Start begins listening for HTTP requests and blocks until the server
// is stopped
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}
	return nil
}
