// Package server exposes the reconciliation engine over HTTP: a
// bearer-authenticated cron trigger, a health check, and Prometheus metrics.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/reconciler/internal/recon"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Runner triggers one reconciliation run over all eligible orders.
type Runner interface {
	Run(ctx context.Context) (*recon.RunSummary, error)
}

// Pinger reports persistence health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server for the reconciliation service.
type Server struct {
	port       int
	cronSecret string
	runner     Runner
	pinger     Pinger
	logger     *otelzap.Logger
}

// Config holds server configuration.
type Config struct {
	Port       int
	CronSecret string
}

// New creates a new server instance.
func New(cfg Config, runner Runner, pinger Pinger, logger *otelzap.Logger) *Server {
	return &Server{
		port:       cfg.Port,
		cronSecret: cfg.CronSecret,
		runner:     runner,
		pinger:     pinger,
		logger:     logger,
	}
}

// Handler builds the HTTP routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/cron/shipments/reconcile", s.handleReconcile)
	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
		// Reconciliation runs synchronously inside the request; the write
		// timeout has to outlast a full batch.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed, use GET")
		return
	}
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := s.runner.Run(r.Context())
	if err != nil {
		s.logger.Ctx(r.Context()).Error("Reconciliation run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "reconciliation run failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(summary)
}

// authorized checks the cron bearer token in constant time.
func (s *Server) authorized(r *http.Request) bool {
	if s.cronSecret == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cronSecret)) == 1
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
