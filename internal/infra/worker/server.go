// Package worker runs ingestion on a cron schedule and serves the admin
// endpoints of the long-running process.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"content-mesh/internal/observability/logging"
	"content-mesh/internal/observability/tracing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Report describes one finished ingestion run as served on /mesh.
type Report struct {
	RunID      string    `json:"run_id"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
	Nodes      int       `json:"nodes"`
	Details    any       `json:"details,omitempty"`
}

// Server serves the admin endpoints:
//   - GET /health: liveness, always 200
//   - GET /health/ready: 200 once the schedule is running, 503 before
//   - GET /metrics: Prometheus metrics
//   - GET /mesh: the report of the latest run, 404 before the first one
//
// The server shuts down gracefully when the context passed to Start is cancelled.
type Server struct {
	addr   string
	logger *slog.Logger
	ready  atomic.Bool
	latest atomic.Pointer[Report]
	router chi.Router
}

type statusResponse struct {
	Status string `json:"status"`
}

// NewServer creates a server listening on addr. It is not started.
func NewServer(addr string, logger *slog.Logger) *Server {
	s := &Server{
		addr:   addr,
		logger: logging.OrDefault(logger),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(tracing.Middleware)

	r.Get("/health", s.handleLiveness)
	r.Get("/health/ready", s.handleReadiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/mesh", s.handleMesh)

	s.router = r
}

// Handler returns the admin router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down within 5 seconds.
// It returns http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("admin server starting", slog.String("addr", s.addr))
		if err := server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("admin server shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("admin server shutdown failed", slog.Any("error", err))
			return err
		}
		s.logger.Info("admin server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return err
		}
		s.logger.Error("admin server failed", slog.Any("error", err))
		return err
	}
}

// SetReady sets the state reported by /health/ready.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
	s.logger.Info("admin server readiness changed", slog.Bool("ready", ready))
}

// SetReport replaces the report served on /mesh.
func (s *Server) SetReport(r *Report) {
	s.latest.Store(r)
}

// Report returns the latest report, or nil before the first run.
func (s *Server) Report() *Report {
	return s.latest.Load()
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if s.ready.Load() {
		s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
		return
	}
	s.writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "not ready"})
}

func (s *Server) handleMesh(w http.ResponseWriter, _ *http.Request) {
	report := s.latest.Load()
	if report == nil {
		s.writeJSON(w, http.StatusNotFound, statusResponse{Status: "no run yet"})
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", slog.Any("error", err))
	}
}
