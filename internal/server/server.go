// Package server exposes the monitor's diagnostic HTTP surface:
// Prometheus metrics, a health probe, and per-device pulse state. The
// listener is plain HTTP on a local or management interface; anything
// fancier belongs in front of it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/maximewewer/pps-monitor/internal/config"
	"github.com/maximewewer/pps-monitor/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

// Server serves the diagnostic endpoints for a set of monitors.
type Server struct {
	cfg     config.ServerConfig
	sources []StatusSource
	httpSrv *http.Server
}

// New creates the HTTP server. sources feed both the /status endpoint
// and the pulse-count context on request logs.
func New(cfg *config.Config, registry *prometheus.Registry, sources []StatusSource) *Server {
	h := NewHandlers(cfg, registry, sources)

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", h.MetricsHandler)
	mux.HandleFunc("/health", h.HealthHandler)
	mux.HandleFunc("/status", h.StatusHandler)
	mux.HandleFunc("/", h.IndexHandler)

	s := &Server{
		cfg:     cfg.Server,
		sources: sources,
	}

	s.httpSrv = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Address, strconv.Itoa(cfg.Server.Port)),
		Handler:      s.logRequests(recoverPanics(mux)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// Start runs the listener until it fails or the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	logger.Infof("server", "Starting HTTP server on %s", s.httpSrv.Addr)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("server", "Shutting down HTTP server")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server", "Server error", err)
			return fmt.Errorf("HTTP server failed on %s: %w", s.httpSrv.Addr, err)
		}
		return nil
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server", "Server shutdown failed", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("server shutdown timeout after 10s: %w", err)
		}
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("server", "HTTP server stopped")
	return nil
}

// pulseTotal sums the accepted-pulse counters across all monitors. It
// rides along on request logs so a scrape seen in the log can be lined
// up with monitor progress at that moment.
func (s *Server) pulseTotal() uint64 {
	var total uint64
	for _, src := range s.sources {
		_, count := src.LastPPS()
		total += count
	}
	return total
}

// logRequests logs each request with its status, duration, and the
// monitors' pulse progress.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.InfoFields("server", "HTTP request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.status,
			"duration":    time.Since(start).String(),
			"remote_addr": r.RemoteAddr,
			"pulse_total": s.pulseTotal(),
		})
	})
}

// recoverPanics keeps a handler panic from taking the pulse workers
// down with the listener.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.ErrorFields("server", "Panic recovered", nil, map[string]interface{}{
					"panic": err,
					"path":  r.URL.Path,
				})
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal server error"}`))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// statusWriter captures the response status code for logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
