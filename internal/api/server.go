package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/api/health"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/metrics"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

const defaultPort = 8080

// ServerConfig carries the HTTP surface settings.
type ServerConfig struct {
	Port        int
	ServiceName string
	Version     string
}

// Server exposes the operational endpoints: Kubernetes probes, the
// Prometheus scrape target and a service-info root. The pipeline itself
// has no request surface; everything it does runs on worker schedules.
type Server struct {
	inner *http.Server
	log   *logger.Logger
}

// NewServer builds the route table and the underlying http.Server.
func NewServer(cfg ServerConfig, hh *health.Handler, log *logger.Logger) *Server {
	port := cfg.Port
	if port <= 0 {
		port = defaultPort
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/live", hh.HandleLiveness)
	mux.HandleFunc("/ready", hh.HandleReadiness)
	mux.HandleFunc("/health", hh.HandleHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/", serviceInfo(cfg))

	log.Infof("HTTP server configured on port %d", port)

	return &Server{
		inner: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// serviceInfo answers the root path with name and version, and 404s
// anything that fell through the other routes.
func serviceInfo(cfg ServerConfig) http.HandlerFunc {
	body, _ := json.Marshal(map[string]string{
		"service": cfg.ServiceName,
		"version": cfg.Version,
		"status":  "running",
	})

	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}

// Start blocks serving requests until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.inner.Addr)

	if err := s.inner.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.inner.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	s.log.Info("✓ HTTP server stopped")
	return nil
}
