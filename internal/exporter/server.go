package exporter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/mqtt-exporter/internal/infrastructure/config"
	"github.com/nerrad567/mqtt-exporter/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// scrapes to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker reports the liveness of an upstream dependency. The
// MQTT client satisfies this; /health consults it so a scrape target
// that lost its broker shows as degraded.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the exporter server.
type Deps struct {
	Config   config.PrometheusConfig
	Logger   *logging.Logger
	Registry *prometheus.Registry
	MQTT     HealthChecker // optional; nil skips the broker check
	Version  string
}

// Server is the HTTP server exposing the Prometheus scrape endpoint.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg      config.PrometheusConfig
	logger   *logging.Logger
	registry *prometheus.Registry
	mqtt     HealthChecker
	version  string
	server   *http.Server
}

// New creates a new exporter server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("prometheus registry is required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		registry: deps.Registry,
		mqtt:     deps.MQTT,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// The listener is bound synchronously so a bind failure (port in use,
// bad address) aborts startup. Serving then continues in a background
// goroutine until Close().
//
// Returns:
//   - error: If the listener cannot be bound
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.server = nil
		return fmt.Errorf("binding exporter listener: %w", err)
	}

	go func() {
		s.logger.Info("exporter server starting", "address", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("exporter server error", "error", err)
		}
	}()

	return nil
}

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		ErrorLog:      promhttpLogger{logger: s.logger},
		ErrorHandling: promhttp.ContinueOnError,
	}))
	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleRoot)

	return r
}

// handleHealth returns the server health status, including the broker
// connection when a checker was provided. A lost broker answers 503 so
// orchestrators see the exporter as degraded while scrapes keep working.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	overall := "ok"
	broker := "up"

	if s.mqtt != nil {
		if err := s.mqtt.HealthCheck(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			overall = "degraded"
			broker = "down"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"status":%q,"mqtt":%q,"version":%q}`, overall, broker, s.version)
}

// handleRoot serves a minimal landing page pointing at the scrape path.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<html><head><title>MQTT Exporter</title></head><body><h1>MQTT Exporter</h1><p><a href="/metrics">Metrics</a></p></body></html>`)
}

// Close gracefully shuts down the exporter server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("exporter server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down exporter server: %w", err)
	}
	return nil
}

// HealthCheck verifies the exporter server is running.
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("exporter health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("exporter server not started")
	}

	return nil
}

// promhttpLogger adapts the structured logger to promhttp's error log.
type promhttpLogger struct {
	logger *logging.Logger
}

func (l promhttpLogger) Println(v ...interface{}) {
	l.logger.Error("scrape handler error", "detail", fmt.Sprint(v...))
}
