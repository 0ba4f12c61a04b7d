// Package api exposes the calculation engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/carbonledger/carbonledger/internal/engine"
	"github.com/carbonledger/carbonledger/internal/persist"
)

// Calculator is the engine surface the API needs.
type Calculator interface {
	Calculate(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// Server is the HTTP server for the calculation API.
type Server struct {
	calc    Calculator
	sink    persist.Sink
	logger  zerolog.Logger
	router  *chi.Mux
	server  *http.Server
	metrics http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithSink sets the persistence sink. Defaults to the discard sink.
func WithSink(sink persist.Sink) Option {
	return func(s *Server) {
		s.sink = sink
	}
}

// WithMetricsRegistry exposes the given registry on /metrics. Without it
// the default Prometheus registry is served.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
}

// NewServer creates a Server over the given calculator.
func NewServer(calc Calculator, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		calc:   calc,
		sink:   persist.NewDiscard(),
		logger: logger.With().Str("component", "api").Logger(),
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	if s.metrics == nil {
		s.metrics = promhttp.Handler()
	}
	s.router.Method(http.MethodGet, "/metrics", s.metrics)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/calculations", s.handleCalculate)
		r.Post("/calculations/batch", s.handleBatchCalculate)
	})
}

// requestLogger logs each request with its ID, status, and latency.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		// Handlers pull the logger back out with logging.FromContext.
		ctx := s.logger.WithContext(r.Context())
		next.ServeHTTP(ww, r.WithContext(ctx))

		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("starting server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
