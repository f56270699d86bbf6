package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/makerstokyo/api/internal/config"
	"github.com/makerstokyo/api/internal/infra/http/middleware"
	"github.com/makerstokyo/api/pkg/logger"
	"github.com/makerstokyo/api/pkg/origin"
)

const idleTimeout = time.Minute

// compressionRatioLimit bounds how far a compressed body may expand.
const compressionRatioLimit = 100

// Server is the guard API's HTTP server: a router with the global middleware
// chain installed, plus hooks run on shutdown.
type Server struct {
	srv      *http.Server
	router   Router
	cfg      *config.Config
	log      *logger.Logger
	identify func(*http.Request) string
	onStop   []func()
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRouter replaces the default chi router.
func WithRouter(r Router) ServerOption {
	return func(s *Server) { s.router = r }
}

// WithClientIdentifier sets how request logs name the client. Pass the same
// resolver the rate limiter keys on so both agree behind a proxy.
func WithClientIdentifier(fn func(*http.Request) string) ServerOption {
	return func(s *Server) { s.identify = fn }
}

// WithCleanup registers fn to run on Shutdown once the listener is closed.
func WithCleanup(fn func()) ServerOption {
	return func(s *Server) { s.onStop = append(s.onStop, fn) }
}

// NewServer builds the server and installs the global chain. guard provides
// the CORS allow-list and should be the guard the per-route origin checks use.
func NewServer(cfg *config.Config, guard *origin.Guard, log *logger.Logger, opts ...ServerOption) *Server {
	s := &Server{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(s)
	}
	if s.router == nil {
		s.router = NewChiRouter()
	}

	logCfg := middleware.LoggerConfigFrom(cfg.Log)
	logCfg.Identify = s.identify

	// Recovery sits outermost so a panic anywhere below still yields a JSON
	// 500. Route-dependent guards are attached per route.
	s.router.Use(
		middleware.Recovery(log, cfg.IsProduction()),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Metrics(),
		middleware.LoggerWithConfig(log, logCfg),
		middleware.SecurityHeaders(cfg.IsProduction()),
		middleware.CORS(&cfg.CORS, guard),
		middleware.Decompress(&middleware.DecompressConfig{
			MaxDecompressedSize: cfg.Server.MaxBodySize,
			MaxCompressedSize:   cfg.Server.MaxBodySize,
			MaxCompressionRatio: compressionRatioLimit,
			AllowedEncodings:    []string{"gzip", "zstd"},
		}),
		middleware.BodyLimit(cfg.Server.MaxBodySize),
		middleware.Timeout(cfg.Server.RequestTimeout),
	)

	s.srv = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.router.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s
}

// Router exposes the router for route registration.
func (s *Server) Router() Router {
	return s.router
}

// Handler returns the root handler with the global chain applied.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves until Shutdown, after which it returns nil.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.srv.Addr)
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("http server: %w", err)
}

// Shutdown drains in-flight requests, then runs the cleanup hooks. Hooks run
// even when draining times out.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	for _, fn := range s.onStop {
		fn()
	}
	if err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}
