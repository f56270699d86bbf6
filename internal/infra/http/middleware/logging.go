package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/makerstokyo/api/internal/config"
	"github.com/makerstokyo/api/pkg/logger"
)

// LoggerConfig configures request logging.
type LoggerConfig struct {
	// SkipPaths are never logged, typically probes and /metrics.
	SkipPaths []string
	// SlowRequestThreshold logs slower successful requests at warn. Zero
	// disables it.
	SlowRequestThreshold time.Duration
	// Identify resolves the client identifier logged with each request.
	// Defaults to the TCP peer address.
	Identify func(*http.Request) string
}

// DefaultLoggerConfig skips probes and flags requests over five seconds.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		SkipPaths:            []string{"/health", "/ready", "/metrics"},
		SlowRequestThreshold: 5 * time.Second,
	}
}

// LoggerConfigFrom builds a LoggerConfig from the log settings.
func LoggerConfigFrom(cfg config.LogConfig) LoggerConfig {
	lc := DefaultLoggerConfig()
	if !cfg.SkipHealthLogs {
		lc.SkipPaths = nil
	}
	lc.SlowRequestThreshold = time.Duration(cfg.SlowRequestSeconds) * time.Second
	return lc
}

// statusRecorder captures the status and size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func (sr *statusRecorder) code() int {
	if sr.status == 0 {
		return http.StatusOK
	}
	return sr.status
}

// LoggerWithConfig logs one line per request: 5xx at error, other rejections
// (4xx) and slow requests at warn, the rest at info. The request-scoped logger
// is stored in the context for handlers.
func LoggerWithConfig(log *logger.Logger, cfg LoggerConfig) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	identify := cfg.Identify
	if identify == nil {
		identify = func(r *http.Request) string { return r.RemoteAddr }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			reqLog := log.WithContext(r.Context())
			next.ServeHTTP(rec, r.WithContext(logger.ToContext(r.Context(), reqLog)))
			elapsed := time.Since(start)

			status := rec.code()
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.bytes,
				"duration", elapsed,
				"client", identify(r),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				attrs = append(attrs, "route", rctx.RoutePattern())
			}

			switch {
			case status >= 500:
				reqLog.Error("http request", attrs...)
			case status >= 400:
				reqLog.Warn("http request", attrs...)
			case cfg.SlowRequestThreshold > 0 && elapsed > cfg.SlowRequestThreshold:
				reqLog.Warn("slow http request", attrs...)
			default:
				reqLog.Info("http request", attrs...)
			}
		})
	}
}
