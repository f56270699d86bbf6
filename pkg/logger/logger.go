// Package logger wraps log/slog with redaction of secrets, optional
// sampling and request-scoped context fields.
//
// Redaction works on keys and on values: attributes whose key names a
// secret are masked, and any string value that carries a signed-link query
// (sig=...) has the signature replaced, so magic links can be logged for
// debugging without becoming usable.
package logger

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

// Logger wraps slog.Logger with additional functionality.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level  string
	Format string // "json" (default) or "text"
	Output io.Writer

	// Sampling bounds log volume when many identical lines are emitted,
	// typically rejection warnings during an abuse burst.
	Sampling SamplingConfig
}

// New creates a new Logger instance.
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   level == slog.LevelDebug,
		ReplaceAttr: redactAttr,
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	} else {
		h = slog.NewJSONHandler(out, opts)
	}
	return &Logger{Logger: slog.New(NewSamplingHandler(h, cfg.Sampling))}
}

// NewDefault creates an info-level JSON logger on stdout.
func NewDefault() *Logger {
	return New(Config{Level: "info", Format: "json"})
}

// NewNop creates a logger that discards all output.
func NewNop() *Logger {
	return New(Config{Level: "error", Output: io.Discard})
}

// Redacted replaces the value of sensitive attributes.
const Redacted = "[REDACTED]"

// sensitiveKeys are matched exactly (case-insensitive).
var sensitiveKeys = map[string]bool{
	"sig":                   true,
	"cf-turnstile-response": true,
	"x-turnstile-token":     true,
	"x-signature":           true,
	"cookie":                true,
	"authorization":         true,
	"email":                 true,
	"phone":                 true,
}

// sensitiveFragments are matched as substrings of the lower-cased key.
var sensitiveFragments = []string{
	"password",
	"secret",
	"token",
	"signature",
	"api_key",
	"apikey",
	"private_key",
	"credential",
	"session",
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, f := range sensitiveFragments {
		if strings.Contains(key, f) {
			return true
		}
	}
	return false
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	switch {
	case a.Value.Kind() == slog.KindGroup:
		return a
	case isSensitive(a.Key):
		return slog.String(a.Key, Redacted)
	case a.Value.Kind() == slog.KindString:
		if s := a.Value.String(); strings.Contains(s, "sig=") {
			return slog.String(a.Key, redactSignedQuery(s))
		}
	}
	return a
}

// redactSignedQuery masks the sig parameter of a URL or bare query string.
// Values that do not parse are masked entirely.
func redactSignedQuery(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return Redacted
	}
	raw := u.RawQuery
	if raw == "" && !strings.Contains(s, "?") {
		raw = s
	}
	q, err := url.ParseQuery(raw)
	if err != nil || !q.Has("sig") {
		return s
	}
	q.Set("sig", Redacted)
	if raw == s {
		return q.Encode()
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// With returns a new Logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// ContextKey is the type of context keys read by WithContext.
type ContextKey string

// ContextKeyRequestID carries the request ID set by the request ID middleware.
const ContextKeyRequestID ContextKey = "request_id"

// WithContext returns a Logger carrying the request ID from ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok && requestID != "" {
		return &Logger{Logger: l.Logger.With(slog.String("request_id", requestID))}
	}
	return l
}

// WithError returns a new Logger with the error attribute.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.Logger.With(slog.Any("error", err))}
}

// SetDefault sets this logger as the default slog logger.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type loggerKey struct{}

// ToContext adds the logger to the context.
func ToContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext retrieves the logger from the context, or a default one.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return logger
	}
	return NewDefault()
}
