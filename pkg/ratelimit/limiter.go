package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"path"

	"github.com/makerstokyo/api/pkg/clientip"
)

// Limiter applies presets to HTTP requests.
type Limiter struct {
	store    Store
	identify func(*http.Request) string
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithIdentifier replaces the default header-based identifier.
func WithIdentifier(fn func(*http.Request) string) LimiterOption {
	return func(l *Limiter) {
		if fn != nil {
			l.identify = fn
		}
	}
}

// NewLimiter creates a Limiter over store.
func NewLimiter(store Store, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		store:    store,
		identify: clientip.FromRequest,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow counts r against preset, keyed by caller identifier and the cleaned
// URL path, so that variants the router treats as one route share a window.
func (l *Limiter) Allow(ctx context.Context, r *http.Request, preset Preset) (Decision, error) {
	cfg, err := LookupPreset(preset)
	if err != nil {
		return Decision{}, err
	}
	return l.AllowConfig(ctx, r, cfg)
}

// AllowConfig is Allow with an explicit Config.
func (l *Limiter) AllowConfig(ctx context.Context, r *http.Request, cfg Config) (Decision, error) {
	if err := cfg.Validate(); err != nil {
		return Decision{}, err
	}
	key := Key(l.identify(r), EndpointPath(r.URL.Path))
	d, err := l.store.Check(ctx, key, cfg)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check %q: %w", key, err)
	}
	return d, nil
}

// Identify returns the identifier the limiter would use for r.
func (l *Limiter) Identify(r *http.Request) string {
	return l.identify(r)
}

// EndpointPath cleans p the way the router does before matching: duplicate
// slashes, dot segments and a trailing slash are removed.
func EndpointPath(p string) string {
	return path.Clean("/" + p)
}
