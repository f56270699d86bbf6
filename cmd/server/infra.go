package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/makerstokyo/api/internal/app"
	"github.com/makerstokyo/api/internal/config"
	"github.com/makerstokyo/api/internal/infra/captcha"
	"github.com/makerstokyo/api/internal/infra/redis"
	"github.com/makerstokyo/api/pkg/clientip"
	"github.com/makerstokyo/api/pkg/logger"
	"github.com/makerstokyo/api/pkg/origin"
	"github.com/makerstokyo/api/pkg/ratelimit"
	"github.com/makerstokyo/api/pkg/signature"
)

// Infra holds shared infrastructure: the guard components, the event sink
// and, when configured, the Redis client.
type Infra struct {
	Redis       *redis.Client // nil unless a component uses Redis
	Resolver    clientip.Resolver
	Limiter     *ratelimit.Limiter // nil when rate limiting is disabled
	OriginGuard *origin.Guard
	Captcha     *captcha.Verifier
	Signer      *signature.Signer
	Sink        app.EventSink

	stopPoolStats func()
}

// NewInfra builds the infrastructure described by cfg.
func NewInfra(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Infra, error) {
	infra := &Infra{
		Resolver: clientip.Resolver{TrustProxyHeaders: cfg.RateLimit.TrustProxyHeaders},
		OriginGuard: origin.NewGuard(origin.Config{
			AllowedOrigins: cfg.Origin.AllowedOrigins,
			PreviewHost:    cfg.Origin.PreviewHost,
			Production:     cfg.IsProduction(),
		}),
		stopPoolStats: func() {},
	}
	log.Info("origin allow-list loaded", "origins", infra.OriginGuard.AllowedOrigins())

	if cfg.NeedsRedis() {
		client, err := redis.New(ctx, &cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		infra.Redis = client
		unregister, err := redis.RegisterPoolCollector(prometheus.DefaultRegisterer, client)
		if err != nil {
			return nil, fmt.Errorf("register redis pool metrics: %w", err)
		}
		infra.stopPoolStats = unregister
	}

	if cfg.RateLimit.Enabled {
		var store ratelimit.Store
		switch cfg.RateLimit.Backend {
		case config.RateLimitBackendRedis:
			store = redis.NewFixedWindowStore(infra.Redis, cfg.RateLimit.KeyPrefix)
		default:
			store = ratelimit.NewMemoryStore(ratelimit.WithCleanupInterval(cfg.RateLimit.CleanupInterval))
		}
		infra.Limiter = ratelimit.NewLimiter(store, ratelimit.WithIdentifier(infra.Resolver.Resolve))
		log.Info("rate limiting enabled", "backend", cfg.RateLimit.Backend, "trust_proxy_headers", cfg.RateLimit.TrustProxyHeaders)
	} else {
		log.Warn("rate limiting disabled")
	}

	policy, err := captcha.ParsePolicy(cfg.Turnstile.Policy)
	if err != nil {
		return nil, err
	}
	infra.Captcha = captcha.NewVerifier(captcha.Config{
		SiteKey:    cfg.Turnstile.SiteKey,
		SecretKey:  cfg.Turnstile.SecretKey,
		VerifyURL:  cfg.Turnstile.VerifyURL,
		Timeout:    cfg.Turnstile.Timeout,
		Policy:     policy,
		Production: cfg.IsProduction(),
		MaxRPS:     cfg.Turnstile.MaxRPS,
		Burst:      cfg.Turnstile.Burst,
	}, log)
	if !infra.Captcha.Enabled() {
		log.Warn("turnstile not configured", "policy", string(policy), "production", cfg.IsProduction())
	}

	secret := cfg.Signing.Secret
	if secret == "" {
		// Production refuses to start without a secret (config.Validate).
		secret, err = randomSecret()
		if err != nil {
			return nil, err
		}
		log.Warn("SIGNING_SECRET not set, using an ephemeral secret; signed links stop working on restart")
	}
	infra.Signer = signature.NewSigner(secret, signature.WithMaxAge(cfg.Signing.MaxAge))

	switch cfg.Events.Sink {
	case config.EventSinkRedis:
		infra.Sink = redis.NewStreamSink(infra.Redis, cfg.Events.Stream, cfg.Events.MaxLen)
	default:
		infra.Sink = app.NewLogSink(log)
	}
	log.Info("event sink ready", "sink", cfg.Events.Sink)

	return infra, nil
}

// StopBackground unregisters collectors that read live connections. Safe to
// call more than once.
func (i *Infra) StopBackground() {
	i.stopPoolStats()
}

// Close releases connections.
func (i *Infra) Close(log *logger.Logger) {
	i.StopBackground()
	if i.Redis == nil {
		return
	}
	if err := i.Redis.Close(); err != nil {
		log.Error("close redis", "error", err)
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate signing secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
