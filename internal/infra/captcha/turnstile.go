// Package captcha verifies Cloudflare Turnstile tokens.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/makerstokyo/api/pkg/logger"
)

// DefaultVerifyURL is the Turnstile siteverify endpoint.
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

const (
	defaultTimeout     = 5 * time.Second
	maxResponseBytes   = 64 << 10
	defaultConcurrency = 32
)

// Policy decides the outcome when no secret key is configured.
type Policy string

const (
	// PolicyFailOpenInDev accepts every token outside production and rejects in production.
	PolicyFailOpenInDev Policy = "fail_open_in_dev"
	// PolicyFailClosedAlways rejects every token in every environment.
	PolicyFailClosedAlways Policy = "fail_closed_always"
)

// ErrUnknownPolicy is returned by ParsePolicy.
var ErrUnknownPolicy = errors.New("unknown captcha policy")

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyFailOpenInDev, PolicyFailClosedAlways:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Config configures a Verifier.
type Config struct {
	SiteKey    string
	SecretKey  string
	VerifyURL  string
	Timeout    time.Duration
	Policy     Policy
	Production bool

	// MaxRPS and Burst bound outbound calls to the provider.
	MaxRPS float64
	Burst  int
}

// siteverifyResponse is the provider's JSON reply.
type siteverifyResponse struct {
	Success     bool     `json:"success"`
	ErrorCodes  []string `json:"error-codes"`
	Hostname    string   `json:"hostname"`
	Action      string   `json:"action"`
	ChallengeTS string   `json:"challenge_ts"`
}

// Verifier checks tokens against the siteverify endpoint. Safe for concurrent use.
type Verifier struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	tracer  trace.Tracer
	log     *logger.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) {
		if c != nil {
			v.client = c
		}
	}
}

// NewVerifier creates a Verifier.
func NewVerifier(cfg Config, log *logger.Logger, opts ...Option) *Verifier {
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = DefaultVerifyURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyFailOpenInDev
	}
	limit := rate.Inf
	if cfg.MaxRPS > 0 {
		limit = rate.Limit(cfg.MaxRPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if log == nil {
		log = logger.NewNop()
	}

	v := &Verifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		sem:     semaphore.NewWeighted(defaultConcurrency),
		tracer:  otel.Tracer("github.com/makerstokyo/api/internal/infra/captcha"),
		log:     log,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Enabled reports whether both the site key and the secret key are configured.
// Callers use it to decide whether to render or require a challenge.
func (v *Verifier) Enabled() bool {
	return v.cfg.SiteKey != "" && v.cfg.SecretKey != ""
}

// SiteKey returns the public site key.
func (v *Verifier) SiteKey() string {
	return v.cfg.SiteKey
}

// Verify reports whether token is valid. remoteIP is optional. Network,
// timeout and decoding failures all yield false.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) bool {
	if v.cfg.SecretKey == "" {
		return v.missingSecret()
	}
	if token == "" {
		return false
	}

	ctx, span := v.tracer.Start(ctx, "captcha.verify")
	defer span.End()

	ok, err := v.verify(ctx, token, remoteIP)
	span.SetAttributes(attribute.Bool("captcha.success", ok))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verification failed")
		v.log.WithContext(ctx).Warn("turnstile verification error", "error", err)
		return false
	}
	return ok
}

func (v *Verifier) missingSecret() bool {
	if v.cfg.Policy == PolicyFailOpenInDev && !v.cfg.Production {
		v.log.Warn("turnstile secret not configured, allowing request outside production")
		return true
	}
	v.log.Error("turnstile secret not configured, rejecting request", "policy", string(v.cfg.Policy))
	return false
}

func (v *Verifier) verify(ctx context.Context, token, remoteIP string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	if err := v.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("outbound budget: %w", err)
	}
	if err := v.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("acquire slot: %w", err)
	}
	defer v.sem.Release(1)

	form := url.Values{}
	form.Set("secret", v.cfg.SecretKey)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("siteverify request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out siteverifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return false, fmt.Errorf("decode siteverify response (status %d): %w", resp.StatusCode, err)
	}

	if !out.Success {
		v.log.WithContext(ctx).Info("turnstile token rejected",
			"error_codes", strings.Join(out.ErrorCodes, ","),
			"status", resp.StatusCode,
		)
	}
	return out.Success, nil
}
