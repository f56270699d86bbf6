package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/makerstokyo/api/pkg/apierror"
	"github.com/makerstokyo/api/pkg/logger"
	"github.com/makerstokyo/api/pkg/ratelimit"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	// FailOpen lets requests through when the store errors. Otherwise they
	// get a 503.
	FailOpen bool
	Logger   *logger.Logger
	// Now is used for the X-RateLimit-Reset header.
	Now func() time.Time
}

// RateLimit applies the fixed-window preset to each request, keyed by the
// limiter's client identifier and the request path. A nil limiter disables
// limiting. It panics on an unknown preset, which is a wiring mistake.
func RateLimit(limiter *ratelimit.Limiter, preset ratelimit.Preset, cfg RateLimitConfig) func(http.Handler) http.Handler {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	window, err := ratelimit.LookupPreset(preset)
	if err != nil {
		panic(err)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := limiter.AllowConfig(r.Context(), r, window)
			if err != nil {
				RecordGuardDecision(GuardRateLimit, OutcomeError)
				log.WithContext(r.Context()).Error("rate limit store unavailable",
					"error", err,
					"preset", string(preset),
					"fail_open", cfg.FailOpen,
				)
				if cfg.FailOpen {
					next.ServeHTTP(w, r)
					return
				}
				apierror.ServiceUnavailable("").WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				return
			}

			h := w.Header()
			h.Set(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
			h.Set(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
			h.Set(HeaderRateLimitReset, strconv.FormatInt(now().Add(d.ResetIn).Unix(), 10))

			if !d.Success {
				RecordGuardDecision(GuardRateLimit, OutcomeRejected)
				log.WithContext(r.Context()).Warn("rate limit exceeded",
					"client", limiter.Identify(r),
					"path", r.URL.Path,
					"preset", string(preset),
					"reset_in", d.ResetIn,
				)
				apierror.RateLimitExceeded(d.RetryAfterSeconds()).
					WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				return
			}

			RecordGuardDecision(GuardRateLimit, OutcomeAllowed)
			next.ServeHTTP(w, r)
		})
	}
}
