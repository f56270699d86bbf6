package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate reports every problem with the configuration at once. Production
// adds stricter checks on secrets, origins and TLS.
func (c *Config) Validate() error {
	errs := []error{
		c.checkServer(),
		c.checkLog(),
		c.checkBackends(),
		c.checkTurnstile(),
	}
	if c.SMTP.Enabled() && c.SMTP.From == "" {
		errs = append(errs, errors.New("SMTP_FROM is required when SMTP_HOST is set"))
	}
	if c.IsProduction() {
		errs = append(errs, c.checkProduction()...)
	}
	return errors.Join(errs...)
}

func (c *Config) checkServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxBodySize <= 0 {
		return fmt.Errorf("SERVER_MAX_BODY_SIZE must be positive, got %d", c.Server.MaxBodySize)
	}
	return nil
}

func (c *Config) checkLog() error {
	l := c.Log
	switch {
	case !slices.Contains([]string{"", "debug", "info", "warn", "error"}, strings.ToLower(l.Level)):
		return fmt.Errorf("invalid LOG_LEVEL %q: want debug, info, warn or error", l.Level)
	case !slices.Contains([]string{"", "json", "text"}, strings.ToLower(l.Format)):
		return fmt.Errorf("invalid LOG_FORMAT %q: want json or text", l.Format)
	case l.SamplingRate < 0 || l.SamplingRate > 1:
		return fmt.Errorf("LOG_SAMPLING_RATE must be within [0, 1], got %g", l.SamplingRate)
	case l.ErrorSamplingRate < 0 || l.ErrorSamplingRate > 1:
		return fmt.Errorf("LOG_ERROR_SAMPLING_RATE must be within [0, 1], got %g", l.ErrorSamplingRate)
	case l.SamplingThreshold < 0:
		return fmt.Errorf("LOG_SAMPLING_THRESHOLD must not be negative, got %d", l.SamplingThreshold)
	}
	return nil
}

// checkBackends validates the limiter store and event sink, and that Redis
// is addressable when either of them needs it.
func (c *Config) checkBackends() error {
	switch c.RateLimit.Backend {
	case RateLimitBackendMemory, RateLimitBackendRedis:
	default:
		return fmt.Errorf("invalid RATE_LIMIT_BACKEND %q: want memory or redis", c.RateLimit.Backend)
	}
	switch c.Events.Sink {
	case EventSinkLog:
	case EventSinkRedis:
		if c.Events.Stream == "" {
			return errors.New("EVENT_STREAM is required for the redis event sink")
		}
	default:
		return fmt.Errorf("invalid EVENT_SINK %q: want log or redis", c.Events.Sink)
	}
	if c.NeedsRedis() && c.Redis.Host == "" {
		return errors.New("REDIS_HOST is required when a redis backend or sink is configured")
	}
	return nil
}

func (c *Config) checkTurnstile() error {
	t := c.Turnstile
	if t.Policy != CaptchaPolicyFailOpenInDev && t.Policy != CaptchaPolicyFailClosedAlways {
		return fmt.Errorf("invalid CAPTCHA_POLICY %q: want %s or %s",
			t.Policy, CaptchaPolicyFailOpenInDev, CaptchaPolicyFailClosedAlways)
	}
	if t.Timeout <= 0 {
		return fmt.Errorf("TURNSTILE_TIMEOUT must be positive, got %s", t.Timeout)
	}
	if t.MaxRPS <= 0 || t.Burst <= 0 {
		return errors.New("TURNSTILE_MAX_RPS and TURNSTILE_BURST must be positive")
	}
	return nil
}

func (c *Config) checkProduction() []error {
	var errs []error
	if !c.RateLimit.Enabled {
		errs = append(errs, errors.New("rate limiting must be enabled in production"))
	}
	if len(c.Signing.Secret) < MinSigningSecretLength {
		errs = append(errs, fmt.Errorf("SIGNING_SECRET must be at least %d characters in production", MinSigningSecretLength))
	}
	if slices.Contains(c.Origin.AllowedOrigins, "*") {
		errs = append(errs, errors.New("wildcard origin not allowed in production"))
	}
	if strings.EqualFold(c.Log.Level, "debug") {
		errs = append(errs, errors.New("LOG_LEVEL debug is not allowed in production"))
	}
	if c.NeedsRedis() && c.Redis.TLSSkipVerify {
		errs = append(errs, errors.New("redis TLS skip verify must be false in production"))
	}
	if c.SMTP.Enabled() && c.SMTP.SkipVerify {
		errs = append(errs, errors.New("SMTP TLS skip verify must be false in production"))
	}
	return errs
}
