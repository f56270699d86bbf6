// Package config loads the service configuration from the environment and an
// optional YAML file.
package config

import (
	"net"
	"strconv"
	"time"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Rate limit store backends.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// Event sinks.
const (
	EventSinkLog   = "log"
	EventSinkRedis = "redis"
)

// CAPTCHA policies applied when no Turnstile secret is configured.
const (
	CaptchaPolicyFailOpenInDev    = "fail_open_in_dev"
	CaptchaPolicyFailClosedAlways = "fail_closed_always"
)

// MinSigningSecretLength is enforced in production.
const MinSigningSecretLength = 32

// Config holds all application configuration.
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Redis     RedisConfig
	Log       LogConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Origin    OriginConfig
	Turnstile TurnstileConfig
	Signing   SigningConfig
	Tracing   TracingConfig
	Events    EventsConfig
	SMTP      SMTPConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name          string
	Env           string
	PublicBaseURL string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration // Per-request handler timeout
	ShutdownTimeout time.Duration
	MaxBodySize     int64
}

// RedisConfig holds Redis configuration. Redis is only dialled when the
// rate limit backend is "redis".
type RedisConfig struct {
	Host          string
	Port          int
	Password      string
	DB            int
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	TLSEnabled    bool
	TLSSkipVerify bool
	MaxRetries    int
	MinRetryDelay time.Duration
	MaxRetryDelay time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string

	SamplingEnabled   bool
	SamplingThreshold int
	SamplingRate      float64
	ErrorSamplingRate float64

	SkipHealthLogs     bool
	SlowRequestSeconds int
}

// CORSConfig holds CORS configuration. Allowed origins are the origin guard's
// allow-list; only methods, headers and max age are configured here.
type CORSConfig struct {
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled         bool
	Backend         string
	KeyPrefix       string
	FailOpen        bool
	CleanupInterval time.Duration
	// TrustProxyHeaders makes the client identifier come from forwarded
	// headers. Only safe behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// OriginConfig holds the inputs to the origin allow-list.
type OriginConfig struct {
	AllowedOrigins []string
	PreviewHost    string
}

// TurnstileConfig holds Cloudflare Turnstile configuration.
type TurnstileConfig struct {
	SiteKey   string
	SecretKey string
	VerifyURL string
	Timeout   time.Duration
	Policy    string
	MaxRPS    float64
	Burst     int
}

// Enabled reports whether both keys are present.
func (c *TurnstileConfig) Enabled() bool {
	return c.SiteKey != "" && c.SecretKey != ""
}

// SigningConfig holds the HMAC signing configuration.
type SigningConfig struct {
	Secret string
	MaxAge time.Duration
}

// TracingConfig holds OpenTelemetry configuration.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

// EventsConfig selects where accepted submissions, plays and magic links go.
type EventsConfig struct {
	Sink   string
	Stream string
	MaxLen int64
}

// SMTPConfig holds mail delivery settings for magic links. Delivery is off
// when Host is empty.
type SMTPConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	FromName   string
	TLS        bool
	SkipVerify bool
	Timeout    time.Duration
}

// Enabled reports whether magic links are mailed.
func (c *SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// Addr returns the Redis host:port.
func (c *RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) IsDevelopment() bool { return c.App.Env == EnvDevelopment }

func (c *Config) IsProduction() bool { return c.App.Env == EnvProduction }

// NeedsRedis reports whether the limiter or the event sink uses Redis.
func (c *Config) NeedsRedis() bool {
	return c.RateLimit.Backend == RateLimitBackendRedis || c.Events.Sink == EventSinkRedis
}
