package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvConfigFile names an optional YAML file read before the environment.
// Environment variables always win over file values.
const EnvConfigFile = "CONFIG_FILE"

// binding maps a config key to its environment variables, in priority
// order, and its default.
type binding struct {
	key  string
	envs []string
	def  any
}

var bindings = []binding{
	{"config_file", []string{EnvConfigFile}, ""},

	{"app.name", []string{"APP_NAME"}, "guard-api"},
	{"app.env", []string{"APP_ENV", "NODE_ENV"}, EnvDevelopment},
	{"app.public_base_url", []string{"PUBLIC_BASE_URL"}, "http://localhost:8080"},

	{"server.host", []string{"SERVER_HOST"}, "0.0.0.0"},
	{"server.port", []string{"SERVER_PORT"}, 8080},
	{"server.read_timeout", []string{"SERVER_READ_TIMEOUT"}, 15 * time.Second},
	{"server.write_timeout", []string{"SERVER_WRITE_TIMEOUT"}, 15 * time.Second},
	{"server.request_timeout", []string{"SERVER_REQUEST_TIMEOUT"}, 10 * time.Second},
	{"server.shutdown_timeout", []string{"SERVER_SHUTDOWN_TIMEOUT"}, 30 * time.Second},
	{"server.max_body_size", []string{"SERVER_MAX_BODY_SIZE"}, int64(1 << 20)},

	{"redis.host", []string{"REDIS_HOST"}, "localhost"},
	{"redis.port", []string{"REDIS_PORT"}, 6379},
	{"redis.password", []string{"REDIS_PASSWORD"}, ""},
	{"redis.db", []string{"REDIS_DB"}, 0},
	{"redis.pool_size", []string{"REDIS_POOL_SIZE"}, 10},
	{"redis.min_idle_conns", []string{"REDIS_MIN_IDLE_CONNS"}, 2},
	{"redis.dial_timeout", []string{"REDIS_DIAL_TIMEOUT"}, 5 * time.Second},
	{"redis.read_timeout", []string{"REDIS_READ_TIMEOUT"}, 3 * time.Second},
	{"redis.write_timeout", []string{"REDIS_WRITE_TIMEOUT"}, 3 * time.Second},
	{"redis.tls_enabled", []string{"REDIS_TLS_ENABLED"}, false},
	{"redis.tls_skip_verify", []string{"REDIS_TLS_SKIP_VERIFY"}, false},
	{"redis.max_retries", []string{"REDIS_MAX_RETRIES"}, 3},
	{"redis.min_retry_delay", []string{"REDIS_MIN_RETRY_DELAY"}, 100 * time.Millisecond},
	{"redis.max_retry_delay", []string{"REDIS_MAX_RETRY_DELAY"}, 3 * time.Second},

	{"log.level", []string{"LOG_LEVEL"}, "info"},
	{"log.format", []string{"LOG_FORMAT"}, "json"},
	{"log.sampling_threshold", []string{"LOG_SAMPLING_THRESHOLD"}, 100},
	{"log.sampling_rate", []string{"LOG_SAMPLING_RATE"}, 0.1},
	{"log.error_sampling_rate", []string{"LOG_ERROR_SAMPLING_RATE"}, 1.0},
	{"log.slow_request_seconds", []string{"LOG_SLOW_REQUEST_SECONDS"}, 5},
	// Defaults of these two depend on app.env; see applyEnvDefaults.
	{"log.sampling_enabled", []string{"LOG_SAMPLING_ENABLED"}, nil},
	{"log.skip_health", []string{"LOG_SKIP_HEALTH"}, nil},

	{"cors.allowed_methods", []string{"CORS_ALLOWED_METHODS"}, "GET,POST,OPTIONS"},
	{"cors.allowed_headers", []string{"CORS_ALLOWED_HEADERS"}, "Accept,Content-Type,X-Request-ID,X-Turnstile-Token"},
	{"cors.max_age", []string{"CORS_MAX_AGE"}, 86400},

	{"rate_limit.enabled", []string{"RATE_LIMIT_ENABLED"}, true},
	{"rate_limit.backend", []string{"RATE_LIMIT_BACKEND"}, RateLimitBackendMemory},
	{"rate_limit.key_prefix", []string{"RATE_LIMIT_KEY_PREFIX"}, "ratelimit"},
	{"rate_limit.fail_open", []string{"RATE_LIMIT_FAIL_OPEN"}, true},
	{"rate_limit.cleanup_interval", []string{"RATE_LIMIT_CLEANUP_INTERVAL"}, time.Minute},
	{"rate_limit.trust_proxy_headers", []string{"TRUSTED_PROXY_HEADERS"}, true},

	{"origin.allowed_origins", []string{"ALLOWED_ORIGINS"}, ""},
	{"origin.preview_host", []string{"ORIGIN_PREVIEW_HOST", "VERCEL_URL"}, ""},

	{"turnstile.site_key", []string{"TURNSTILE_SITE_KEY"}, ""},
	{"turnstile.secret_key", []string{"TURNSTILE_SECRET_KEY"}, ""},
	{"turnstile.verify_url", []string{"TURNSTILE_VERIFY_URL"}, "https://challenges.cloudflare.com/turnstile/v0/siteverify"},
	{"turnstile.timeout", []string{"TURNSTILE_TIMEOUT"}, 5 * time.Second},
	{"turnstile.policy", []string{"CAPTCHA_POLICY"}, CaptchaPolicyFailOpenInDev},
	{"turnstile.max_rps", []string{"TURNSTILE_MAX_RPS"}, 20.0},
	{"turnstile.burst", []string{"TURNSTILE_BURST"}, 40},

	{"signing.secret", []string{"SIGNING_SECRET"}, ""},
	{"signing.max_age", []string{"SIGNING_MAX_AGE"}, 5 * time.Minute},

	{"tracing.enabled", []string{"OTEL_ENABLED"}, false},
	{"tracing.endpoint", []string{"OTEL_EXPORTER_OTLP_ENDPOINT"}, "localhost:4318"},
	{"tracing.insecure", []string{"OTEL_EXPORTER_OTLP_INSECURE"}, true},
	{"tracing.sample_ratio", []string{"OTEL_SAMPLE_RATIO"}, 1.0},

	{"events.sink", []string{"EVENT_SINK"}, EventSinkLog},
	{"events.stream", []string{"EVENT_STREAM"}, "guard:events"},
	{"events.max_len", []string{"EVENT_STREAM_MAXLEN"}, int64(100_000)},

	{"smtp.host", []string{"SMTP_HOST"}, ""},
	{"smtp.port", []string{"SMTP_PORT"}, 587},
	{"smtp.user", []string{"SMTP_USER"}, ""},
	{"smtp.password", []string{"SMTP_PASSWORD"}, ""},
	{"smtp.from", []string{"SMTP_FROM"}, ""},
	{"smtp.from_name", []string{"SMTP_FROM_NAME"}, ""},
	{"smtp.tls", []string{"SMTP_TLS"}, true},
	{"smtp.skip_verify", []string{"SMTP_SKIP_VERIFY"}, false},
	{"smtp.timeout", []string{"SMTP_TIMEOUT"}, 10 * time.Second},
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	cfg := decode(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	for _, b := range bindings {
		args := append([]string{b.key}, b.envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", b.key, err)
		}
		if b.def != nil {
			v.SetDefault(b.key, b.def)
		}
	}

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	applyEnvDefaults(v)
	return v, nil
}

// applyEnvDefaults sets defaults that depend on the environment name:
// production samples logs and skips probe logging.
func applyEnvDefaults(v *viper.Viper) {
	prod := strings.EqualFold(v.GetString("app.env"), EnvProduction)
	v.SetDefault("log.sampling_enabled", prod)
	v.SetDefault("log.skip_health", prod)
}

func decode(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name:          v.GetString("app.name"),
			Env:           strings.ToLower(v.GetString("app.env")),
			PublicBaseURL: strings.TrimRight(v.GetString("app.public_base_url"), "/"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			RequestTimeout:  v.GetDuration("server.request_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			MaxBodySize:     v.GetInt64("server.max_body_size"),
		},
		Redis: RedisConfig{
			Host:          v.GetString("redis.host"),
			Port:          v.GetInt("redis.port"),
			Password:      v.GetString("redis.password"),
			DB:            v.GetInt("redis.db"),
			PoolSize:      v.GetInt("redis.pool_size"),
			MinIdleConns:  v.GetInt("redis.min_idle_conns"),
			DialTimeout:   v.GetDuration("redis.dial_timeout"),
			ReadTimeout:   v.GetDuration("redis.read_timeout"),
			WriteTimeout:  v.GetDuration("redis.write_timeout"),
			TLSEnabled:    v.GetBool("redis.tls_enabled"),
			TLSSkipVerify: v.GetBool("redis.tls_skip_verify"),
			MaxRetries:    v.GetInt("redis.max_retries"),
			MinRetryDelay: v.GetDuration("redis.min_retry_delay"),
			MaxRetryDelay: v.GetDuration("redis.max_retry_delay"),
		},
		Log: LogConfig{
			Level:              v.GetString("log.level"),
			Format:             v.GetString("log.format"),
			SamplingEnabled:    v.GetBool("log.sampling_enabled"),
			SamplingThreshold:  v.GetInt("log.sampling_threshold"),
			SamplingRate:       v.GetFloat64("log.sampling_rate"),
			ErrorSamplingRate:  v.GetFloat64("log.error_sampling_rate"),
			SkipHealthLogs:     v.GetBool("log.skip_health"),
			SlowRequestSeconds: v.GetInt("log.slow_request_seconds"),
		},
		CORS: CORSConfig{
			AllowedMethods: list(v, "cors.allowed_methods"),
			AllowedHeaders: list(v, "cors.allowed_headers"),
			MaxAge:         v.GetInt("cors.max_age"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           v.GetBool("rate_limit.enabled"),
			Backend:           strings.ToLower(v.GetString("rate_limit.backend")),
			KeyPrefix:         v.GetString("rate_limit.key_prefix"),
			FailOpen:          v.GetBool("rate_limit.fail_open"),
			CleanupInterval:   v.GetDuration("rate_limit.cleanup_interval"),
			TrustProxyHeaders: v.GetBool("rate_limit.trust_proxy_headers"),
		},
		Origin: OriginConfig{
			AllowedOrigins: list(v, "origin.allowed_origins"),
			PreviewHost:    v.GetString("origin.preview_host"),
		},
		Turnstile: TurnstileConfig{
			SiteKey:   v.GetString("turnstile.site_key"),
			SecretKey: v.GetString("turnstile.secret_key"),
			VerifyURL: v.GetString("turnstile.verify_url"),
			Timeout:   v.GetDuration("turnstile.timeout"),
			Policy:    strings.ToLower(v.GetString("turnstile.policy")),
			MaxRPS:    v.GetFloat64("turnstile.max_rps"),
			Burst:     v.GetInt("turnstile.burst"),
		},
		Signing: SigningConfig{
			Secret: v.GetString("signing.secret"),
			MaxAge: v.GetDuration("signing.max_age"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("tracing.enabled"),
			Endpoint:    v.GetString("tracing.endpoint"),
			Insecure:    v.GetBool("tracing.insecure"),
			SampleRatio: v.GetFloat64("tracing.sample_ratio"),
		},
		Events: EventsConfig{
			Sink:   strings.ToLower(v.GetString("events.sink")),
			Stream: v.GetString("events.stream"),
			MaxLen: v.GetInt64("events.max_len"),
		},
		SMTP: SMTPConfig{
			Host:       v.GetString("smtp.host"),
			Port:       v.GetInt("smtp.port"),
			User:       v.GetString("smtp.user"),
			Password:   v.GetString("smtp.password"),
			From:       v.GetString("smtp.from"),
			FromName:   v.GetString("smtp.from_name"),
			TLS:        v.GetBool("smtp.tls"),
			SkipVerify: v.GetBool("smtp.skip_verify"),
			Timeout:    v.GetDuration("smtp.timeout"),
		},
	}
}

// list reads a comma-separated env value or a YAML sequence, dropping blanks.
func list(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case string:
		raw = strings.Split(val, ",")
	case []any:
		for _, item := range val {
			raw = append(raw, fmt.Sprint(item))
		}
	case []string:
		raw = val
	}

	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
