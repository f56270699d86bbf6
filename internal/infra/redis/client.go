package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/makerstokyo/api/internal/config"
	"github.com/makerstokyo/api/pkg/logger"
)

// Client is the Redis connection shared by the rate-limit store, the event
// stream sink and the readiness probe.
type Client struct {
	client *redis.Client
	logger *logger.Logger
}

// New connects to Redis. The first ping is retried with exponential backoff
// up to cfg.MaxRetries times; ctx cancels the wait between attempts.
func New(ctx context.Context, cfg *config.RedisConfig, log *logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("redis config is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("component", "redis")

	opts := &redis.Options{
		Addr:            cfg.Addr(),
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryDelay,
		MaxRetryBackoff: cfg.MaxRetryDelay,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // opt-in for local setups, rejected in production config
			MinVersion:         tls.VersionTLS12,
		}
	}

	rc := redis.NewClient(opts)
	if err := connect(ctx, rc, cfg, log); err != nil {
		_ = rc.Close()
		return nil, err
	}

	log.Info("redis connected", "addr", cfg.Addr(), "pool_size", cfg.PoolSize, "tls", cfg.TLSEnabled)
	return &Client{client: rc, logger: log}, nil
}

func connect(ctx context.Context, rc *redis.Client, cfg *config.RedisConfig, log *logger.Logger) error {
	backoff := cfg.MinRetryDelay
	for attempt := 0; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		err := rc.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return nil
		}
		if attempt >= cfg.MaxRetries {
			return fmt.Errorf("redis unreachable after %d attempts: %w", attempt+1, err)
		}

		log.Warn("redis ping failed, retrying", "attempt", attempt+1, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("redis connect: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, cfg.MaxRetryDelay)
	}
}

// Wrap adapts an existing go-redis client, e.g. one pointed at miniredis.
func Wrap(client *redis.Client, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{client: client, logger: log}
}

// Close closes the connection pool.
func (c *Client) Close() error {
	c.logger.Info("closing redis connection")
	return c.client.Close()
}

// Ping implements handler.Pinger for the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// PoolStats returns connection pool statistics.
func (c *Client) PoolStats() *redis.PoolStats {
	return c.client.PoolStats()
}
