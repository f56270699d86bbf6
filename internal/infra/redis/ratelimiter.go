package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/makerstokyo/api/pkg/ratelimit"
)

// ErrUnexpectedReply means the window script returned a reply of the wrong
// shape, usually a script/server version mismatch.
var ErrUnexpectedReply = errors.New("redis: unexpected script reply")

// fixedWindowScript counts one request atomically.
//
// Reply: {allowed (0|1), count, ttl_ms}. A missing key, or one left without
// an expiry, opens a new window. At the limit the key is not modified.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])

	local count = tonumber(redis.call('GET', key) or '0')
	local ttl = redis.call('PTTL', key)

	if count == 0 or ttl < 0 then
		redis.call('SET', key, 1, 'PX', window_ms)
		return {1, 1, window_ms}
	end

	if count < limit then
		count = redis.call('INCR', key)
		return {1, count, ttl}
	end

	return {0, count, ttl}
`)

// FixedWindowStore is a ratelimit.Store shared by every instance pointing
// at the same Redis.
type FixedWindowStore struct {
	client    *Client
	keyPrefix string
}

var _ ratelimit.Store = (*FixedWindowStore)(nil)

// NewFixedWindowStore creates a store that namespaces keys under prefix.
func NewFixedWindowStore(client *Client, prefix string) *FixedWindowStore {
	return &FixedWindowStore{client: client, keyPrefix: prefix}
}

func (s *FixedWindowStore) buildKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return s.keyPrefix + ":" + key
}

// Check implements ratelimit.Store.
func (s *FixedWindowStore) Check(ctx context.Context, key string, cfg ratelimit.Config) (ratelimit.Decision, error) {
	if key == "" {
		return ratelimit.Decision{}, errors.New("key is required")
	}
	if err := cfg.Validate(); err != nil {
		return ratelimit.Decision{}, err
	}

	windowMs := cfg.Window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}

	start := time.Now()
	reply, err := fixedWindowScript.Run(ctx, s.client.client, []string{s.buildKey(key)}, cfg.Limit, windowMs).Int64Slice()
	DefaultMetrics.observe(opRateLimitCheck, start, err)
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("rate limit check: %w", err)
	}
	if len(reply) != 3 {
		return ratelimit.Decision{}, fmt.Errorf("%w: got %d values", ErrUnexpectedReply, len(reply))
	}

	allowed := reply[0] == 1
	count := int(reply[1])
	ttl := time.Duration(reply[2]) * time.Millisecond
	if ttl < 0 {
		ttl = 0
	}

	DefaultMetrics.window(allowed)

	if !allowed {
		return ratelimit.Decision{Success: false, Limit: cfg.Limit, Remaining: 0, ResetIn: ttl}, nil
	}
	remaining := cfg.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return ratelimit.Decision{Success: true, Limit: cfg.Limit, Remaining: remaining, ResetIn: ttl}, nil
}

// Reset deletes the counter for key.
func (s *FixedWindowStore) Reset(ctx context.Context, key string) error {
	if err := s.client.client.Del(ctx, s.buildKey(key)).Err(); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	return nil
}
