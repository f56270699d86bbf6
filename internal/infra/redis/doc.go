// Package redis provides the Redis client and the shared fixed-window rate
// limit store.
//
// The in-process store in pkg/ratelimit keeps counters per instance, so N
// replicas enforce up to N times the configured limit. FixedWindowStore moves
// the counter into Redis: one Lua script reads the counter, opens a window
// with SET ... PX when none exists, increments while under the limit and
// leaves the key untouched once the limit is reached. The decision is built
// the same way as the in-memory one, so callers see the same contract.
//
// Usage:
//
//	client, err := redis.New(ctx, &cfg.Redis, log)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	store := redis.NewFixedWindowStore(client, "ratelimit")
//	limiter := ratelimit.NewLimiter(store)
//
// Redis is consulted once per request. When it is unreachable the error is
// returned to the caller; the HTTP middleware decides whether to fail open.
package redis
