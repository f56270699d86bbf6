package redis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerstokyo/api/pkg/ratelimit"
)

func newTestStore(t *testing.T) (*FixedWindowStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return NewFixedWindowStore(Wrap(rc, nil), "test"), mr
}

func TestFixedWindowStore_AdmitsUpToLimit(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	cfg := ratelimit.Config{Limit: 3, Window: time.Minute}

	for i := 1; i <= 3; i++ {
		d, err := store.Check(ctx, "1.2.3.4:/api/contact", cfg)
		require.NoError(t, err)
		assert.True(t, d.Success, "call %d", i)
		assert.Equal(t, 3-i, d.Remaining, "call %d", i)
		assert.Equal(t, 3, d.Limit)
	}

	d, err := store.Check(ctx, "1.2.3.4:/api/contact", cfg)
	require.NoError(t, err)
	assert.False(t, d.Success)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.ResetIn, time.Duration(0))
	assert.LessOrEqual(t, d.ResetIn, time.Minute)

	// Rejections do not push the stored count past the limit.
	for i := 0; i < 5; i++ {
		_, _ = store.Check(ctx, "1.2.3.4:/api/contact", cfg)
	}
	val, err := mr.Get("test:1.2.3.4:/api/contact")
	require.NoError(t, err)
	assert.Equal(t, "3", val)
}

func TestFixedWindowStore_WindowReset(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	cfg := ratelimit.Config{Limit: 3, Window: time.Minute}

	for i := 0; i < 4; i++ {
		_, err := store.Check(ctx, "k", cfg)
		require.NoError(t, err)
	}

	mr.FastForward(cfg.Window + time.Millisecond)

	d, err := store.Check(ctx, "k", cfg)
	require.NoError(t, err)
	assert.True(t, d.Success)
	assert.Equal(t, 2, d.Remaining)
	assert.Equal(t, cfg.Window, d.ResetIn)
}

func TestFixedWindowStore_KeyWithoutExpiryOpensWindow(t *testing.T) {
	store, mr := newTestStore(t)
	require.NoError(t, mr.Set("test:k", "99"))

	d, err := store.Check(context.Background(), "k", ratelimit.Config{Limit: 2, Window: time.Minute})
	require.NoError(t, err)
	assert.True(t, d.Success)
	assert.Equal(t, 1, d.Remaining)
	assert.Greater(t, mr.TTL("test:k"), time.Duration(0))
}

func TestFixedWindowStore_Reset(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	cfg := ratelimit.Config{Limit: 1, Window: time.Minute}

	_, _ = store.Check(ctx, "k", cfg)
	d, _ := store.Check(ctx, "k", cfg)
	require.False(t, d.Success)

	require.NoError(t, store.Reset(ctx, "k"))
	d, err := store.Check(ctx, "k", cfg)
	require.NoError(t, err)
	assert.True(t, d.Success)
}

func TestFixedWindowStore_Errors(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.Check(ctx, "", ratelimit.Config{Limit: 1, Window: time.Second})
	assert.Error(t, err)

	_, err = store.Check(ctx, "k", ratelimit.Config{})
	assert.ErrorIs(t, err, ratelimit.ErrInvalidConfig)

	mr.Close()
	_, err = store.Check(ctx, "k", ratelimit.Config{Limit: 1, Window: time.Second})
	assert.Error(t, err)
}

func TestFixedWindowStore_WithLimiter(t *testing.T) {
	store, _ := newTestStore(t)
	limiter := ratelimit.NewLimiter(store, ratelimit.WithIdentifier(func(*http.Request) string { return "5.6.7.8" }))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/spring/plays", nil)
	d, err := limiter.Allow(context.Background(), req, ratelimit.PresetStrict)
	require.NoError(t, err)
	assert.True(t, d.Success)

	d, err = limiter.Allow(context.Background(), req, ratelimit.PresetStrict)
	require.NoError(t, err)
	assert.False(t, d.Success)
	assert.Equal(t, 60, d.RetryAfterSeconds())
}
