package redis

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerstokyo/api/internal/config"
)

func redisConfig(addr string, retries int) *config.RedisConfig {
	host, port, _ := net.SplitHostPort(addr)
	p, _ := strconv.Atoi(port)
	return &config.RedisConfig{
		Host:          host,
		Port:          p,
		PoolSize:      2,
		DialTimeout:   200 * time.Millisecond,
		ReadTimeout:   200 * time.Millisecond,
		WriteTimeout:  200 * time.Millisecond,
		MaxRetries:    retries,
		MinRetryDelay: 10 * time.Millisecond,
		MaxRetryDelay: 20 * time.Millisecond,
	}
}

// closedAddr returns an address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestNew_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := New(context.Background(), redisConfig(mr.Addr(), 0), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, client.Ping(context.Background()))
	assert.NotNil(t, client.PoolStats())
}

func TestNew_Unreachable(t *testing.T) {
	_, err := New(context.Background(), redisConfig(closedAddr(t), 2), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestNew_CancelledWhileRetrying(t *testing.T) {
	cfg := redisConfig(closedAddr(t), 100)
	cfg.MinRetryDelay = time.Hour
	cfg.MaxRetryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := New(ctx, cfg, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestRegisterPoolCollector(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), redisConfig(mr.Addr(), 0), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	reg := prometheus.NewRegistry()
	unregister, err := RegisterPoolCollector(reg, client)
	require.NoError(t, err)

	assert.Equal(t, 4, testutil.CollectAndCount(reg))

	unregister()
	assert.Equal(t, 0, testutil.CollectAndCount(reg))
}
