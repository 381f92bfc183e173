package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tightConfig() *Config {
	return &Config{
		Limits: map[string]Limit{
			"webhook": {Requests: 3, Window: time.Minute},
			"default": {Requests: 2, Window: time.Minute},
		},
		KeyPrefix: "ratelimit:",
		Enabled:   true,
	}
}

func exerciseLimiter(t *testing.T, limiter Limiter) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(ctx, "client-1", "webhook")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should pass", i+1)
	}

	allowed, retry, err := limiter.Allow(ctx, "client-1", "webhook")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retry, time.Duration(0))

	// Other clients and categories have independent budgets.
	allowed, _, err = limiter.Allow(ctx, "client-2", "webhook")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = limiter.Allow(ctx, "client-1", "unlisted")
	require.NoError(t, err)
	assert.True(t, allowed, "unlisted categories fall back to the default budget")
}

func TestMemoryLimiter(t *testing.T) {
	exerciseLimiter(t, NewMemoryLimiter(tightConfig()))
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseLimiter(t, NewRedisLimiter(client, tightConfig()))
}

func TestLimiterDisabled(t *testing.T) {
	cfg := tightConfig()
	cfg.Enabled = false
	limiter := NewMemoryLimiter(cfg)

	for i := 0; i < 50; i++ {
		allowed, _, err := limiter.Allow(context.Background(), "client-1", "webhook")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestRedisLimiter_WindowReset(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cfg := &Config{
		Limits:    map[string]Limit{"webhook": {Requests: 2, Window: 50 * time.Millisecond}},
		KeyPrefix: "ratelimit:",
		Enabled:   true,
	}
	limiter := NewRedisLimiter(client, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := limiter.Allow(ctx, "client-1", "webhook")
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, _, err := limiter.Allow(ctx, "client-1", "webhook")
	require.NoError(t, err)
	require.False(t, allowed)

	// A fresh window restores the budget.
	time.Sleep(60 * time.Millisecond)
	allowed, _, err = limiter.Allow(ctx, "client-1", "webhook")
	require.NoError(t, err)
	assert.True(t, allowed)
}
