package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter shared across instances. The
// window check runs as a Lua script so concurrent instances never race
// on the counter.
type RedisLimiter struct {
	client *redis.Client
	config *Config
}

func NewRedisLimiter(client *redis.Client, config *Config) *RedisLimiter {
	if config == nil {
		config = DefaultConfig()
	}
	return &RedisLimiter{client: client, config: config}
}

var windowScript = redis.NewScript(`
	local key = KEYS[1]
	local budget = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])
	local now_ms = tonumber(ARGV[3])

	local count = tonumber(redis.call('HGET', key, 'count')) or 0
	local window_start = tonumber(redis.call('HGET', key, 'window_start')) or now_ms

	if now_ms - window_start >= window_ms then
		count = 0
		window_start = now_ms
	end

	local allowed = count < budget
	if allowed then
		count = count + 1
	end

	local retry_ms = 0
	if not allowed then
		retry_ms = (window_start + window_ms) - now_ms
	end

	redis.call('HSET', key, 'count', count, 'window_start', window_start)
	redis.call('PEXPIRE', key, window_ms * 2)

	return {allowed and 1 or 0, retry_ms}
`)

func (r *RedisLimiter) Allow(ctx context.Context, clientID, category string) (bool, time.Duration, error) {
	if !r.config.Enabled {
		return true, 0, nil
	}

	limit := r.config.Budget(category)
	key := fmt.Sprintf("%s%s:%s", r.config.KeyPrefix, clientID, category)

	result, err := windowScript.Run(ctx, r.client, []string{key},
		limit.Requests,
		limit.Window.Milliseconds(),
		time.Now().UnixMilli()).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit check failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit script result %v", result)
	}
	allowed, _ := values[0].(int64)
	retryMs, _ := values[1].(int64)

	return allowed == 1, time.Duration(retryMs) * time.Millisecond, nil
}
