package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisClient "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestRedisStore_RoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redisClient.NewClient(&redisClient.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, "test:")
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		err := store.Set(ctx, "cfg", payload{Name: "integration", Count: 3}, time.Minute)
		require.NoError(t, err)

		var got payload
		found, err := store.Get(ctx, "cfg", &got)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "integration", got.Name)
		assert.Equal(t, 3, got.Count)
	})

	t.Run("Get missing key", func(t *testing.T) {
		var got payload
		found, err := store.Get(ctx, "nope", &got)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "cfg"))

		var got payload
		found, err := store.Get(ctx, "cfg", &got)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("TTL expiry", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "short", payload{Name: "ttl"}, 100*time.Millisecond))

		mr.FastForward(200 * time.Millisecond)

		var got payload
		found, err := store.Get(ctx, "short", &got)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "cfg", payload{Name: "mem", Count: 1}, time.Minute))

	var got payload
	found, err := store.Get(ctx, "cfg", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "mem", got.Name)

	require.NoError(t, store.Delete(ctx, "cfg"))
	found, err = store.Get(ctx, "cfg", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", payload{Name: "ttl"}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var got payload
	found, err := store.Get(ctx, "short", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
