package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("none disables caching", func(t *testing.T) {
		qc, closeFn, err := NewFromConfig(ctx, config.CacheConfig{Backend: config.CacheBackendNone}, config.RedisConfig{})
		require.NoError(t, err)
		defer closeFn()

		assert.IsType(t, NoopStore{}, qc.store)
		qc.Set(ctx, EntityLead, OpCount, 1, 5)
		var n int
		assert.False(t, qc.Get(ctx, EntityLead, OpCount, 1, &n))
	})

	t.Run("memory uses configured ttl and prefix", func(t *testing.T) {
		qc, closeFn, err := NewFromConfig(ctx, config.CacheConfig{
			Backend:    config.CacheBackendMemory,
			TTL:        time.Minute,
			MaxEntries: 10,
			KeyPrefix:  "test",
		}, config.RedisConfig{}, WithLogger(zap.NewNop()))
		require.NoError(t, err)
		defer closeFn()

		assert.IsType(t, &MemoryStore{}, qc.store)
		assert.Equal(t, "test", qc.prefix)
		assert.Equal(t, time.Minute, qc.ttl)
	})

	t.Run("redis connects to a live server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		port, err := strconv.Atoi(mr.Port())
		require.NoError(t, err)

		qc, closeFn, err := NewFromConfig(ctx, config.CacheConfig{Backend: config.CacheBackendRedis},
			config.RedisConfig{Host: mr.Host(), Port: port})
		require.NoError(t, err)
		defer closeFn()

		assert.IsType(t, &RedisStore{}, qc.store)
		qc.Set(ctx, EntityLead, OpCount, 1, 5)
		var n int
		require.True(t, qc.Get(ctx, EntityLead, OpCount, 1, &n))
		assert.Equal(t, 5, n)
	})

	t.Run("unreachable redis falls back to memory", func(t *testing.T) {
		qc, closeFn, err := NewFromConfig(ctx, config.CacheConfig{Backend: config.CacheBackendRedis, MaxEntries: 5},
			config.RedisConfig{Host: "127.0.0.1", Port: 1})
		require.NoError(t, err)
		defer closeFn()

		assert.IsType(t, &MemoryStore{}, qc.store)
	})

	t.Run("unreachable redis fails without fallback", func(t *testing.T) {
		_, _, err := NewFromConfig(ctx, config.CacheConfig{Backend: config.CacheBackendRedis},
			config.RedisConfig{Host: "127.0.0.1", Port: 1}, WithInMemoryFallback(false))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis required")
	})
}
