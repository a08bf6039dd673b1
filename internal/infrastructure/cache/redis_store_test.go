package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreWithClient(client), mr
}

func TestRedisStore_GetSet(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "crm:lead:get:{}", []byte(`{"id":1}`), time.Minute))
	got, ok, err := store.Get(ctx, "crm:lead:get:{}")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"id":1}`, string(got))

	mr.FastForward(2 * time.Minute)
	_, ok, err = store.Get(ctx, "crm:lead:get:{}")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_DeletePrefix(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, store.Set(ctx, "crm:lead:list:"+strconv.Itoa(i), []byte("x"), 0))
	}
	require.NoError(t, store.Set(ctx, "crm:client:list:1", []byte("x"), 0))
	require.NoError(t, store.Set(ctx, "other:lead:list:1", []byte("x"), 0))

	require.NoError(t, store.DeletePrefix(ctx, "crm:lead:"))

	assert.Equal(t, []string{"crm:client:list:1", "other:lead:list:1"}, mr.Keys())
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()
	mr.Close()

	_, _, err := store.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, store.Set(ctx, "k", []byte("v"), 0))
	assert.Error(t, store.DeletePrefix(ctx, "crm:"))
}

func TestNewRedisStore_ConnectFailure(t *testing.T) {
	_, err := NewRedisStore(context.Background(), &redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `crm\*:lead:`, escapeGlob("crm*:lead:"))
	assert.Equal(t, `a\?b\[c\]`, escapeGlob("a?b[c]"))
}
