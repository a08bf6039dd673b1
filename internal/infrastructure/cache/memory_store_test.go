package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSet(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryStore_LazyExpiry(t *testing.T) {
	store := NewMemoryStore(10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, store.Set(ctx, "forever", []byte("2"), 0))

	now = now.Add(2 * time.Second)

	_, ok, _ := store.Get(ctx, "short")
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len(), "expired entry is removed on lookup")

	_, ok, _ = store.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestMemoryStore_EvictsOldestInserted(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("a"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("b"), 0))

	// Reading "a" must not protect it from eviction
	_, ok, _ := store.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, store.Set(ctx, "c", []byte("c"), 0))

	_, ok, _ = store.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "b")
	assert.True(t, ok)
	_, ok, _ = store.Get(ctx, "c")
	assert.True(t, ok)
}

func TestMemoryStore_ReinsertMovesToNewest(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "a", []byte("2"), 0))
	require.NoError(t, store.Set(ctx, "c", []byte("1"), 0))

	_, ok, _ := store.Get(ctx, "b")
	assert.False(t, ok)
	got, ok, _ := store.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, []byte("2"), got)
}

func TestMemoryStore_DeletePrefix(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	for _, k := range []string{"crm:lead:get:1", "crm:lead:list:2", "crm:client:get:1", "crm:leader:x"} {
		require.NoError(t, store.Set(ctx, k, []byte("x"), 0))
	}

	require.NoError(t, store.DeletePrefix(ctx, "crm:lead:"))

	assert.Equal(t, 2, store.Len())
	_, ok, _ := store.Get(ctx, "crm:client:get:1")
	assert.True(t, ok)
	_, ok, _ = store.Get(ctx, "crm:leader:x")
	assert.True(t, ok, "prefix match stops at the separator")
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore(50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			for j := 0; j < 100; j++ {
				_ = store.Set(ctx, key, []byte{byte(j)}, time.Minute)
				_, _, _ = store.Get(ctx, key)
				if j%25 == 0 {
					_ = store.DeletePrefix(ctx, key)
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, store.Len(), 50)
}

func TestNewMemoryStore_DefaultSize(t *testing.T) {
	store := NewMemoryStore(0)
	require.NotNil(t, store)
	require.NoError(t, store.Set(context.Background(), "k", []byte("v"), 0))
	assert.Equal(t, 1, store.Len())
}
