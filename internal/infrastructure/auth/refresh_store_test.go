package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refreshStores(t *testing.T) map[string]identity.RefreshTokenStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]identity.RefreshTokenStore{
		"memory": NewInMemoryRefreshStore(),
		"redis":  NewRedisRefreshStore(client),
	}
}

func TestRefreshStores(t *testing.T) {
	for name, store := range refreshStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Second)

			tok := &identity.RefreshToken{ID: "jti-1", UserID: 7, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
			require.NoError(t, store.Save(ctx, tok))
			require.NoError(t, store.Save(ctx, &identity.RefreshToken{ID: "jti-2", UserID: 7, ExpiresAt: now.Add(time.Hour), CreatedAt: now}))
			require.NoError(t, store.Save(ctx, &identity.RefreshToken{ID: "jti-3", UserID: 8, ExpiresAt: now.Add(time.Hour), CreatedAt: now}))

			got, err := store.Find(ctx, "jti-1")
			require.NoError(t, err)
			assert.Equal(t, int64(7), got.UserID)
			assert.True(t, got.ExpiresAt.Equal(tok.ExpiresAt))
			assert.True(t, got.IsUsable(now))

			_, err = store.Find(ctx, "unknown")
			assert.ErrorIs(t, err, shared.ErrNotFound)
			assert.ErrorIs(t, store.Revoke(ctx, "unknown"), shared.ErrNotFound)

			require.NoError(t, store.Revoke(ctx, "jti-1"))
			assert.ErrorIs(t, store.Revoke(ctx, "jti-1"), identity.ErrRefreshTokenRevoked)
			got, err = store.Find(ctx, "jti-1")
			require.NoError(t, err)
			assert.NotNil(t, got.RevokedAt)
			assert.False(t, got.IsUsable(now))

			require.NoError(t, store.RevokeAllForUser(ctx, 7))
			got, err = store.Find(ctx, "jti-2")
			require.NoError(t, err)
			assert.NotNil(t, got.RevokedAt)

			got, err = store.Find(ctx, "jti-3")
			require.NoError(t, err)
			assert.Nil(t, got.RevokedAt, "other users keep their sessions")
		})
	}
}

func TestRefreshStores_ConcurrentRevokeHasOneWinner(t *testing.T) {
	for name, store := range refreshStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, &identity.RefreshToken{ID: "shared", UserID: 7, ExpiresAt: time.Now().Add(time.Hour)}))

			var wins, losses atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := store.Revoke(ctx, "shared")
					switch {
					case err == nil:
						wins.Add(1)
					case errors.Is(err, identity.ErrRefreshTokenRevoked):
						losses.Add(1)
					default:
						t.Errorf("unexpected revoke error: %v", err)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), wins.Load())
			assert.Equal(t, int32(7), losses.Load())
		})
	}
}

func TestRedisRefreshStore_Expiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisRefreshStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &identity.RefreshToken{ID: "jti", UserID: 1, ExpiresAt: time.Now().Add(time.Minute)}))
	require.NoError(t, store.Revoke(ctx, "jti"))
	assert.Greater(t, mr.TTL("refresh:jti:jti"), time.Duration(0), "revoke keeps the ttl")

	mr.FastForward(2 * time.Minute)
	_, err := store.Find(ctx, "jti")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// already expired tokens are not stored at all
	require.NoError(t, store.Save(ctx, &identity.RefreshToken{ID: "old", UserID: 1, ExpiresAt: time.Now().Add(-time.Minute)}))
	assert.False(t, mr.Exists("refresh:jti:old"))
}

func TestInMemoryRefreshStore_PrunesExpired(t *testing.T) {
	store := NewInMemoryRefreshStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &identity.RefreshToken{ID: "a", UserID: 1, ExpiresAt: now.Add(time.Second)}))
	now = now.Add(time.Minute)
	require.NoError(t, store.Save(ctx, &identity.RefreshToken{ID: "b", UserID: 1, ExpiresAt: now.Add(time.Hour)}))

	_, err := store.Find(ctx, "a")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
