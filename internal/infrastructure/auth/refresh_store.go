package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// RedisRefreshStore keeps issued refresh tokens in Redis.
// Each token lives until its own expiry; a per-user set indexes the jtis so
// every session of a user can be revoked at once.
type RedisRefreshStore struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// NewRedisRefreshStore creates a refresh token store over an existing Redis client
func NewRedisRefreshStore(client *redis.Client) *RedisRefreshStore {
	return &RedisRefreshStore{
		client:    client,
		keyPrefix: "refresh:",
		now:       time.Now,
	}
}

type redisRefreshToken struct {
	UserID    int64      `json:"user_id"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (s *RedisRefreshStore) tokenKey(id string) string {
	return s.keyPrefix + "jti:" + id
}

func (s *RedisRefreshStore) userKey(userID int64) string {
	return fmt.Sprintf("%suser:%d", s.keyPrefix, userID)
}

// Save stores token with a TTL matching its expiry
func (s *RedisRefreshStore) Save(ctx context.Context, token *identity.RefreshToken) error {
	ttl := token.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(redisRefreshToken{
		UserID:    token.UserID,
		ExpiresAt: token.ExpiresAt,
		RevokedAt: token.RevokedAt,
		CreatedAt: token.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode refresh token: %w", err)
	}

	userKey := s.userKey(token.UserID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.tokenKey(token.ID), raw, ttl)
	pipe.SAdd(ctx, userKey, token.ID)
	// Tokens share one lifetime, so the newest one outlives the rest
	pipe.Expire(ctx, userKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

// Find loads a token by jti
func (s *RedisRefreshStore) Find(ctx context.Context, id string) (*identity.RefreshToken, error) {
	raw, err := s.client.Get(ctx, s.tokenKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}
	var stored redisRefreshToken
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode refresh token: %w", err)
	}
	return &identity.RefreshToken{
		ID:        id,
		UserID:    stored.UserID,
		ExpiresAt: stored.ExpiresAt,
		RevokedAt: stored.RevokedAt,
		CreatedAt: stored.CreatedAt,
	}, nil
}

// revokeRetries bounds WATCH retries when the token key changes under us
const revokeRetries = 3

// Revoke marks a token revoked, keeping its remaining TTL. The read and the
// write run under WATCH, so of two concurrent revokes only one succeeds and
// the other gets identity.ErrRefreshTokenRevoked.
func (s *RedisRefreshStore) Revoke(ctx context.Context, id string) error {
	key := s.tokenKey(id)
	revoke := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return shared.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load refresh token: %w", err)
		}
		var stored redisRefreshToken
		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("decode refresh token: %w", err)
		}
		if stored.RevokedAt != nil {
			return identity.ErrRefreshTokenRevoked
		}
		now := s.now()
		stored.RevokedAt = &now
		raw, err = json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("encode refresh token: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, raw, redis.SetArgs{KeepTTL: true, Mode: "XX"})
			return nil
		})
		return err
	}

	for i := 0; i < revokeRetries; i++ {
		err := s.client.Watch(ctx, revoke, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, identity.ErrRefreshTokenRevoked) {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		return err
	}
	return fmt.Errorf("failed to revoke refresh token: %w", redis.TxFailedErr)
}

// RevokeAllForUser revokes every live token of userID
func (s *RedisRefreshStore) RevokeAllForUser(ctx context.Context, userID int64) error {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list refresh tokens: %w", err)
	}
	for _, id := range ids {
		err := s.Revoke(ctx, id)
		if err != nil && !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, identity.ErrRefreshTokenRevoked) {
			return err
		}
	}
	return nil
}

var _ identity.RefreshTokenStore = (*RedisRefreshStore)(nil)

// InMemoryRefreshStore keeps refresh tokens in process memory.
// Tokens do not survive a restart and are not shared between instances.
type InMemoryRefreshStore struct {
	mu     sync.Mutex
	tokens map[string]identity.RefreshToken
	now    func() time.Time
}

// NewInMemoryRefreshStore creates an empty in-memory store
func NewInMemoryRefreshStore() *InMemoryRefreshStore {
	return &InMemoryRefreshStore{
		tokens: make(map[string]identity.RefreshToken),
		now:    time.Now,
	}
}

// Save stores token and drops expired entries
func (s *InMemoryRefreshStore) Save(_ context.Context, token *identity.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, t := range s.tokens {
		if !now.Before(t.ExpiresAt) {
			delete(s.tokens, id)
		}
	}
	s.tokens[token.ID] = *token
	return nil
}

// Find loads a token by jti
func (s *InMemoryRefreshStore) Find(_ context.Context, id string) (*identity.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &t, nil
}

// Revoke marks a token revoked. A token already revoked gives
// identity.ErrRefreshTokenRevoked.
func (s *InMemoryRefreshStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[id]
	if !ok {
		return shared.ErrNotFound
	}
	if t.RevokedAt != nil {
		return identity.ErrRefreshTokenRevoked
	}
	now := s.now()
	t.RevokedAt = &now
	s.tokens[id] = t
	return nil
}

// RevokeAllForUser revokes every token of userID
func (s *InMemoryRefreshStore) RevokeAllForUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, t := range s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			s.tokens[id] = t
		}
	}
	return nil
}

var _ identity.RefreshTokenStore = (*InMemoryRefreshStore)(nil)
