// Package cache memoizes read queries by their content and invalidates them
// by entity type on every write.
package cache

import (
	"context"
	"time"
)

// Store is a byte-oriented key/value backend for the query cache.
// A miss is reported as (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeletePrefix removes every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error
}

// NoopStore never stores anything; every lookup is a miss
type NoopStore struct{}

func (NoopStore) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NoopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NoopStore) DeletePrefix(context.Context, string) error               { return nil }

var _ Store = NoopStore{}
