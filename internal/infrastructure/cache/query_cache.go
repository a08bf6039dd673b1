package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/crm/backend/internal/infrastructure/persistence"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// DefaultTTL applies when Options.TTL is zero
const DefaultTTL = 60 * time.Second

// DefaultPrefix applies when Options.Prefix is empty
const DefaultPrefix = "crm"

// Options configures a QueryCache
type Options struct {
	Prefix string
	TTL    time.Duration
	Logger *zap.Logger
	Meter  metric.Meter
}

// QueryCache memoizes read results keyed by entity, operation and arguments.
// Keys carry no principal: two callers with the same scope predicate share an
// entry. Store failures are logged and swallowed so the cache can only ever
// degrade to uncached operation.
type QueryCache struct {
	store   Store
	prefix  string
	ttl     time.Duration
	logger  *zap.Logger
	metrics *cacheMetrics
}

// New creates a QueryCache over store
func New(store Store, opts Options) *QueryCache {
	if store == nil {
		store = NoopStore{}
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &QueryCache{
		store:   store,
		prefix:  opts.Prefix,
		ttl:     opts.TTL,
		logger:  opts.Logger,
		metrics: newCacheMetrics(opts.Meter),
	}
}

// Get decodes the entry for (entity, op, args) into dest and reports a hit
func (c *QueryCache) Get(ctx context.Context, entity, op string, args any, dest any) bool {
	key, err := BuildKey(c.prefix, entity, op, args)
	if err != nil {
		c.fail(ctx, entity, "build key", err)
		return false
	}
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.fail(ctx, entity, "get", err)
		return false
	}
	if !ok {
		c.metrics.inc(ctx, c.metrics.misses, entity)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.fail(ctx, entity, "decode", err)
		return false
	}
	c.metrics.inc(ctx, c.metrics.hits, entity)
	return true
}

// Set stores value for (entity, op, args) with the configured TTL
func (c *QueryCache) Set(ctx context.Context, entity, op string, args any, value any) {
	key, err := BuildKey(c.prefix, entity, op, args)
	if err != nil {
		c.fail(ctx, entity, "build key", err)
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.fail(ctx, entity, "encode", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.fail(ctx, entity, "set", err)
	}
}

// InvalidateEntity drops every cached read of the given entities
func (c *QueryCache) InvalidateEntity(ctx context.Context, entities ...string) {
	for _, entity := range entities {
		if err := c.store.DeletePrefix(ctx, entityPrefix(c.prefix, entity)); err != nil {
			c.fail(ctx, entity, "invalidate", err)
			continue
		}
		c.metrics.inc(ctx, c.metrics.invalidations, entity)
	}
}

// Flush drops every entry under the cache prefix
func (c *QueryCache) Flush(ctx context.Context) {
	if err := c.store.DeletePrefix(ctx, c.prefix+":"); err != nil {
		c.fail(ctx, "*", "flush", err)
		return
	}
	c.metrics.inc(ctx, c.metrics.invalidations, "*")
}

// Invalidate records a write to entity. Affected entities are dropped at
// once and, inside a transaction, dropped again after commit so a read that
// raced the open transaction cannot leave stale data behind.
func (c *QueryCache) Invalidate(ctx context.Context, entity string) {
	affected := Affected(entity)
	c.InvalidateEntity(ctx, affected...)
	if persistence.InTransaction(ctx) {
		persistence.AfterCommit(ctx, func(ctx context.Context) {
			c.InvalidateEntity(ctx, affected...)
		})
	}
}

// OnWrite invalidates after a successful write op on entity
func (c *QueryCache) OnWrite(ctx context.Context, entity, op string) {
	if !IsWriteOp(op) {
		return
	}
	c.logger.Debug("query cache invalidation",
		zap.String("entity", entity),
		zap.String("op", op),
	)
	c.Invalidate(ctx, entity)
}

// FlushAll drops the whole cache now and again after commit
func (c *QueryCache) FlushAll(ctx context.Context) {
	c.Flush(ctx)
	if persistence.InTransaction(ctx) {
		persistence.AfterCommit(ctx, c.Flush)
	}
}

func (c *QueryCache) fail(ctx context.Context, entity, action string, err error) {
	c.metrics.inc(ctx, c.metrics.errors, entity)
	c.logger.Warn("query cache degraded",
		zap.String("entity", entity),
		zap.String("action", action),
		zap.Error(err),
	)
}

// Fetch serves (entity, op, args) from the cache or loads and stores it.
// Inside a transaction the cache is bypassed so reads observe uncommitted
// writes. Errors are never cached.
func Fetch[T any](ctx context.Context, c *QueryCache, entity, op string, args any, load func(context.Context) (T, error)) (T, error) {
	if c == nil || persistence.InTransaction(ctx) {
		return load(ctx)
	}
	var cached T
	if c.Get(ctx, entity, op, args, &cached) {
		return cached, nil
	}
	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	c.Set(ctx, entity, op, args, value)
	return value, nil
}
