package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// FactoryOption is a functional option for NewFromConfig
type FactoryOption func(*factory)

type factory struct {
	logger                *zap.Logger
	meter                 metric.Meter
	allowInMemoryFallback bool
}

// WithLogger sets the logger for the cache
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *factory) {
		f.logger = logger
	}
}

// WithMeter sets the meter used for cache counters
func WithMeter(meter metric.Meter) FactoryOption {
	return func(f *factory) {
		f.meter = meter
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to an
// in-process store. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFromConfig builds the QueryCache selected by cfg.Backend.
// The returned close function releases any connection the store opened.
func NewFromConfig(ctx context.Context, cfg config.CacheConfig, redisCfg config.RedisConfig, opts ...FactoryOption) (*QueryCache, func() error, error) {
	f := &factory{logger: zap.NewNop(), allowInMemoryFallback: true}
	for _, opt := range opts {
		opt(f)
	}

	store, closeFn, err := f.newStore(ctx, cfg, redisCfg)
	if err != nil {
		return nil, nil, err
	}

	qc := New(store, Options{
		Prefix: cfg.KeyPrefix,
		TTL:    cfg.TTL,
		Logger: f.logger,
		Meter:  f.meter,
	})
	return qc, closeFn, nil
}

func (f *factory) newStore(ctx context.Context, cfg config.CacheConfig, redisCfg config.RedisConfig) (Store, func() error, error) {
	noClose := func() error { return nil }

	switch cfg.Backend {
	case config.CacheBackendNone:
		f.logger.Info("query cache disabled")
		return NoopStore{}, noClose, nil

	case config.CacheBackendRedis:
		store, err := NewRedisStore(ctx, &redis.Options{
			Addr:         redisCfg.Addr(),
			Password:     redisCfg.Password,
			DB:           redisCfg.DB,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err == nil {
			f.logger.Info("using Redis query cache", zap.String("addr", redisCfg.Addr()))
			return store, store.Close, nil
		}
		if !f.allowInMemoryFallback {
			return nil, nil, fmt.Errorf("redis required for query cache but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory query cache. "+
			"Instances will not share cached reads.",
			zap.Error(err),
		)
		return NewMemoryStore(cfg.MaxEntries), noClose, nil

	default:
		f.logger.Info("using in-memory query cache", zap.Int("max_entries", cfg.MaxEntries))
		return NewMemoryStore(cfg.MaxEntries), noClose, nil
	}
}
