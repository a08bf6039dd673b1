package cache

import (
	"context"

	"github.com/crm/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/crm/backend/cache"

// cacheMetrics counts lookups and failures per entity
type cacheMetrics struct {
	hits          *telemetry.Counter
	misses        *telemetry.Counter
	errors        *telemetry.Counter
	invalidations *telemetry.Counter
}

func newCacheMetrics(meter metric.Meter) *cacheMetrics {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}
	m := &cacheMetrics{}
	// Instrument creation only fails on invalid names; a nil counter is skipped
	m.hits, _ = telemetry.NewCounter(meter, "crm.cache.hits", "Query cache hits", "{lookup}")
	m.misses, _ = telemetry.NewCounter(meter, "crm.cache.misses", "Query cache misses", "{lookup}")
	m.errors, _ = telemetry.NewCounter(meter, "crm.cache.errors", "Query cache store failures", "{error}")
	m.invalidations, _ = telemetry.NewCounter(meter, "crm.cache.invalidations", "Entity invalidations", "{invalidation}")
	return m
}

func (m *cacheMetrics) inc(ctx context.Context, c *telemetry.Counter, entity string) {
	if c == nil {
		return
	}
	c.Inc(ctx, telemetry.AttrEntity.String(entity))
}
