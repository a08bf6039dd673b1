package telemetry

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetrics holds the database metric instruments
type DBMetrics struct {
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	slowThreshold  time.Duration
}

// NewDBMetrics creates the query instruments and registers an observable
// gauge reporting pool usage of sqlDB at each collection.
func NewDBMetrics(meter metric.Meter, sqlDB *sql.DB, slowThreshold time.Duration) (*DBMetrics, error) {
	queryTotal, err := NewCounter(meter, "db_query_total", "Total number of database queries by operation type", "{query}")
	if err != nil {
		return nil, err
	}
	queryDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency distribution in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	slowQueryTotal, err := NewCounter(meter, "db_slow_query_total", "Total number of slow database queries", "{query}")
	if err != nil {
		return nil, err
	}

	if sqlDB != nil {
		_, err = meter.Int64ObservableGauge("db_pool_connections",
			metric.WithDescription("Number of connections in the pool by state"),
			metric.WithUnit("{connection}"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				stats := sqlDB.Stats()
				o.Observe(int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
				o.Observe(int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
				o.Observe(int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
				return nil
			}),
		)
		if err != nil {
			return nil, err
		}
	}

	return &DBMetrics{
		queryTotal:     queryTotal,
		queryDuration:  queryDuration,
		slowQueryTotal: slowQueryTotal,
		slowThreshold:  slowThreshold,
	}, nil
}

// RecordQuery records one completed statement
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration) {
	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, duration, AttrDBOperation.String(operation))

	if m.slowThreshold > 0 && duration > m.slowThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// RegisterDBMetrics attaches query metrics to every statement run through db
func RegisterDBMetrics(db *gorm.DB, meter metric.Meter, slowThreshold time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	m, err := NewDBMetrics(meter, sqlDB, slowThreshold)
	if err != nil {
		return nil, err
	}

	err = registerTimed(db, "db_metrics", false, func(db *gorm.DB, operation string, elapsed time.Duration) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		m.RecordQuery(ctx, operation, db.Statement.Table, elapsed)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Database metrics registered", zap.Duration("slow_query_threshold", slowThreshold))
	return m, nil
}
