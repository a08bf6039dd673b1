package cache

import (
	"context"

	"github.com/crm/backend/internal/infrastructure/persistence"
)

// FlushingExecutor runs raw SQL and then drops the whole cache, because the
// entities a hand-written statement touches cannot be known.
type FlushingExecutor struct {
	next  persistence.RawExecutor
	cache *QueryCache
}

// NewFlushingExecutor wraps next
func NewFlushingExecutor(next persistence.RawExecutor, cache *QueryCache) *FlushingExecutor {
	return &FlushingExecutor{next: next, cache: cache}
}

// Exec implements persistence.RawExecutor
func (e *FlushingExecutor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	n, err := e.next.Exec(ctx, sql, args...)
	if err != nil {
		return n, err
	}
	e.cache.FlushAll(ctx)
	return n, nil
}

var _ persistence.RawExecutor = (*FlushingExecutor)(nil)
