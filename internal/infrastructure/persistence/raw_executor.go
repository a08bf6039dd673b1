package persistence

import (
	"context"

	"gorm.io/gorm"
)

// RawExecutor runs hand-written write statements that bypass the repositories
type RawExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// GormRawExecutor executes raw SQL on the connection carried by ctx
type GormRawExecutor struct {
	db *gorm.DB
}

// NewGormRawExecutor creates a new GormRawExecutor
func NewGormRawExecutor(db *gorm.DB) *GormRawExecutor {
	return &GormRawExecutor{db: db}
}

// Exec runs sql and returns the number of affected rows
func (e *GormRawExecutor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	result := conn(ctx, e.db).Exec(sql, args...)
	return result.RowsAffected, result.Error
}

var _ RawExecutor = (*GormRawExecutor)(nil)
