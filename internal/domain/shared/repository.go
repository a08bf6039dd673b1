package shared

import "context"

// Page limits shared by every cursor-paginated listing
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ClampPageSize bounds a requested page size to [1, MaxPageSize]
func ClampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// CursorPage is a cursor-paginated result
type CursorPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// TransactionManager runs fn inside a single atomic unit of work.
// Repositories called with the ctx passed to fn participate in the transaction.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
