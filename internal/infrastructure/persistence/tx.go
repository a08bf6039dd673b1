package persistence

import (
	"context"
	"sync"

	"github.com/crm/backend/internal/domain/shared"
	"gorm.io/gorm"
)

type txKey struct{}

// txState is the transaction carried on a context
type txState struct {
	db          *gorm.DB
	mu          sync.Mutex
	afterCommit []func(context.Context)
}

// TxManager runs units of work in a GORM transaction carried on the context.
// Repositories pick the transaction up through conn, so a service can compose
// several repository calls atomically without passing *gorm.DB around.
type TxManager struct {
	db *gorm.DB
}

// NewTxManager creates a TxManager
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTransaction runs fn in a transaction. Nested calls join the outer
// transaction. After-commit hooks run only once the outermost commit succeeds.
func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	state := &txState{}
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state.db = tx
		return fn(context.WithValue(ctx, txKey{}, state))
	})
	if err != nil {
		return err
	}

	state.mu.Lock()
	hooks := state.afterCommit
	state.mu.Unlock()
	for _, hook := range hooks {
		hook(ctx)
	}
	return nil
}

// InTransaction reports whether ctx carries an open transaction
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*txState)
	return ok
}

// AfterCommit schedules fn to run after the transaction on ctx commits.
// Outside a transaction fn runs immediately. Rolled back transactions drop fn.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	state, ok := ctx.Value(txKey{}).(*txState)
	if !ok {
		fn(ctx)
		return
	}
	state.mu.Lock()
	state.afterCommit = append(state.afterCommit, fn)
	state.mu.Unlock()
}

// conn returns the transaction on ctx, or db bound to ctx
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		return state.db
	}
	return db.WithContext(ctx)
}

var _ shared.TransactionManager = (*TxManager)(nil)
