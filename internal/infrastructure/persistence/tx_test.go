package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxManager_WithinTransaction(t *testing.T) {
	db := newTestDB(t)
	leads := NewGormLeadRepository(db)
	tm := NewTxManager(db)
	ctx := context.Background()

	t.Run("commits and runs hooks after commit", func(t *testing.T) {
		var hookRan, inTxDuringHook bool
		err := tm.WithinTransaction(ctx, func(ctx context.Context) error {
			assert.True(t, InTransaction(ctx))
			lead, err := crm.NewLead(1, crm.LeadInput{FirstName: "Tx", LastName: "Ok", Email: "ok@example.com"})
			require.NoError(t, err)
			AfterCommit(ctx, func(hookCtx context.Context) {
				hookRan = true
				inTxDuringHook = InTransaction(hookCtx)
			})
			assert.False(t, hookRan)
			return leads.Create(ctx, lead)
		})

		require.NoError(t, err)
		assert.True(t, hookRan)
		assert.False(t, inTxDuringHook)

		count, err := leads.Count(ctx, shared.MatchAll{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rolls back and drops hooks on error", func(t *testing.T) {
		hookRan := false
		boom := errors.New("boom")
		err := tm.WithinTransaction(ctx, func(ctx context.Context) error {
			lead, err := crm.NewLead(1, crm.LeadInput{FirstName: "Tx", LastName: "Fail", Email: "fail@example.com"})
			require.NoError(t, err)
			require.NoError(t, leads.Create(ctx, lead))
			AfterCommit(ctx, func(context.Context) { hookRan = true })
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.False(t, hookRan)

		count, err := leads.Count(ctx, shared.MatchAll{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("nested calls join the outer transaction", func(t *testing.T) {
		var order []string
		err := tm.WithinTransaction(ctx, func(outer context.Context) error {
			AfterCommit(outer, func(context.Context) { order = append(order, "outer") })
			return tm.WithinTransaction(outer, func(inner context.Context) error {
				AfterCommit(inner, func(context.Context) { order = append(order, "inner") })
				assert.Empty(t, order)
				return nil
			})
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"outer", "inner"}, order)
	})

	t.Run("after commit outside a transaction runs immediately", func(t *testing.T) {
		ran := false
		AfterCommit(ctx, func(context.Context) { ran = true })
		assert.True(t, ran)
		assert.False(t, InTransaction(ctx))
	})
}
