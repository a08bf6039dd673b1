package persistence

import (
	"context"
	"testing"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingExecutor counts statements passed to the wrapped executor
type recordingExecutor struct {
	inner RawExecutor
	calls int
}

func (e *recordingExecutor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	e.calls++
	return e.inner.Exec(ctx, sql, args...)
}

func TestGormRoleRepository(t *testing.T) {
	db := newTestDB(t)
	raw := &recordingExecutor{inner: NewGormRawExecutor(db)}
	repo := NewGormRoleRepository(db, raw)
	tm := NewTxManager(db)
	ctx := context.Background()

	require.NoError(t, repo.SeedRoles(ctx))
	require.NoError(t, repo.SeedRoles(ctx))

	roles, err := repo.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 4)
	assert.Equal(t, identity.RankSuperAdmin, roles[0].ID)

	_, err = repo.FindRole(ctx, 77)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	perms := []models.PermissionModel{
		{Code: "lead:read"}, {Code: "lead:write"}, {Code: "user:read"},
	}
	require.NoError(t, db.Create(&perms).Error)

	t.Run("role permissions are replaced wholesale", func(t *testing.T) {
		err := tm.WithinTransaction(ctx, func(ctx context.Context) error {
			return repo.ReplaceRolePermissions(ctx, identity.RankAgent, []int64{perms[0].ID, perms[1].ID})
		})
		require.NoError(t, err)

		err = tm.WithinTransaction(ctx, func(ctx context.Context) error {
			return repo.ReplaceRolePermissions(ctx, identity.RankAgent, []int64{perms[2].ID})
		})
		require.NoError(t, err)

		got, err := repo.ListRolePermissions(ctx, identity.RankAgent)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "user:read", got[0].Code)
		assert.Equal(t, 5, raw.calls)
	})

	t.Run("component access matrix is replaced wholesale", func(t *testing.T) {
		require.NoError(t, repo.ReplaceComponentAccess(ctx, []identity.ComponentAccess{
			{Component: "leads", RoleID: identity.RankAgent, Allowed: true},
			{Component: "reports", RoleID: identity.RankAgent, Allowed: false},
			{Component: "reports", RoleID: identity.RankManager, Allowed: true},
		}))
		require.NoError(t, repo.ReplaceComponentAccess(ctx, []identity.ComponentAccess{
			{Component: "reports", RoleID: identity.RankManager, Allowed: true},
		}))

		all, err := repo.ListComponentAccess(ctx)
		require.NoError(t, err)
		assert.Equal(t, []identity.ComponentAccess{
			{Component: "reports", RoleID: identity.RankManager, Allowed: true},
		}, all)

		agent, err := repo.ListComponentAccessForRole(ctx, identity.RankAgent)
		require.NoError(t, err)
		assert.Empty(t, agent)
	})
}
