package identity

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestNewUser(t *testing.T) {
	t.Run("creates active user with normalized email", func(t *testing.T) {
		user, err := NewUser("  Alice  ", "  Alice@Example.COM ", RankAgent, int64Ptr(3))

		require.NoError(t, err)
		assert.Equal(t, "Alice", user.Name)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, RankAgent, user.RoleRank)
		assert.Equal(t, int64(3), *user.ManagerID)
		assert.Equal(t, UserStatusActive, user.Status)
		assert.True(t, user.CanLogin())
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("fails with empty name", func(t *testing.T) {
		_, err := NewUser("  ", "a@example.com", RankAgent, nil)

		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrBadRequest))
		assert.Contains(t, err.Error(), "Name cannot be empty")
	})

	t.Run("fails with invalid email", func(t *testing.T) {
		_, err := NewUser("Alice", "not-an-email", RankAgent, nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid email format")
	})

	t.Run("fails with out of range rank", func(t *testing.T) {
		_, err := NewUser("Alice", "a@example.com", 0, nil)
		require.Error(t, err)

		_, err = NewUser("Alice", "a@example.com", MaxRank+1, nil)
		require.Error(t, err)
		assert.Equal(t, shared.CodeBadRequest, shared.CodeOf(err))
	})
}

func TestUser_SetManager(t *testing.T) {
	user, err := NewUser("Bob", "bob@example.com", RankManager, nil)
	require.NoError(t, err)
	user.ID = 7

	t.Run("rejects self as manager", func(t *testing.T) {
		err := user.SetManager(int64Ptr(7))
		assert.ErrorIs(t, err, shared.ErrBadRequest)
	})

	t.Run("clears manager", func(t *testing.T) {
		require.NoError(t, user.SetManager(int64Ptr(2)))
		require.NoError(t, user.SetManager(nil))
		assert.Nil(t, user.ManagerID)
	})
}

func TestUser_Snapshot(t *testing.T) {
	user, err := NewUser("Carol", "carol@example.com", RankAgent, nil)
	require.NoError(t, err)
	user.SetPasswordHash("$argon2id$secret")

	snap := user.Snapshot()

	assert.Equal(t, "carol@example.com", snap.Email)
	assert.NotContains(t, toJSON(t, snap), "argon2id")
}

func TestUser_Deactivate(t *testing.T) {
	user, err := NewUser("Dan", "dan@example.com", RankAgent, nil)
	require.NoError(t, err)

	user.Deactivate()
	assert.False(t, user.CanLogin())

	user.Activate()
	assert.True(t, user.CanLogin())
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"valid", "Password123", ""},
		{"empty", "", "cannot be empty"},
		{"too short", "Pass1", "at least 8 characters"},
		{"no digit", "Passwordxx", "at least one letter and one digit"},
		{"no letter", "12345678", "at least one letter and one digit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPrincipal(t *testing.T) {
	assert.True(t, Principal{UserID: 1, RoleRank: RankSuperAdmin}.IsAdmin())
	assert.True(t, Principal{UserID: 1, RoleRank: RankAdmin}.IsAdmin())
	assert.False(t, Principal{UserID: 1, RoleRank: RankManager}.IsAdmin())

	manager := Principal{UserID: 2, RoleRank: RankManager}
	assert.True(t, manager.Outranks(RankAgent))
	assert.False(t, manager.Outranks(RankManager))
	assert.False(t, manager.Outranks(RankAdmin))
}

func TestValidatePermissionCode(t *testing.T) {
	assert.NoError(t, ValidatePermissionCode("lead:create"))
	assert.Error(t, ValidatePermissionCode("lead"))
	assert.Error(t, ValidatePermissionCode("Lead:Create"))
	assert.Error(t, ValidatePermissionCode(""))
}

func TestDedupePermissionIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, DedupePermissionIDs([]int64{3, 1, 3, 2, 1}))
	assert.Empty(t, DedupePermissionIDs(nil))
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
