package identity

import (
	"context"

	"github.com/crm/backend/internal/domain/shared"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create inserts a user and assigns its ID
	Create(ctx context.Context, user *User) error

	// Update saves every mutable column of an existing user
	Update(ctx context.Context, user *User) error

	// Delete hard-deletes a user by ID
	Delete(ctx context.Context, id int64) error

	// FindByID finds a user by ID without scoping
	FindByID(ctx context.Context, id int64) (*User, error)

	// FindByEmail finds a user by case-insensitive email
	FindByEmail(ctx context.Context, email string) (*User, error)

	// ExistsByEmail checks whether another user (not excludeID) owns email
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)

	// List returns users in ascending id order after filter.AfterID
	List(ctx context.Context, filter UserFilter) ([]*User, error)

	// ListSubordinateIDs returns the ids of users directly managed by any of managerIDs
	ListSubordinateIDs(ctx context.Context, managerIDs []int64) ([]int64, error)

	// ReassignSubordinates moves every direct report of fromManager to toManager
	ReassignSubordinates(ctx context.Context, fromManager int64, toManager *int64) (int64, error)
}

// UserFilter contains filter options for querying users
type UserFilter struct {
	// Search keyword for name or email
	Query string `json:"q,omitempty"`

	// Cursor: only ids strictly greater than AfterID
	AfterID int64 `json:"after_id,omitempty"`

	Limit int `json:"limit"`

	// Scope restricts the visible rows
	Scope shared.Predicate `json:"scope"`
}

// RoleRepository persists roles, permissions and component access.
// Link tables are replaced wholesale on every administrative update.
type RoleRepository interface {
	ListRoles(ctx context.Context) ([]Role, error)
	FindRole(ctx context.Context, id int) (*Role, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	ListRolePermissions(ctx context.Context, roleID int) ([]Permission, error)
	ReplaceRolePermissions(ctx context.Context, roleID int, permissionIDs []int64) error
	ListComponentAccess(ctx context.Context) ([]ComponentAccess, error)
	ListComponentAccessForRole(ctx context.Context, roleID int) ([]ComponentAccess, error)
	ReplaceComponentAccess(ctx context.Context, entries []ComponentAccess) error
}
