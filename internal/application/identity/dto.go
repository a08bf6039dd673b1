package identity

import (
	"time"

	"github.com/crm/backend/internal/domain/identity"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
	User                  UserDTO
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenResult contains the result of a token refresh
type RefreshTokenResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

// LogoutInput contains the input for user logout
type LogoutInput struct {
	RefreshToken string
}

// CurrentUserResult is the caller's profile with role grants
type CurrentUserResult struct {
	User        UserDTO                    `json:"user"`
	Permissions []string                   `json:"permissions"`
	Components  []identity.ComponentAccess `json:"components"`
}

// UserDTO is the API view of a user. It never carries the password hash.
type UserDTO struct {
	ID           int64               `json:"id"`
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	RoleRank     int                 `json:"role_rank"`
	ManagerID    *int64              `json:"manager_id"`
	DepartmentID *int64              `json:"department_id,omitempty"`
	Status       identity.UserStatus `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// ToUserDTO converts a domain user
func ToUserDTO(u *identity.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		RoleRank:     u.RoleRank,
		ManagerID:    u.ManagerID,
		DepartmentID: u.DepartmentID,
		Status:       u.Status,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// ListUsersInput selects one page of users
type ListUsersInput struct {
	Query  string
	Cursor string
	Limit  int
}

// CreateUserInput contains input for creating a user.
// RoleRank and ManagerID are pointers so a missing value can be told apart.
type CreateUserInput struct {
	Name         string
	Email        string
	Password     string
	RoleRank     *int
	ManagerID    *int64
	DepartmentID *int64
}

// UpdateUserInput replaces every editable field of a user.
// An empty Password keeps the current one; a nil ManagerID makes the user a root.
type UpdateUserInput struct {
	Name         string
	Email        string
	Password     string
	RoleRank     int
	ManagerID    *int64
	DepartmentID *int64
	Status       identity.UserStatus
}

// PatchUserInput updates only the fields that are set.
// ClearManager detaches the user from its manager.
type PatchUserInput struct {
	Name         *string
	Email        *string
	Password     *string
	RoleRank     *int
	ManagerID    *int64
	ClearManager bool
	DepartmentID *int64
	Status       *identity.UserStatus
}

func (in UpdateUserInput) toPatch() PatchUserInput {
	p := PatchUserInput{
		Name:         &in.Name,
		Email:        &in.Email,
		RoleRank:     &in.RoleRank,
		ManagerID:    in.ManagerID,
		ClearManager: in.ManagerID == nil,
		DepartmentID: in.DepartmentID,
	}
	if in.Password != "" {
		p.Password = &in.Password
	}
	if in.Status != "" {
		p.Status = &in.Status
	}
	return p
}

// withoutNoops drops rank and manager changes that keep the current value,
// so that replacing a record with itself passes the update guard.
func (p PatchUserInput) withoutNoops(u *identity.User) PatchUserInput {
	if p.RoleRank != nil && *p.RoleRank == u.RoleRank {
		p.RoleRank = nil
	}
	if p.ManagerID != nil && u.ManagerID != nil && *p.ManagerID == *u.ManagerID {
		p.ManagerID = nil
	}
	if p.ManagerID != nil {
		p.ClearManager = false
	}
	if p.ClearManager && u.ManagerID == nil {
		p.ClearManager = false
	}
	return p
}

// managerChanged reports whether the patch touches the manager link
func (p PatchUserInput) managerChanged() bool {
	return p.ManagerID != nil || p.ClearManager
}

// RoleDTO is a role with its permission grants
type RoleDTO struct {
	ID          int                   `json:"id"`
	Name        string                `json:"name"`
	Permissions []identity.Permission `json:"permissions"`
}
