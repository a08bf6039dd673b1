package identity

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/crm/backend/internal/domain/shared"
)

// UserStatus represents the status of a user account
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"   // Normal active user
	UserStatusInactive UserStatus = "inactive" // Cannot log in
)

// User is a CRM account. Users form a forest through ManagerID.
type User struct {
	shared.BaseEntity
	Name         string
	Email        string
	PasswordHash string
	RoleRank     int
	ManagerID    *int64
	DepartmentID *int64
	Status       UserStatus
}

// NewUser creates a new active user. The password hash is produced by the
// caller's hasher; the domain only stores it.
func NewUser(name, email string, roleRank int, managerID *int64) (*User, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateRank(roleRank); err != nil {
		return nil, err
	}

	return &User{
		BaseEntity: shared.NewBaseEntity(),
		Name:       strings.TrimSpace(name),
		Email:      NormalizeEmail(email),
		RoleRank:   roleRank,
		ManagerID:  managerID,
		Status:     UserStatusActive,
	}, nil
}

// SetName updates the display name
func (u *User) SetName(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	u.Name = strings.TrimSpace(name)
	u.Touch()
	return nil
}

// SetEmail updates the login email
func (u *User) SetEmail(email string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	u.Email = NormalizeEmail(email)
	u.Touch()
	return nil
}

// SetRoleRank changes the user's role
func (u *User) SetRoleRank(rank int) error {
	if err := ValidateRank(rank); err != nil {
		return err
	}
	u.RoleRank = rank
	u.Touch()
	return nil
}

// SetManager re-parents the user. A user cannot manage themselves; deeper
// cycles are checked by the caller against the resolved hierarchy.
func (u *User) SetManager(managerID *int64) error {
	if managerID != nil && *managerID == u.ID {
		return shared.BadRequest("A user cannot be their own manager")
	}
	u.ManagerID = managerID
	u.Touch()
	return nil
}

// SetDepartment sets the optional department
func (u *User) SetDepartment(departmentID *int64) {
	u.DepartmentID = departmentID
	u.Touch()
}

// SetPasswordHash replaces the stored hash
func (u *User) SetPasswordHash(hash string) {
	u.PasswordHash = hash
	u.Touch()
}

// Activate allows the user to log in again
func (u *User) Activate() {
	u.Status = UserStatusActive
	u.Touch()
}

// Deactivate blocks login without deleting the user
func (u *User) Deactivate() {
	u.Status = UserStatusInactive
	u.Touch()
}

// CanLogin reports whether the account may authenticate
func (u *User) CanLogin() bool {
	return u.Status == UserStatusActive
}

// Principal returns the authorization identity of this user
func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, RoleRank: u.RoleRank}
}

// UserSnapshot is the audit-safe view of a user; it never carries the hash.
type UserSnapshot struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	RoleRank     int        `json:"role_rank"`
	ManagerID    *int64     `json:"manager_id"`
	DepartmentID *int64     `json:"department_id"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Snapshot returns the audit-safe view of the user
func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		RoleRank:     u.RoleRank,
		ManagerID:    u.ManagerID,
		DepartmentID: u.DepartmentID,
		Status:       u.Status,
		CreatedAt:    u.CreatedAt,
	}
}

// NormalizeEmail lowercases and trims an email; uniqueness is case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword checks password strength before hashing
func ValidatePassword(password string) error {
	if password == "" {
		return shared.BadRequest("Password cannot be empty")
	}
	if len(password) < 8 {
		return shared.BadRequest("Password must be at least 8 characters")
	}
	if len(password) > 128 {
		return shared.BadRequest("Password cannot exceed 128 characters")
	}

	var hasLetter, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsLetter(c):
			hasLetter = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return shared.BadRequest("Password must contain at least one letter and one digit")
	}
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.BadRequest("Name cannot be empty")
	}
	if len(name) > 200 {
		return shared.BadRequest("Name cannot exceed 200 characters")
	}
	return nil
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return shared.BadRequest("Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.BadRequest("Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.BadRequest("Invalid email format")
	}
	return nil
}

// ValidEmail reports whether s looks like an email address
func ValidEmail(s string) bool {
	return validateEmail(s) == nil
}
