package identity

import (
	"regexp"
	"strings"

	"github.com/crm/backend/internal/domain/shared"
)

// Role is a named rank. Its ID is the rank itself.
type Role struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Permission is a functional permission (resource:action pattern)
type Permission struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ComponentAccess marks whether a role may see a UI component
type ComponentAccess struct {
	Component string `json:"component"`
	RoleID    int    `json:"role_id"`
	Allowed   bool   `json:"allowed"`
}

var (
	permissionCodeRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*:[a-z][a-z0-9_]*$`)
	componentRegex      = regexp.MustCompile(`^[a-z][a-z0-9_.\-]*$`)
)

// ValidatePermissionCode checks the resource:action format
func ValidatePermissionCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.BadRequest("Permission code cannot be empty")
	}
	if len(code) > 100 {
		return shared.BadRequest("Permission code cannot exceed 100 characters")
	}
	if !permissionCodeRegex.MatchString(code) {
		return shared.BadRequest("Permission code must be in format 'resource:action'")
	}
	return nil
}

// ValidateComponentAccess checks a component access entry
func ValidateComponentAccess(ca ComponentAccess) error {
	if !componentRegex.MatchString(ca.Component) || len(ca.Component) > 100 {
		return shared.BadRequest("Invalid component name: " + ca.Component)
	}
	return ValidateRank(ca.RoleID)
}

// DedupePermissionIDs removes duplicate ids preserving first occurrence
func DedupePermissionIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
