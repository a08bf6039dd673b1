package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RoleService administers role permissions and the component access matrix.
// Every operation is reserved to administrative principals.
type RoleService struct {
	roleRepo identity.RoleRepository
	tx       shared.TransactionManager
	logger   *zap.Logger
}

// NewRoleService creates a new role service
func NewRoleService(roleRepo identity.RoleRepository, tx shared.TransactionManager, logger *zap.Logger) *RoleService {
	return &RoleService{roleRepo: roleRepo, tx: tx, logger: logger}
}

// ListRoles returns every role
func (s *RoleService) ListRoles(ctx context.Context, p identity.Principal) ([]identity.Role, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return s.roleRepo.ListRoles(ctx)
}

// ListPermissions returns the permission catalogue
func (s *RoleService) ListPermissions(ctx context.Context, p identity.Principal) ([]identity.Permission, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return s.roleRepo.ListPermissions(ctx)
}

// GetRolePermissions returns a role with its grants
func (s *RoleService) GetRolePermissions(ctx context.Context, p identity.Principal, roleID int) (*RoleDTO, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	role, err := s.findRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	perms, err := s.roleRepo.ListRolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return &RoleDTO{ID: role.ID, Name: role.Name, Permissions: perms}, nil
}

// SetRolePermissions replaces every grant of a role
func (s *RoleService) SetRolePermissions(ctx context.Context, p identity.Principal, roleID int, permissionIDs []int64) (*RoleDTO, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if _, err := s.findRole(ctx, roleID); err != nil {
		return nil, err
	}

	ids := identity.DedupePermissionIDs(permissionIDs)
	catalogue, err := s.roleRepo.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]struct{}, len(catalogue))
	for _, perm := range catalogue {
		known[perm.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return nil, shared.BadRequest(fmt.Sprintf("Unknown permission id %d", id))
		}
	}

	if err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.roleRepo.ReplaceRolePermissions(ctx, roleID, ids)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("Role permissions replaced",
		zap.Int("role_id", roleID),
		zap.Int("permissions", len(ids)),
		zap.Int64("actor_id", p.UserID))

	return s.GetRolePermissions(ctx, p, roleID)
}

// ListComponentAccess returns the component access matrix
func (s *RoleService) ListComponentAccess(ctx context.Context, p identity.Principal) ([]identity.ComponentAccess, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return s.roleRepo.ListComponentAccess(ctx)
}

// SetComponentAccess replaces the whole component access matrix
func (s *RoleService) SetComponentAccess(ctx context.Context, p identity.Principal, entries []identity.ComponentAccess) ([]identity.ComponentAccess, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	seen := make(map[identity.ComponentAccess]struct{}, len(entries))
	for _, e := range entries {
		if err := identity.ValidateComponentAccess(e); err != nil {
			return nil, err
		}
		key := identity.ComponentAccess{Component: e.Component, RoleID: e.RoleID}
		if _, dup := seen[key]; dup {
			return nil, shared.BadRequest(fmt.Sprintf("Duplicate entry for component %s and role %d", e.Component, e.RoleID))
		}
		seen[key] = struct{}{}
	}

	if err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.roleRepo.ReplaceComponentAccess(ctx, entries)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("Component access replaced",
		zap.Int("entries", len(entries)),
		zap.Int64("actor_id", p.UserID))

	return s.roleRepo.ListComponentAccess(ctx)
}

func (s *RoleService) findRole(ctx context.Context, id int) (*identity.Role, error) {
	role, err := s.roleRepo.FindRole(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NotFound("Role not found")
		}
		return nil, err
	}
	return role, nil
}

func requireAdmin(p identity.Principal) error {
	if !p.IsAdmin() {
		return shared.Forbidden("Administrator role required")
	}
	return nil
}
