package persistence

import (
	"context"
	"fmt"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRoleRepository implements RoleRepository using GORM.
// Link tables are rewritten through a RawExecutor so the write can be
// observed by whatever wraps it.
type GormRoleRepository struct {
	db  *gorm.DB
	raw RawExecutor
}

// NewGormRoleRepository creates a new GormRoleRepository
func NewGormRoleRepository(db *gorm.DB, raw RawExecutor) *GormRoleRepository {
	return &GormRoleRepository{db: db, raw: raw}
}

// ListRoles returns every role, most privileged first
func (r *GormRoleRepository) ListRoles(ctx context.Context) ([]identity.Role, error) {
	var rows []models.RoleModel
	if err := conn(ctx, r.db).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	roles := make([]identity.Role, len(rows))
	for i := range rows {
		roles[i] = rows[i].ToDomain()
	}
	return roles, nil
}

// FindRole finds a role by ID
func (r *GormRoleRepository) FindRole(ctx context.Context, id int) (*identity.Role, error) {
	var row models.RoleModel
	if err := conn(ctx, r.db).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	role := row.ToDomain()
	return &role, nil
}

// ListPermissions returns every permission ordered by code
func (r *GormRoleRepository) ListPermissions(ctx context.Context) ([]identity.Permission, error) {
	var rows []models.PermissionModel
	if err := conn(ctx, r.db).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toPermissions(rows), nil
}

// ListRolePermissions returns the permissions granted to roleID
func (r *GormRoleRepository) ListRolePermissions(ctx context.Context, roleID int) ([]identity.Permission, error) {
	var rows []models.PermissionModel
	if err := conn(ctx, r.db).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toPermissions(rows), nil
}

// ReplaceRolePermissions deletes every grant of roleID and inserts permissionIDs.
// Callers run it inside a transaction.
func (r *GormRoleRepository) ReplaceRolePermissions(ctx context.Context, roleID int, permissionIDs []int64) error {
	if _, err := r.raw.Exec(ctx, "DELETE FROM role_permissions WHERE role_id = ?", roleID); err != nil {
		return fmt.Errorf("clear role permissions: %w", err)
	}
	for _, pid := range permissionIDs {
		if _, err := r.raw.Exec(ctx,
			"INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?)", roleID, pid,
		); err != nil {
			return fmt.Errorf("grant permission %d: %w", pid, err)
		}
	}
	return nil
}

// ListComponentAccess returns the whole component access matrix
func (r *GormRoleRepository) ListComponentAccess(ctx context.Context) ([]identity.ComponentAccess, error) {
	var rows []models.ComponentAccessModel
	if err := conn(ctx, r.db).
		Order("component ASC").
		Order("role_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toComponentAccess(rows), nil
}

// ListComponentAccessForRole returns the matrix row of one role
func (r *GormRoleRepository) ListComponentAccessForRole(ctx context.Context, roleID int) ([]identity.ComponentAccess, error) {
	var rows []models.ComponentAccessModel
	if err := conn(ctx, r.db).
		Where("role_id = ?", roleID).
		Order("component ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toComponentAccess(rows), nil
}

// ReplaceComponentAccess rewrites the whole matrix.
// Callers run it inside a transaction.
func (r *GormRoleRepository) ReplaceComponentAccess(ctx context.Context, entries []identity.ComponentAccess) error {
	if _, err := r.raw.Exec(ctx, "DELETE FROM component_access"); err != nil {
		return fmt.Errorf("clear component access: %w", err)
	}
	for _, e := range entries {
		if _, err := r.raw.Exec(ctx,
			"INSERT INTO component_access (component, role_id, allowed) VALUES (?, ?, ?)",
			e.Component, e.RoleID, e.Allowed,
		); err != nil {
			return fmt.Errorf("insert component access %s/%d: %w", e.Component, e.RoleID, err)
		}
	}
	return nil
}

// SeedRoles inserts the built-in roles when the table is empty
func (r *GormRoleRepository) SeedRoles(ctx context.Context) error {
	var count int64
	if err := conn(ctx, r.db).Model(&models.RoleModel{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	roles := []models.RoleModel{
		{ID: identity.RankSuperAdmin, Name: "super_admin"},
		{ID: identity.RankAdmin, Name: "admin"},
		{ID: identity.RankManager, Name: "manager"},
		{ID: identity.RankAgent, Name: "agent"},
	}
	return conn(ctx, r.db).Create(&roles).Error
}

func toPermissions(rows []models.PermissionModel) []identity.Permission {
	out := make([]identity.Permission, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

func toComponentAccess(rows []models.ComponentAccessModel) []identity.ComponentAccess {
	out := make([]identity.ComponentAccess, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// Ensure GormRoleRepository implements RoleRepository
var _ identity.RoleRepository = (*GormRoleRepository)(nil)
