// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel shared by every table with an int64 id
//   - identity.go: users, roles, permissions, component access, refresh tokens
//   - crm.go: leads, clients, activities
package models

// All returns every model, in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&RoleModel{},
		&PermissionModel{},
		&RolePermissionModel{},
		&ComponentAccessModel{},
		&UserModel{},
		&RefreshTokenModel{},
		&LeadModel{},
		&ClientModel{},
		&ActivityModel{},
	}
}
