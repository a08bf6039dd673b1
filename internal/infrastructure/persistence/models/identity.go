package models

import (
	"time"

	"github.com/crm/backend/internal/domain/identity"
)

// UserModel is the persistence model for the User domain entity.
// Email is stored normalized, so the unique index is case-insensitive.
type UserModel struct {
	BaseModel
	Name         string              `gorm:"type:varchar(200);not null"`
	Email        string              `gorm:"type:varchar(200);not null;uniqueIndex:idx_users_email"`
	PasswordHash string              `gorm:"type:varchar(255);not null"`
	RoleRank     int                 `gorm:"not null;index"`
	ManagerID    *int64              `gorm:"index"`
	DepartmentID *int64              `gorm:"index"`
	Status       identity.UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseEntity:   m.BaseModel.ToDomain(),
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		RoleRank:     m.RoleRank,
		ManagerID:    m.ManagerID,
		DepartmentID: m.DepartmentID,
		Status:       m.Status,
	}
}

// UserModelFromDomain creates a new persistence model from a domain User entity
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		RoleRank:     u.RoleRank,
		ManagerID:    u.ManagerID,
		DepartmentID: u.DepartmentID,
		Status:       u.Status,
	}
	m.FromDomainBaseEntity(u.BaseEntity)
	return m
}

// RoleModel is a named rank; its primary key is the rank itself
type RoleModel struct {
	ID   int    `gorm:"primaryKey;autoIncrement:false"`
	Name string `gorm:"type:varchar(100);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (RoleModel) TableName() string {
	return "roles"
}

// ToDomain converts to the domain Role
func (m *RoleModel) ToDomain() identity.Role {
	return identity.Role{ID: m.ID, Name: m.Name}
}

// PermissionModel is the persistence model for permissions
type PermissionModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Code        string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Description string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PermissionModel) TableName() string {
	return "permissions"
}

// ToDomain converts to the domain Permission
func (m *PermissionModel) ToDomain() identity.Permission {
	return identity.Permission{ID: m.ID, Code: m.Code, Description: m.Description}
}

// RolePermissionModel links roles to permissions
type RolePermissionModel struct {
	RoleID       int   `gorm:"primaryKey;autoIncrement:false"`
	PermissionID int64 `gorm:"primaryKey;autoIncrement:false"`
}

// TableName returns the table name for GORM
func (RolePermissionModel) TableName() string {
	return "role_permissions"
}

// ComponentAccessModel records whether a role may see a UI component
type ComponentAccessModel struct {
	Component string `gorm:"type:varchar(100);primaryKey"`
	RoleID    int    `gorm:"primaryKey;autoIncrement:false"`
	Allowed   bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ComponentAccessModel) TableName() string {
	return "component_access"
}

// ToDomain converts to the domain ComponentAccess
func (m *ComponentAccessModel) ToDomain() identity.ComponentAccess {
	return identity.ComponentAccess{Component: m.Component, RoleID: m.RoleID, Allowed: m.Allowed}
}

// RefreshTokenModel tracks an issued refresh token by jti
type RefreshTokenModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	UserID    int64     `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	RevokedAt *time.Time
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}

// ToDomain converts to the domain RefreshToken
func (m *RefreshTokenModel) ToDomain() *identity.RefreshToken {
	return &identity.RefreshToken{
		ID:        m.ID,
		UserID:    m.UserID,
		ExpiresAt: m.ExpiresAt,
		RevokedAt: m.RevokedAt,
		CreatedAt: m.CreatedAt,
	}
}
