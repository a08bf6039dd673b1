package handler

import (
	"encoding/json"
	"strconv"

	"github.com/crm/backend/internal/application/identity"
	domainIdentity "github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
)

// =====================
// User Request DTOs
// =====================

// CreateUserRequest represents the request body for creating a user.
// Rank defaults to agent when an administrator omits it.
type CreateUserRequest struct {
	Name         string `json:"name" binding:"required,max=200"`
	Email        string `json:"email" binding:"required,email,max=255"`
	Password     string `json:"password" binding:"required,max=128"`
	RoleRank     *int   `json:"role_rank" binding:"omitempty,min=1,max=100"`
	ManagerID    *int64 `json:"manager_id" binding:"omitempty,min=1"`
	DepartmentID *int64 `json:"department_id" binding:"omitempty,min=1"`
}

func (r CreateUserRequest) toInput() identity.CreateUserInput {
	return identity.CreateUserInput{
		Name:         r.Name,
		Email:        r.Email,
		Password:     r.Password,
		RoleRank:     r.RoleRank,
		ManagerID:    r.ManagerID,
		DepartmentID: r.DepartmentID,
	}
}

// UpdateUserRequest replaces a user. A null manager_id makes the user a root
// and an empty password keeps the current one.
type UpdateUserRequest struct {
	Name         string                    `json:"name" binding:"required,max=200"`
	Email        string                    `json:"email" binding:"required,email,max=255"`
	Password     string                    `json:"password" binding:"omitempty,max=128"`
	RoleRank     int                       `json:"role_rank" binding:"required,min=1,max=100"`
	ManagerID    *int64                    `json:"manager_id" binding:"omitempty,min=1"`
	DepartmentID *int64                    `json:"department_id" binding:"omitempty,min=1"`
	Status       domainIdentity.UserStatus `json:"status" binding:"omitempty,oneof=active inactive"`
}

func (r UpdateUserRequest) toInput() identity.UpdateUserInput {
	return identity.UpdateUserInput{
		Name:         r.Name,
		Email:        r.Email,
		Password:     r.Password,
		RoleRank:     r.RoleRank,
		ManagerID:    r.ManagerID,
		DepartmentID: r.DepartmentID,
		Status:       r.Status,
	}
}

// PatchUserRequest updates only the fields present in the body.
// manager_id is kept raw so that an explicit null can detach the manager.
type PatchUserRequest struct {
	Name         *string                    `json:"name" binding:"omitempty,max=200"`
	Email        *string                    `json:"email" binding:"omitempty,email,max=255"`
	Password     *string                    `json:"password" binding:"omitempty,max=128"`
	RoleRank     *int                       `json:"role_rank" binding:"omitempty,min=1,max=100"`
	ManagerID    json.RawMessage            `json:"manager_id" swaggertype:"integer"`
	DepartmentID *int64                     `json:"department_id" binding:"omitempty,min=1"`
	Status       *domainIdentity.UserStatus `json:"status" binding:"omitempty,oneof=active inactive"`
}

func (r PatchUserRequest) toInput() (identity.PatchUserInput, error) {
	in := identity.PatchUserInput{
		Name:         r.Name,
		Email:        r.Email,
		Password:     r.Password,
		RoleRank:     r.RoleRank,
		DepartmentID: r.DepartmentID,
		Status:       r.Status,
	}
	switch raw := string(r.ManagerID); raw {
	case "":
	case "null":
		in.ClearManager = true
	default:
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			return in, shared.BadRequest("Invalid manager_id")
		}
		in.ManagerID = &id
	}
	return in, nil
}

// =====================
// User Response DTOs
// =====================

// SubordinatesResponse lists the resolved hierarchy of a user
type SubordinatesResponse struct {
	UserID  int64   `json:"user_id"`
	UserIDs []int64 `json:"user_ids"`
}
