package handler

import (
	"github.com/crm/backend/internal/application/identity"
	domainIdentity "github.com/crm/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
)

// SetRolePermissionsRequest replaces the permission grants of a role
type SetRolePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" binding:"omitempty,dive,min=1"`
}

// SetComponentAccessRequest replaces the whole component access table
type SetComponentAccessRequest struct {
	Entries []domainIdentity.ComponentAccess `json:"entries" binding:"omitempty,dive"`
}

// RoleHandler handles role administration HTTP requests.
// Routes are mounted behind RequireAdmin; the service checks rank again.
type RoleHandler struct {
	BaseHandler
	roleService *identity.RoleService
}

// NewRoleHandler creates a new role handler
func NewRoleHandler(roleService *identity.RoleService) *RoleHandler {
	return &RoleHandler{
		roleService: roleService,
	}
}

// List godoc
// @ID           listRoles
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Success      200 {object} dto.Response{data=[]domainIdentity.Role}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /roles [get]
func (h *RoleHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	roles, err := h.roleService.ListRoles(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, roles)
}

// ListPermissions godoc
// @ID           listPermissions
// @Summary      List every known permission
// @Tags         roles
// @Produce      json
// @Success      200 {object} dto.Response{data=[]domainIdentity.Permission}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	permissions, err := h.roleService.ListPermissions(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, permissions)
}

// GetPermissions godoc
// @ID           getRolePermissions
// @Summary      Get the permissions granted to a role
// @Tags         roles
// @Produce      json
// @Param        id path int true "Role ID"
// @Success      200 {object} dto.Response{data=identity.RoleDTO}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /roles/{id}/permissions [get]
func (h *RoleHandler) GetPermissions(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	role, err := h.roleService.GetRolePermissions(c.Request.Context(), p, int(id))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, role)
}

// SetPermissions godoc
// @ID           setRolePermissions
// @Summary      Replace the permissions granted to a role
// @Description  Flushes the query cache
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        id path int true "Role ID"
// @Param        request body SetRolePermissionsRequest true "Permission IDs"
// @Success      200 {object} dto.Response{data=identity.RoleDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /roles/{id}/permissions [put]
func (h *RoleHandler) SetPermissions(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req SetRolePermissionsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	role, err := h.roleService.SetRolePermissions(c.Request.Context(), p, int(id), req.PermissionIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, role)
}

// ListComponentAccess godoc
// @ID           listComponentAccess
// @Summary      List component access entries
// @Tags         roles
// @Produce      json
// @Success      200 {object} dto.Response{data=[]domainIdentity.ComponentAccess}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /components/access [get]
func (h *RoleHandler) ListComponentAccess(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	entries, err := h.roleService.ListComponentAccess(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}

// SetComponentAccess godoc
// @ID           setComponentAccess
// @Summary      Replace the component access table
// @Description  Flushes the query cache
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        request body SetComponentAccessRequest true "Entries"
// @Success      200 {object} dto.Response{data=[]domainIdentity.ComponentAccess}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /components/access [put]
func (h *RoleHandler) SetComponentAccess(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req SetComponentAccessRequest
	if !h.bindJSON(c, &req) {
		return
	}

	entries, err := h.roleService.SetComponentAccess(c.Request.Context(), p, req.Entries)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}
