package handler

import (
	"github.com/crm/backend/internal/application/identity"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// UserHandler handles user management HTTP requests
type UserHandler struct {
	BaseHandler
	userService *identity.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *identity.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// List godoc
// @ID           listUsers
// @Summary      List users
// @Description  Page through the users in the caller's hierarchy, ordered by ID
// @Tags         users
// @Produce      json
// @Param        q query string false "Search name or email"
// @Param        cursor query string false "Cursor from the previous page"
// @Param        limit query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]identity.UserDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users [get]
func (h *UserHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var query dto.CursorRequest
	if !h.bindQuery(c, &query) {
		return
	}

	page, err := h.userService.List(c.Request.Context(), p, identity.ListUsersInput{
		Query:  query.Query,
		Cursor: query.Cursor,
		Limit:  query.Limit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithCursor(c, page.Items, len(page.Items), page.NextCursor)
}

// Create godoc
// @ID           createUser
// @Summary      Create a new user
// @Description  Create a user ranked below the caller
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body CreateUserRequest true "User creation request"
// @Success      201 {object} dto.Response{data=identity.UserDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req CreateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Create(c.Request.Context(), p, req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, user)
}

// GetByID godoc
// @ID           getUserById
// @Summary      Get a user by ID
// @Tags         users
// @Produce      json
// @Param        id path int true "User ID"
// @Success      200 {object} dto.Response{data=identity.UserDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users/{id} [get]
func (h *UserHandler) GetByID(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, user)
}

// Update godoc
// @ID           updateUser
// @Summary      Replace a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path int true "User ID"
// @Param        request body UpdateUserRequest true "User replacement"
// @Success      200 {object} dto.Response{data=identity.UserDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Update(c.Request.Context(), p, id, req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, user)
}

// Patch godoc
// @ID           patchUser
// @Summary      Partially update a user
// @Description  Send manager_id as null to detach the user from its manager
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path int true "User ID"
// @Param        request body PatchUserRequest true "Fields to change"
// @Success      200 {object} dto.Response{data=identity.UserDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users/{id} [patch]
func (h *UserHandler) Patch(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req PatchUserRequest
	if !h.bindJSON(c, &req) {
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	user, err := h.userService.Patch(c.Request.Context(), p, id, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, user)
}

// Delete godoc
// @ID           deleteUser
// @Summary      Delete a user
// @Description  Leads assigned to the user move to its manager
// @Tags         users
// @Param        id path int true "User ID"
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.userService.Delete(c.Request.Context(), p, id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Subordinates godoc
// @ID           getUserSubordinates
// @Summary      Resolve a user's hierarchy
// @Description  The user plus everyone reporting to them, directly or not
// @Tags         users
// @Produce      json
// @Param        id path int true "User ID"
// @Success      200 {object} dto.Response{data=SubordinatesResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users/{id}/subordinates [get]
func (h *UserHandler) Subordinates(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	ids, err := h.userService.Subordinates(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, SubordinatesResponse{UserID: id, UserIDs: ids})
}

// Activity godoc
// @ID           getUserActivity
// @Summary      Audit trail of a user
// @Tags         users
// @Produce      json
// @Param        id path int true "User ID"
// @Param        limit query int false "Maximum entries" default(50) maximum(100)
// @Success      200 {object} dto.Response{data=[]crm.Activity}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users/{id}/activity [get]
func (h *UserHandler) Activity(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	limit, ok := h.activityLimit(c)
	if !ok {
		return
	}

	entries, err := h.userService.Activity(c.Request.Context(), p, id, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}
