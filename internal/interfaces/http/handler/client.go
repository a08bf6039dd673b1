package handler

import (
	"github.com/crm/backend/internal/application/crm"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ClientHandler handles client HTTP requests. Visibility follows the
// originating lead.
type ClientHandler struct {
	BaseHandler
	clientService *crm.ClientService
}

// NewClientHandler creates a new client handler
func NewClientHandler(clientService *crm.ClientService) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
	}
}

// List godoc
// @ID           listClients
// @Summary      List clients
// @Tags         clients
// @Produce      json
// @Param        q query string false "Search name, email or company"
// @Param        cursor query string false "Cursor from the previous page"
// @Param        limit query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]crm.ClientDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /clients [get]
func (h *ClientHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var query dto.CursorRequest
	if !h.bindQuery(c, &query) {
		return
	}

	page, err := h.clientService.List(c.Request.Context(), p, crm.ListClientsInput{
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
// @ID           createClient
// @Summary      Convert a lead into a client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        request body CreateClientRequest true "Client"
// @Success      201 {object} dto.Response{data=crm.ClientDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /clients [post]
func (h *ClientHandler) Create(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req CreateClientRequest
	if !h.bindJSON(c, &req) {
		return
	}

	client, err := h.clientService.Create(c.Request.Context(), p, crm.CreateClientInput{
		LeadID: req.LeadID,
		ClientInput: ClientRequest{
			Name:    req.Name,
			Email:   req.Email,
			Phone:   req.Phone,
			Company: req.Company,
			Status:  req.Status,
			Notes:   req.Notes,
		}.toInput(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, client)
}

// GetByID godoc
// @ID           getClientById
// @Summary      Get a client by ID
// @Tags         clients
// @Produce      json
// @Param        id path int true "Client ID"
// @Success      200 {object} dto.Response{data=crm.ClientDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /clients/{id} [get]
func (h *ClientHandler) GetByID(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	client, err := h.clientService.GetByID(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, client)
}

// Update godoc
// @ID           updateClient
// @Summary      Replace a client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        id path int true "Client ID"
// @Param        request body ClientRequest true "Client"
// @Success      200 {object} dto.Response{data=crm.ClientDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /clients/{id} [put]
func (h *ClientHandler) Update(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req ClientRequest
	if !h.bindJSON(c, &req) {
		return
	}

	client, err := h.clientService.Update(c.Request.Context(), p, id, req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, client)
}

// Delete godoc
// @ID           deleteClient
// @Summary      Delete a client
// @Tags         clients
// @Param        id path int true "Client ID"
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /clients/{id} [delete]
func (h *ClientHandler) Delete(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.clientService.Delete(c.Request.Context(), p, id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Activity godoc
// @ID           getClientActivity
// @Summary      Audit trail of a client
// @Tags         clients
// @Produce      json
// @Param        id path int true "Client ID"
// @Param        limit query int false "Maximum entries" default(50) maximum(100)
// @Success      200 {object} dto.Response{data=[]crm.Activity}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /clients/{id}/activity [get]
func (h *ClientHandler) Activity(c *gin.Context) {
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

	entries, err := h.clientService.Activity(c.Request.Context(), p, id, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}
