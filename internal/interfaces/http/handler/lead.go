package handler

import (
	"github.com/crm/backend/internal/application/crm"
	"github.com/gin-gonic/gin"
)

// LeadHandler handles lead HTTP requests
type LeadHandler struct {
	BaseHandler
	leadService *crm.LeadService
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadService *crm.LeadService) *LeadHandler {
	return &LeadHandler{
		leadService: leadService,
	}
}

// List godoc
// @ID           listLeads
// @Summary      List leads
// @Description  Visible leads, newest first
// @Tags         leads
// @Produce      json
// @Param        q query string false "Search name, email, phone or company"
// @Param        status query string false "Lead status" Enums(new, contacted, qualified, converted, lost)
// @Param        cursor query string false "Cursor from the previous page"
// @Param        limit query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]crm.LeadDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /leads [get]
func (h *LeadHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var query LeadListQuery
	if !h.bindQuery(c, &query) {
		return
	}

	page, err := h.leadService.List(c.Request.Context(), p, crm.ListLeadsInput{
		Query:  query.Query,
		Status: query.Status,
		Cursor: query.Cursor,
		Limit:  query.Limit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithCursor(c, page.Items, len(page.Items), page.NextCursor)
}

// Stats godoc
// @ID           getLeadStats
// @Summary      Lead counts by status
// @Tags         leads
// @Produce      json
// @Success      200 {object} dto.Response{data=crm.LeadStats}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /leads/stats [get]
func (h *LeadHandler) Stats(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	stats, err := h.leadService.Stats(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// Create godoc
// @ID           createLead
// @Summary      Create a lead
// @Description  Rejected with 409 when the email, phone, full name or SSN fields match an existing lead
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        request body LeadRequest true "Lead"
// @Success      201 {object} dto.Response{data=crm.LeadDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /leads [post]
func (h *LeadHandler) Create(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req LeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.leadService.Create(c.Request.Context(), p, req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, lead)
}

// GetByID godoc
// @ID           getLeadById
// @Summary      Get a lead by ID
// @Tags         leads
// @Produce      json
// @Param        id path int true "Lead ID"
// @Success      200 {object} dto.Response{data=crm.LeadDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /leads/{id} [get]
func (h *LeadHandler) GetByID(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	lead, err := h.leadService.GetByID(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lead)
}

// Update godoc
// @ID           updateLead
// @Summary      Replace a lead
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        id path int true "Lead ID"
// @Param        request body LeadRequest true "Lead"
// @Success      200 {object} dto.Response{data=crm.LeadDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /leads/{id} [put]
func (h *LeadHandler) Update(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req LeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.leadService.Update(c.Request.Context(), p, id, req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lead)
}

// Patch godoc
// @ID           patchLead
// @Summary      Partially update a lead
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        id path int true "Lead ID"
// @Param        request body PatchLeadRequest true "Fields to change"
// @Success      200 {object} dto.Response{data=crm.LeadDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /leads/{id} [patch]
func (h *LeadHandler) Patch(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req PatchLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.leadService.Patch(c.Request.Context(), p, id, req.toPatch())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lead)
}

// Delete godoc
// @ID           deleteLead
// @Summary      Delete a lead
// @Tags         leads
// @Param        id path int true "Lead ID"
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /leads/{id} [delete]
func (h *LeadHandler) Delete(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.leadService.Delete(c.Request.Context(), p, id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Activity godoc
// @ID           getLeadActivity
// @Summary      Audit trail of a lead
// @Tags         leads
// @Produce      json
// @Param        id path int true "Lead ID"
// @Param        limit query int false "Maximum entries" default(50) maximum(100)
// @Success      200 {object} dto.Response{data=[]crm.Activity}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /leads/{id}/activity [get]
func (h *LeadHandler) Activity(c *gin.Context) {
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

	entries, err := h.leadService.Activity(c.Request.Context(), p, id, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}
