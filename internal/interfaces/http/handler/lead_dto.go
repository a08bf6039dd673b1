package handler

import (
	"github.com/crm/backend/internal/domain/crm"
)

// =====================
// Lead Request DTOs
// =====================

// LeadRequest is the body of lead create and replace. The domain applies
// the remaining format rules.
type LeadRequest struct {
	FirstName    string         `json:"firstname" binding:"required,max=100"`
	LastName     string         `json:"lastname" binding:"required,max=100"`
	Email        string         `json:"email" binding:"omitempty,email,max=255"`
	Phone        string         `json:"phone" binding:"omitempty,max=50"`
	LegalNameSSN string         `json:"legal_name_ssn" binding:"omitempty,max=200"`
	Last4SSN     string         `json:"last4_ssn" binding:"omitempty,last4_ssn"`
	Company      string         `json:"company" binding:"omitempty,max=200"`
	Status       crm.LeadStatus `json:"status" binding:"omitempty,lead_status"`
	Source       string         `json:"source" binding:"omitempty,max=100"`
	Notes        string         `json:"notes"`
	Extra        map[string]any `json:"extra"`
	AssignedTo   string         `json:"assigned_to" binding:"omitempty,max=50"`
}

func (r LeadRequest) toInput() crm.LeadInput {
	return crm.LeadInput{
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		Phone:        r.Phone,
		LegalNameSSN: r.LegalNameSSN,
		Last4SSN:     r.Last4SSN,
		Company:      r.Company,
		Status:       r.Status,
		Source:       r.Source,
		Notes:        r.Notes,
		Extra:        r.Extra,
		AssignedTo:   r.AssignedTo,
	}
}

// PatchLeadRequest updates only the fields present in the body.
// Extra keys are merged into the stored map.
type PatchLeadRequest struct {
	FirstName    *string         `json:"firstname" binding:"omitempty,min=1,max=100"`
	LastName     *string         `json:"lastname" binding:"omitempty,min=1,max=100"`
	Email        *string         `json:"email" binding:"omitempty,max=255"`
	Phone        *string         `json:"phone" binding:"omitempty,max=50"`
	LegalNameSSN *string         `json:"legal_name_ssn" binding:"omitempty,max=200"`
	Last4SSN     *string         `json:"last4_ssn" binding:"omitempty,last4_ssn"`
	Company      *string         `json:"company" binding:"omitempty,max=200"`
	Status       *crm.LeadStatus `json:"status" binding:"omitempty,lead_status"`
	Source       *string         `json:"source" binding:"omitempty,max=100"`
	Notes        *string         `json:"notes"`
	Extra        map[string]any  `json:"extra"`
	AssignedTo   *string         `json:"assigned_to" binding:"omitempty,max=50"`
}

func (r PatchLeadRequest) toPatch() crm.LeadPatch {
	return crm.LeadPatch{
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		Phone:        r.Phone,
		LegalNameSSN: r.LegalNameSSN,
		Last4SSN:     r.Last4SSN,
		Company:      r.Company,
		Status:       r.Status,
		Source:       r.Source,
		Notes:        r.Notes,
		Extra:        r.Extra,
		AssignedTo:   r.AssignedTo,
	}
}

// LeadListQuery represents query parameters for listing leads
type LeadListQuery struct {
	Query  string         `form:"q" binding:"omitempty,max=200"`
	Status crm.LeadStatus `form:"status"`
	Cursor string         `form:"cursor"`
	Limit  int            `form:"limit" binding:"omitempty,min=1,max=100"`
}

// =====================
// Client Request DTOs
// =====================

// CreateClientRequest converts a lead. Blank fields are taken from the lead.
type CreateClientRequest struct {
	LeadID  int64            `json:"lead_id" binding:"required,min=1"`
	Name    string           `json:"name" binding:"omitempty,max=200"`
	Email   string           `json:"email" binding:"omitempty,email,max=255"`
	Phone   string           `json:"phone" binding:"omitempty,max=50"`
	Company string           `json:"company" binding:"omitempty,max=200"`
	Status  crm.ClientStatus `json:"status" binding:"omitempty,client_status"`
	Notes   string           `json:"notes"`
}

// ClientRequest replaces the editable fields of a client
type ClientRequest struct {
	Name    string           `json:"name" binding:"required,max=200"`
	Email   string           `json:"email" binding:"omitempty,email,max=255"`
	Phone   string           `json:"phone" binding:"omitempty,max=50"`
	Company string           `json:"company" binding:"omitempty,max=200"`
	Status  crm.ClientStatus `json:"status" binding:"omitempty,client_status"`
	Notes   string           `json:"notes"`
}

func (r ClientRequest) toInput() crm.ClientInput {
	return crm.ClientInput{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Company: r.Company,
		Status:  r.Status,
		Notes:   r.Notes,
	}
}
