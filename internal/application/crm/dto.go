package crm

import (
	"time"

	"github.com/crm/backend/internal/domain/crm"
)

// LeadDTO is the API view of a lead
type LeadDTO struct {
	ID           int64          `json:"id"`
	FirstName    string         `json:"firstname"`
	LastName     string         `json:"lastname"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	LegalNameSSN string         `json:"legal_name_ssn"`
	Last4SSN     string         `json:"last4_ssn"`
	Company      string         `json:"company"`
	Status       crm.LeadStatus `json:"status"`
	Source       string         `json:"source"`
	Notes        string         `json:"notes"`
	Extra        map[string]any `json:"extra,omitempty"`
	CreatedBy    int64          `json:"created_by"`
	AssignedTo   string         `json:"assigned_to"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ToLeadDTO converts a domain lead
func ToLeadDTO(l *crm.Lead) LeadDTO {
	return LeadDTO{
		ID:           l.ID,
		FirstName:    l.FirstName,
		LastName:     l.LastName,
		Email:        l.Email,
		Phone:        l.Phone,
		LegalNameSSN: l.LegalNameSSN,
		Last4SSN:     l.Last4SSN,
		Company:      l.Company,
		Status:       l.Status,
		Source:       l.Source,
		Notes:        l.Notes,
		Extra:        l.Extra,
		CreatedBy:    l.CreatedBy,
		AssignedTo:   l.AssignedTo,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

// ListLeadsInput selects one page of leads
type ListLeadsInput struct {
	Query  string
	Status crm.LeadStatus
	Cursor string
	Limit  int
}

// LeadStats counts the visible leads, in total and per status
type LeadStats struct {
	Total    int64                    `json:"total"`
	ByStatus map[crm.LeadStatus]int64 `json:"by_status"`
}

// ClientDTO is the API view of a client
type ClientDTO struct {
	ID        int64            `json:"id"`
	LeadID    int64            `json:"lead_id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Phone     string           `json:"phone"`
	Company   string           `json:"company"`
	Status    crm.ClientStatus `json:"status"`
	Notes     string           `json:"notes"`
	CreatedBy int64            `json:"created_by"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ToClientDTO converts a domain client
func ToClientDTO(c *crm.Client) ClientDTO {
	return ClientDTO{
		ID:        c.ID,
		LeadID:    c.LeadID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Status:    c.Status,
		Notes:     c.Notes,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ListClientsInput selects one page of clients
type ListClientsInput struct {
	Query  string
	Cursor string
	Limit  int
}

// CreateClientInput converts a lead into a client. Blank fields are
// filled from the lead.
type CreateClientInput struct {
	LeadID int64
	crm.ClientInput
}
