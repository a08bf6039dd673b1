package crm

import (
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/shared"
)

// ClientStatus represents the lifecycle state of a client
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

// Client is a converted lead. Its visibility is inherited from LeadID.
type Client struct {
	shared.BaseEntity
	LeadID    int64
	Name      string
	Email     string
	Phone     string
	Company   string
	Status    ClientStatus
	Notes     string
	CreatedBy int64
}

// ClientInput carries the editable fields of a client
type ClientInput struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Status  ClientStatus
	Notes   string
}

// NewClientFromLead converts lead into a client, filling blanks from the lead
func NewClientFromLead(lead *Lead, createdBy int64, in ClientInput) (*Client, error) {
	if in.Name == "" {
		in.Name = lead.FullName()
	}
	if in.Email == "" {
		in.Email = lead.Email
	}
	if in.Phone == "" {
		in.Phone = lead.Phone
	}
	if in.Company == "" {
		in.Company = lead.Company
	}
	if in.Status == "" {
		in.Status = ClientStatusActive
	}
	c := &Client{
		BaseEntity: shared.NewBaseEntity(),
		LeadID:     lead.ID,
		CreatedBy:  createdBy,
	}
	if err := c.Replace(in); err != nil {
		return nil, err
	}
	return c, nil
}

// Replace overwrites the editable fields. LeadID and CreatedBy never change.
func (c *Client) Replace(in ClientInput) error {
	if in.Status == "" {
		in.Status = c.Status
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return shared.BadRequest("Client name is required")
	}
	if len(name) > 200 {
		return shared.BadRequest("Client name cannot exceed 200 characters")
	}
	email := strings.TrimSpace(in.Email)
	if email != "" && !leadEmailRegex.MatchString(email) {
		return shared.BadRequest("Invalid email format")
	}
	if in.Status != ClientStatusActive && in.Status != ClientStatusInactive {
		return shared.BadRequest("Invalid client status: " + string(in.Status))
	}
	c.Name = name
	c.Email = email
	c.Phone = strings.TrimSpace(in.Phone)
	c.Company = strings.TrimSpace(in.Company)
	c.Status = in.Status
	c.Notes = in.Notes
	c.Touch()
	return nil
}

// ClientSnapshot is the audit view of a client
type ClientSnapshot struct {
	ID        int64        `json:"id"`
	LeadID    int64        `json:"lead_id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone"`
	Company   string       `json:"company"`
	Status    ClientStatus `json:"status"`
	Notes     string       `json:"notes"`
	CreatedBy int64        `json:"created_by"`
	CreatedAt time.Time    `json:"created_at"`
}

// Snapshot returns the audit view of the client
func (c *Client) Snapshot() ClientSnapshot {
	return ClientSnapshot{
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
	}
}
