package models

import (
	"encoding/json"
	"time"

	"github.com/crm/backend/internal/domain/crm"
)

// LeadModel is the persistence model for the Lead domain entity.
// Partial unique indexes on email and phone back up the duplicate check.
type LeadModel struct {
	BaseModel
	FirstName    string         `gorm:"column:first_name;type:varchar(100);not null"`
	LastName     string         `gorm:"column:last_name;type:varchar(100);not null"`
	Email        string         `gorm:"type:varchar(200);index:idx_leads_email,unique,where:email <> ''"`
	Phone        string         `gorm:"type:varchar(50);index:idx_leads_phone,unique,where:phone <> ''"`
	LegalNameSSN string         `gorm:"column:legal_name_ssn;type:varchar(100);index"`
	Last4SSN     string         `gorm:"column:last4_ssn;type:varchar(4);index"`
	Company      string         `gorm:"type:varchar(200)"`
	Status       crm.LeadStatus `gorm:"type:varchar(20);not null;default:'new';index"`
	Source       string         `gorm:"type:varchar(100)"`
	Notes        string         `gorm:"type:text"`
	Extra        map[string]any `gorm:"serializer:json;type:text"`
	CreatedBy    int64          `gorm:"not null;index"`
	AssignedTo   string         `gorm:"type:varchar(20);index"`
}

// TableName returns the table name for GORM
func (LeadModel) TableName() string {
	return "leads"
}

// ToDomain converts the persistence model to a domain Lead
func (m *LeadModel) ToDomain() *crm.Lead {
	return &crm.Lead{
		BaseEntity:   m.BaseModel.ToDomain(),
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Email:        m.Email,
		Phone:        m.Phone,
		LegalNameSSN: m.LegalNameSSN,
		Last4SSN:     m.Last4SSN,
		Company:      m.Company,
		Status:       m.Status,
		Source:       m.Source,
		Notes:        m.Notes,
		Extra:        m.Extra,
		CreatedBy:    m.CreatedBy,
		AssignedTo:   m.AssignedTo,
	}
}

// LeadModelFromDomain creates a persistence model from a domain Lead
func LeadModelFromDomain(l *crm.Lead) *LeadModel {
	m := &LeadModel{
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
	}
	m.FromDomainBaseEntity(l.BaseEntity)
	return m
}

// ClientModel is the persistence model for the Client domain entity
type ClientModel struct {
	BaseModel
	LeadID    int64            `gorm:"not null;index"`
	Lead      *LeadModel       `gorm:"foreignKey:LeadID;constraint:OnDelete:RESTRICT"`
	Name      string           `gorm:"type:varchar(200);not null"`
	Email     string           `gorm:"type:varchar(200)"`
	Phone     string           `gorm:"type:varchar(50)"`
	Company   string           `gorm:"type:varchar(200)"`
	Status    crm.ClientStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Notes     string           `gorm:"type:text"`
	CreatedBy int64            `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client
func (m *ClientModel) ToDomain() *crm.Client {
	return &crm.Client{
		BaseEntity: m.BaseModel.ToDomain(),
		LeadID:     m.LeadID,
		Name:       m.Name,
		Email:      m.Email,
		Phone:      m.Phone,
		Company:    m.Company,
		Status:     m.Status,
		Notes:      m.Notes,
		CreatedBy:  m.CreatedBy,
	}
}

// ClientModelFromDomain creates a persistence model from a domain Client
func ClientModelFromDomain(c *crm.Client) *ClientModel {
	m := &ClientModel{
		LeadID:    c.LeadID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Status:    c.Status,
		Notes:     c.Notes,
		CreatedBy: c.CreatedBy,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// ActivityModel is an append-only audit row
type ActivityModel struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	SubjectType crm.SubjectType `gorm:"type:varchar(20);not null;index:idx_activities_subject,priority:1"`
	SubjectID   int64           `gorm:"not null;index:idx_activities_subject,priority:2"`
	Action      crm.Action      `gorm:"type:varchar(10);not null"`
	ActorID     int64           `gorm:"not null;index"`
	Details     string          `gorm:"type:text;not null"`
	CreatedAt   time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ActivityModel) TableName() string {
	return "activities"
}

// ToDomain converts the persistence model to a domain Activity
func (m *ActivityModel) ToDomain() *crm.Activity {
	return &crm.Activity{
		ID:          m.ID,
		SubjectType: m.SubjectType,
		SubjectID:   m.SubjectID,
		Action:      m.Action,
		ActorID:     m.ActorID,
		Details:     json.RawMessage(m.Details),
		CreatedAt:   m.CreatedAt,
	}
}

// ActivityModelFromDomain creates a persistence model from a domain Activity
func ActivityModelFromDomain(a *crm.Activity) *ActivityModel {
	return &ActivityModel{
		ID:          a.ID,
		SubjectType: a.SubjectType,
		SubjectID:   a.SubjectID,
		Action:      a.Action,
		ActorID:     a.ActorID,
		Details:     string(a.Details),
		CreatedAt:   normalizeTime(a.CreatedAt),
	}
}
