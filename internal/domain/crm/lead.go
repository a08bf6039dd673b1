package crm

import (
	"regexp"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/shared"
)

// LeadStatus represents the pipeline stage of a lead
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
)

// IsValid reports whether s is a known status
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusConverted, LeadStatusLost:
		return true
	}
	return false
}

// Lead is a prospective client.
// Ownership for scoping is the union of CreatedBy and AssignedTo.
type Lead struct {
	shared.BaseEntity
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	LegalNameSSN string
	Last4SSN     string
	Company      string
	Status       LeadStatus
	Source       string
	Notes        string
	Extra        map[string]any
	CreatedBy    int64
	// AssignedTo holds a user id in text form
	AssignedTo string
}

// LeadInput carries every client-editable field of a lead
type LeadInput struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	LegalNameSSN string
	Last4SSN     string
	Company      string
	Status       LeadStatus
	Source       string
	Notes        string
	Extra        map[string]any
	AssignedTo   string
}

// LeadPatch carries a partial update; nil fields are left unchanged
type LeadPatch struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Phone        *string
	LegalNameSSN *string
	Last4SSN     *string
	Company      *string
	Status       *LeadStatus
	Source       *string
	Notes        *string
	Extra        map[string]any
	AssignedTo   *string
}

// NewLead creates a lead owned by createdBy
func NewLead(createdBy int64, in LeadInput) (*Lead, error) {
	l := &Lead{
		BaseEntity: shared.NewBaseEntity(),
		CreatedBy:  createdBy,
	}
	if in.Status == "" {
		in.Status = LeadStatusNew
	}
	if err := l.Replace(in); err != nil {
		return nil, err
	}
	return l, nil
}

// Replace overwrites every editable field. Creation metadata is untouched.
func (l *Lead) Replace(in LeadInput) error {
	if in.Status == "" {
		in.Status = l.Status
	}
	next := *l
	next.FirstName = strings.TrimSpace(in.FirstName)
	next.LastName = strings.TrimSpace(in.LastName)
	next.Email = strings.TrimSpace(in.Email)
	next.Phone = strings.TrimSpace(in.Phone)
	next.LegalNameSSN = strings.TrimSpace(in.LegalNameSSN)
	next.Last4SSN = strings.TrimSpace(in.Last4SSN)
	next.Company = strings.TrimSpace(in.Company)
	next.Status = in.Status
	next.Source = strings.TrimSpace(in.Source)
	next.Notes = in.Notes
	next.Extra = in.Extra
	next.AssignedTo = strings.TrimSpace(in.AssignedTo)
	if err := next.validate(); err != nil {
		return err
	}
	*l = next
	l.Touch()
	return nil
}

// ApplyPatch updates only the fields present in p
func (l *Lead) ApplyPatch(p LeadPatch) error {
	in := l.Input()
	setString(&in.FirstName, p.FirstName)
	setString(&in.LastName, p.LastName)
	setString(&in.Email, p.Email)
	setString(&in.Phone, p.Phone)
	setString(&in.LegalNameSSN, p.LegalNameSSN)
	setString(&in.Last4SSN, p.Last4SSN)
	setString(&in.Company, p.Company)
	setString(&in.Source, p.Source)
	setString(&in.Notes, p.Notes)
	setString(&in.AssignedTo, p.AssignedTo)
	if p.Status != nil {
		in.Status = *p.Status
	}
	if p.Extra != nil {
		merged := make(map[string]any, len(in.Extra)+len(p.Extra))
		for k, v := range in.Extra {
			merged[k] = v
		}
		for k, v := range p.Extra {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		in.Extra = merged
	}
	return l.Replace(in)
}

// Input returns the editable fields of the lead
func (l *Lead) Input() LeadInput {
	return LeadInput{
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
		AssignedTo:   l.AssignedTo,
	}
}

// FullName returns "first last"
func (l *Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// LeadSnapshot is the serialized form of a lead used by audit records
type LeadSnapshot struct {
	ID           int64          `json:"id"`
	FirstName    string         `json:"firstname"`
	LastName     string         `json:"lastname"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	LegalNameSSN string         `json:"legal_name_ssn"`
	Last4SSN     string         `json:"last4_ssn"`
	Company      string         `json:"company"`
	Status       LeadStatus     `json:"status"`
	Source       string         `json:"source"`
	Notes        string         `json:"notes"`
	Extra        map[string]any `json:"extra,omitempty"`
	CreatedBy    int64          `json:"created_by"`
	AssignedTo   string         `json:"assigned_to"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Snapshot returns the audit view of the lead
func (l *Lead) Snapshot() LeadSnapshot {
	return LeadSnapshot{
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
	}
}

var (
	leadEmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	last4Regex     = regexp.MustCompile(`^[0-9]{4}$`)
	numericRegex   = regexp.MustCompile(`^[0-9]+$`)
)

func (l *Lead) validate() error {
	if l.FirstName == "" {
		return shared.BadRequest("First name is required")
	}
	if l.LastName == "" {
		return shared.BadRequest("Last name is required")
	}
	if len(l.FirstName) > 100 || len(l.LastName) > 100 {
		return shared.BadRequest("Name fields cannot exceed 100 characters")
	}
	if l.Email != "" && !leadEmailRegex.MatchString(l.Email) {
		return shared.BadRequest("Invalid email format")
	}
	if len(l.Phone) > 50 {
		return shared.BadRequest("Phone cannot exceed 50 characters")
	}
	if l.Last4SSN != "" && !last4Regex.MatchString(l.Last4SSN) {
		return shared.BadRequest("Last 4 SSN must be exactly 4 digits")
	}
	if !l.Status.IsValid() {
		return shared.BadRequest("Invalid lead status: " + string(l.Status))
	}
	if l.AssignedTo != "" && !numericRegex.MatchString(l.AssignedTo) {
		return shared.BadRequest("assigned_to must be a user id")
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
