package persistence

import (
	"context"
	"strings"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDuplicateChecker queries the leads table once per uniqueness dimension
type GormDuplicateChecker struct {
	db *gorm.DB
}

// NewGormDuplicateChecker creates a new GormDuplicateChecker
func NewGormDuplicateChecker(db *gorm.DB) *GormDuplicateChecker {
	return &GormDuplicateChecker{db: db}
}

type duplicateRule struct {
	field crm.DuplicateField
	skip  bool
	where string
	args  []any
}

// FindDuplicate implements crm.DuplicateChecker.
// Dimensions are checked in a fixed order and the first collision wins.
func (c *GormDuplicateChecker) FindDuplicate(ctx context.Context, candidate *crm.Lead, excludeID int64) (crm.DuplicateField, error) {
	email := strings.ToLower(strings.TrimSpace(candidate.Email))
	first := strings.ToLower(strings.TrimSpace(candidate.FirstName))
	last := strings.ToLower(strings.TrimSpace(candidate.LastName))

	rules := []duplicateRule{
		{crm.DuplicateEmail, email == "", "LOWER(email) = ?", []any{email}},
		{crm.DuplicatePhone, candidate.Phone == "", "phone = ?", []any{candidate.Phone}},
		{crm.DuplicateFullName, first == "" || last == "", "LOWER(first_name) = ? AND LOWER(last_name) = ?", []any{first, last}},
		{crm.DuplicateLegalSSN, candidate.LegalNameSSN == "", "legal_name_ssn = ?", []any{candidate.LegalNameSSN}},
		{crm.DuplicateLast4SSN, candidate.Last4SSN == "", "last4_ssn = ?", []any{candidate.Last4SSN}},
	}

	for _, p := range rules {
		if p.skip {
			continue
		}
		query := conn(ctx, c.db).Model(&models.LeadModel{}).Where(p.where, p.args...)
		if excludeID != 0 {
			query = query.Where("id <> ?", excludeID)
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return crm.DuplicateNone, err
		}
		if count > 0 {
			return p.field, nil
		}
	}
	return crm.DuplicateNone, nil
}

var _ crm.DuplicateChecker = (*GormDuplicateChecker)(nil)
