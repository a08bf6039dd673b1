package crm

import (
	"context"
	"fmt"

	"github.com/crm/backend/internal/domain/shared"
)

// DuplicateField names the dimension on which two leads collide
type DuplicateField string

const (
	DuplicateNone     DuplicateField = ""
	DuplicateEmail    DuplicateField = "email"
	DuplicatePhone    DuplicateField = "phone"
	DuplicateFullName DuplicateField = "full name"
	DuplicateLegalSSN DuplicateField = "legal name SSN"
	DuplicateLast4SSN DuplicateField = "last 4 SSN"
)

// DuplicateChecker finds another lead sharing any uniqueness dimension with
// candidate. Email and full name compare case-insensitively, the rest exactly.
// Empty values never collide. excludeID (0 for none) is skipped.
type DuplicateChecker interface {
	FindDuplicate(ctx context.Context, candidate *Lead, excludeID int64) (DuplicateField, error)
}

// DuplicateError builds the Conflict error for a collision on field
func DuplicateError(field DuplicateField) error {
	return shared.Conflict(fmt.Sprintf("A lead with this %s already exists", field))
}
