package persistence

import (
	"errors"
	"strings"

	"github.com/crm/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// notFound maps gorm.ErrRecordNotFound to shared.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

const (
	msgEmailTaken = "A user with this email already exists"
	msgLeadTaken  = "A lead with this email or phone already exists"
)

// conflict maps a unique-index violation to a Conflict error
func conflict(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.Conflict(msg)
	}
	return err
}

// likeEscape is appended to LIKE clauses that take a likePattern
const likeEscape = ` ESCAPE '\'`

// likePattern lowercases and escapes a search keyword for a LIKE on LOWER(column)
func likePattern(q string) string {
	r := []rune{}
	for _, c := range strings.ToLower(q) {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return "%" + string(r) + "%"
}
