// Package datascope compiles hierarchy scope predicates into GORM WHERE
// clauses.
//
// Usage:
//
//	scoped := datascope.Apply(db.Model(&LeadModel{}), scope)
//	scoped.Find(&leads) // WHERE (created_by IN (...) OR assigned_to IN (...))
//
// Only whitelisted column names are ever interpolated into SQL; a predicate
// naming any other column compiles to "1 = 0".
package datascope

import (
	"strings"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// allowedScopeFields whitelists the columns a predicate may reference
var allowedScopeFields = map[string]bool{
	access.FieldID:         true,
	access.FieldCreatedBy:  true,
	access.FieldAssignedTo: true,
	access.FieldLeadID:     true,
}

const matchNothing = "1 = 0"

// Apply restricts db to the rows matching p. A nil predicate matches everything.
func Apply(db *gorm.DB, p shared.Predicate) *gorm.DB {
	if shared.IsMatchAll(p) {
		return db
	}
	sql, args := Compile(p)
	return db.Where(sql, args...)
}

// Scope returns p as a GORM scope function
func Scope(p shared.Predicate) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return Apply(db, p)
	}
}

// Compile renders p as a parenthesised SQL condition with positional args
func Compile(p shared.Predicate) (string, []any) {
	switch v := p.(type) {
	case nil, shared.MatchAll:
		return "1 = 1", nil
	case shared.MatchNone:
		return matchNothing, nil
	case shared.InInt64:
		if !allowedScopeFields[v.Field] || len(v.Values) == 0 {
			return matchNothing, nil
		}
		return v.Field + " IN ?", []any{v.Values}
	case shared.InString:
		if !allowedScopeFields[v.Field] || len(v.Values) == 0 {
			return matchNothing, nil
		}
		return v.Field + " IN ?", []any{v.Values}
	case shared.Or:
		return join(v.Predicates, " OR ", matchNothing)
	case shared.And:
		return join(v.Predicates, " AND ", "1 = 1")
	default:
		return matchNothing, nil
	}
}

func join(preds []shared.Predicate, op, empty string) (string, []any) {
	if len(preds) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(preds))
	var args []any
	for _, child := range preds {
		sql, childArgs := Compile(child)
		parts = append(parts, sql)
		args = append(args, childArgs...)
	}
	return "(" + strings.Join(parts, op) + ")", args
}
