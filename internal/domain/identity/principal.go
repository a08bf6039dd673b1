package identity

import (
	"fmt"

	"github.com/crm/backend/internal/domain/shared"
)

// Role ranks. A lower number is a higher privilege.
const (
	RankSuperAdmin = 1
	RankAdmin      = 2
	RankManager    = 3
	RankAgent      = 4

	// MaxRank bounds the rank space accepted from clients
	MaxRank = 100
)

// IsAdminRank reports whether rank carries administrative override
func IsAdminRank(rank int) bool {
	return rank == RankSuperAdmin || rank == RankAdmin
}

// ValidateRank rejects ranks outside the supported range
func ValidateRank(rank int) error {
	if rank < RankSuperAdmin || rank > MaxRank {
		return shared.BadRequest(fmt.Sprintf("Role rank must be between %d and %d", RankSuperAdmin, MaxRank))
	}
	return nil
}

// Principal is the authenticated caller of a request.
// It is derived from a verified access token and never from request input.
type Principal struct {
	UserID   int64 `json:"user_id"`
	RoleRank int   `json:"role_rank"`
}

// IsAdmin reports whether the principal bypasses hierarchy scoping
func (p Principal) IsAdmin() bool {
	return IsAdminRank(p.RoleRank)
}

// Outranks reports whether the principal strictly outranks rank
func (p Principal) Outranks(rank int) bool {
	return rank > p.RoleRank
}
