package identity

import (
	"context"
	"errors"
	"time"
)

// ErrRefreshTokenRevoked is returned by Revoke when another caller revoked the token first
var ErrRefreshTokenRevoked = errors.New("refresh token already revoked")

// RefreshToken records an issued refresh token by its jti
type RefreshToken struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// IsUsable reports whether the token is neither revoked nor expired at now
func (t *RefreshToken) IsUsable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// RefreshTokenStore tracks issued refresh tokens so they can be rotated and revoked.
// Find and Revoke return shared.ErrNotFound for unknown ids. Revoke is a
// compare-and-set: exactly one caller wins, the rest get ErrRefreshTokenRevoked.
type RefreshTokenStore interface {
	Save(ctx context.Context, token *RefreshToken) error
	Find(ctx context.Context, id string) (*RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
}
