package persistence

import (
	"context"
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRefreshTokenRepository stores refresh tokens in the database
type GormRefreshTokenRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormRefreshTokenRepository creates a new GormRefreshTokenRepository
func NewGormRefreshTokenRepository(db *gorm.DB) *GormRefreshTokenRepository {
	return &GormRefreshTokenRepository{db: db, now: time.Now}
}

// Save records an issued token
func (r *GormRefreshTokenRepository) Save(ctx context.Context, token *identity.RefreshToken) error {
	model := &models.RefreshTokenModel{
		ID:        token.ID,
		UserID:    token.UserID,
		ExpiresAt: token.ExpiresAt.UTC(),
		RevokedAt: token.RevokedAt,
		CreatedAt: token.CreatedAt.UTC(),
	}
	return conn(ctx, r.db).Create(model).Error
}

// Find finds a token by jti
func (r *GormRefreshTokenRepository) Find(ctx context.Context, id string) (*identity.RefreshToken, error) {
	var model models.RefreshTokenModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Revoke marks one token revoked. The revoked_at guard in the UPDATE makes
// it a compare-and-set, so concurrent rotations of one token see one winner.
func (r *GormRefreshTokenRepository) Revoke(ctx context.Context, id string) error {
	result := conn(ctx, r.db).
		Model(&models.RefreshTokenModel{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", r.now().UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.Find(ctx, id); err != nil {
			return err
		}
		return identity.ErrRefreshTokenRevoked
	}
	return nil
}

// RevokeAllForUser revokes every live token of userID
func (r *GormRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	return conn(ctx, r.db).
		Model(&models.RefreshTokenModel{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", r.now().UTC()).Error
}

// DeleteExpired removes tokens that expired before cutoff
func (r *GormRefreshTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := conn(ctx, r.db).Where("expires_at < ?", cutoff.UTC()).Delete(&models.RefreshTokenModel{})
	return result.RowsAffected, result.Error
}

var _ identity.RefreshTokenStore = (*GormRefreshTokenRepository)(nil)
