package persistence

import (
	"context"
	"slices"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/persistence/datascope"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUserRepository implements UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	model := models.UserModelFromDomain(user)
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		return conflict(err, msgEmailTaken)
	}
	user.ID = model.ID
	return nil
}

// Update updates an existing user
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	model := models.UserModelFromDomain(user)
	result := conn(ctx, r.db).
		Model(&models.UserModel{}).
		Where("id = ?", user.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return conflict(result.Error, msgEmailTaken)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete deletes a user by ID
func (r *GormUserRepository) Delete(ctx context.Context, id int64) error {
	result := conn(ctx, r.db).Delete(&models.UserModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id int64) (*identity.User, error) {
	var model models.UserModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return nil, shared.ErrNotFound
	}
	var model models.UserModel
	if err := conn(ctx, r.db).
		Where("LOWER(email) = ?", email).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// ExistsByEmail checks if an email is taken by a user other than excludeID
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}
	var count int64
	query := conn(ctx, r.db).
		Model(&models.UserModel{}).
		Where("LOWER(email) = ?", email)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns one page of users in ascending id order
func (r *GormUserRepository) List(ctx context.Context, filter identity.UserFilter) ([]*identity.User, error) {
	if shared.IsMatchNone(filter.Scope) {
		return []*identity.User{}, nil
	}

	query := datascope.Apply(conn(ctx, r.db).Model(&models.UserModel{}), filter.Scope)
	if filter.Query != "" {
		pattern := likePattern(filter.Query)
		query = query.Where(
			"(LOWER(name) LIKE ?"+likeEscape+" OR LOWER(email) LIKE ?"+likeEscape+")",
			pattern, pattern,
		)
	}
	if filter.AfterID > 0 {
		query = query.Where("id > ?", filter.AfterID)
	}

	var userModels []*models.UserModel
	if err := query.
		Order("id ASC").
		Limit(shared.ClampPageSize(filter.Limit)).
		Find(&userModels).Error; err != nil {
		return nil, err
	}

	users := make([]*identity.User, len(userModels))
	for i, model := range userModels {
		users[i] = model.ToDomain()
	}
	return users, nil
}

// ListSubordinateIDs returns the direct reports of any of managerIDs
func (r *GormUserRepository) ListSubordinateIDs(ctx context.Context, managerIDs []int64) ([]int64, error) {
	if len(managerIDs) == 0 {
		return []int64{}, nil
	}
	var ids []int64
	if err := conn(ctx, r.db).
		Model(&models.UserModel{}).
		Where("manager_id IN ?", managerIDs).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

// ReassignSubordinates moves every direct report of fromManager to toManager
func (r *GormUserRepository) ReassignSubordinates(ctx context.Context, fromManager int64, toManager *int64) (int64, error) {
	result := conn(ctx, r.db).
		Model(&models.UserModel{}).
		Where("manager_id = ?", fromManager).
		Update("manager_id", toManager)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Ensure GormUserRepository implements UserRepository
var _ identity.UserRepository = (*GormUserRepository)(nil)
