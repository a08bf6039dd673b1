package persistence

import (
	"context"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/persistence/datascope"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormClientRepository implements ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// Create creates a new client
func (r *GormClientRepository) Create(ctx context.Context, client *crm.Client) error {
	model := models.ClientModelFromDomain(client)
	if err := conn(ctx, r.db).Omit("Lead").Create(model).Error; err != nil {
		return err
	}
	client.ID = model.ID
	return nil
}

// Update updates an existing client
func (r *GormClientRepository) Update(ctx context.Context, client *crm.Client) error {
	model := models.ClientModelFromDomain(client)
	result := conn(ctx, r.db).
		Model(&models.ClientModel{}).
		Where("id = ?", client.ID).
		Select("*").
		Omit("id", "created_at", "created_by", "lead_id", "Lead").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete deletes a client by ID
func (r *GormClientRepository) Delete(ctx context.Context, id int64) error {
	result := conn(ctx, r.db).Delete(&models.ClientModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a client by ID within scope
func (r *GormClientRepository) FindByID(ctx context.Context, id int64, scope shared.Predicate) (*crm.Client, error) {
	if shared.IsMatchNone(scope) {
		return nil, shared.ErrNotFound
	}
	var model models.ClientModel
	if err := datascope.Apply(conn(ctx, r.db), scope).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// List returns one page of clients in ascending id order
func (r *GormClientRepository) List(ctx context.Context, filter crm.ClientFilter) ([]*crm.Client, error) {
	if shared.IsMatchNone(filter.Scope) {
		return []*crm.Client{}, nil
	}

	query := datascope.Apply(conn(ctx, r.db).Model(&models.ClientModel{}), filter.Scope)
	if filter.Query != "" {
		pattern := likePattern(filter.Query)
		query = query.Where(
			"(LOWER(name) LIKE ?"+likeEscape+
				" OR LOWER(email) LIKE ?"+likeEscape+
				" OR LOWER(company) LIKE ?"+likeEscape+")",
			pattern, pattern, pattern,
		)
	}
	if filter.AfterID > 0 {
		query = query.Where("id > ?", filter.AfterID)
	}

	var clientModels []*models.ClientModel
	if err := query.
		Order("id ASC").
		Limit(shared.ClampPageSize(filter.Limit)).
		Find(&clientModels).Error; err != nil {
		return nil, err
	}

	clients := make([]*crm.Client, len(clientModels))
	for i, model := range clientModels {
		clients[i] = model.ToDomain()
	}
	return clients, nil
}

// ExistsForLead reports whether any client was converted from leadID
func (r *GormClientRepository) ExistsForLead(ctx context.Context, leadID int64) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).
		Model(&models.ClientModel{}).
		Where("lead_id = ?", leadID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormClientRepository implements ClientRepository
var _ crm.ClientRepository = (*GormClientRepository)(nil)
