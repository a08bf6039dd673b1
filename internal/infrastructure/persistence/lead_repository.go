package persistence

import (
	"context"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/persistence/datascope"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLeadRepository implements LeadRepository using GORM
type GormLeadRepository struct {
	db *gorm.DB
}

// NewGormLeadRepository creates a new GormLeadRepository
func NewGormLeadRepository(db *gorm.DB) *GormLeadRepository {
	return &GormLeadRepository{db: db}
}

// Create creates a new lead
func (r *GormLeadRepository) Create(ctx context.Context, lead *crm.Lead) error {
	model := models.LeadModelFromDomain(lead)
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		return conflict(err, msgLeadTaken)
	}
	lead.ID = model.ID
	lead.CreatedAt = model.CreatedAt
	lead.UpdatedAt = model.UpdatedAt
	return nil
}

// Update saves every mutable column. Creation metadata is never rewritten.
func (r *GormLeadRepository) Update(ctx context.Context, lead *crm.Lead) error {
	model := models.LeadModelFromDomain(lead)
	result := conn(ctx, r.db).
		Model(&models.LeadModel{}).
		Where("id = ?", lead.ID).
		Select("*").
		Omit("id", "created_at", "created_by").
		Updates(model)
	if result.Error != nil {
		return conflict(result.Error, msgLeadTaken)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete deletes a lead by ID
func (r *GormLeadRepository) Delete(ctx context.Context, id int64) error {
	result := conn(ctx, r.db).Delete(&models.LeadModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a lead by ID within scope
func (r *GormLeadRepository) FindByID(ctx context.Context, id int64, scope shared.Predicate) (*crm.Lead, error) {
	if shared.IsMatchNone(scope) {
		return nil, shared.ErrNotFound
	}
	var model models.LeadModel
	if err := datascope.Apply(conn(ctx, r.db), scope).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// List returns one page of leads, newest first
func (r *GormLeadRepository) List(ctx context.Context, filter crm.LeadFilter) ([]*crm.Lead, error) {
	if shared.IsMatchNone(filter.Scope) {
		return []*crm.Lead{}, nil
	}

	query := datascope.Apply(conn(ctx, r.db).Model(&models.LeadModel{}), filter.Scope)
	query = r.applyFilter(query, filter)
	if c := filter.Cursor; c != nil {
		at := c.CreatedAt.UTC()
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", at, at, c.ID)
	}

	var leadModels []*models.LeadModel
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(shared.ClampPageSize(filter.Limit)).
		Find(&leadModels).Error; err != nil {
		return nil, err
	}

	leads := make([]*crm.Lead, len(leadModels))
	for i, model := range leadModels {
		leads[i] = model.ToDomain()
	}
	return leads, nil
}

// ListIDs returns the ids of every lead in scope, ascending
func (r *GormLeadRepository) ListIDs(ctx context.Context, scope shared.Predicate) ([]int64, error) {
	if shared.IsMatchNone(scope) {
		return []int64{}, nil
	}
	ids := []int64{}
	if err := datascope.Apply(conn(ctx, r.db).Model(&models.LeadModel{}), scope).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Count returns the number of leads in scope
func (r *GormLeadRepository) Count(ctx context.Context, scope shared.Predicate) (int64, error) {
	if shared.IsMatchNone(scope) {
		return 0, nil
	}
	var count int64
	if err := datascope.Apply(conn(ctx, r.db).Model(&models.LeadModel{}), scope).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus groups the leads in scope by status
func (r *GormLeadRepository) CountByStatus(ctx context.Context, scope shared.Predicate) (map[crm.LeadStatus]int64, error) {
	counts := make(map[crm.LeadStatus]int64)
	if shared.IsMatchNone(scope) {
		return counts, nil
	}

	var rows []struct {
		Status crm.LeadStatus
		Total  int64
	}
	if err := datascope.Apply(conn(ctx, r.db).Model(&models.LeadModel{}), scope).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// ReassignAssignee moves every lead assigned to from over to to
func (r *GormLeadRepository) ReassignAssignee(ctx context.Context, from, to string) (int64, error) {
	if from == "" {
		return 0, nil
	}
	result := conn(ctx, r.db).
		Model(&models.LeadModel{}).
		Where("assigned_to = ?", from).
		Update("assigned_to", to)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// applyFilter applies keyword and status filters to the query
func (r *GormLeadRepository) applyFilter(query *gorm.DB, filter crm.LeadFilter) *gorm.DB {
	if filter.Query != "" {
		pattern := likePattern(filter.Query)
		query = query.Where(
			"(LOWER(first_name) LIKE ?"+likeEscape+
				" OR LOWER(last_name) LIKE ?"+likeEscape+
				" OR LOWER(email) LIKE ?"+likeEscape+
				" OR LOWER(phone) LIKE ?"+likeEscape+
				" OR LOWER(company) LIKE ?"+likeEscape+")",
			pattern, pattern, pattern, pattern, pattern,
		)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return query
}

// Ensure GormLeadRepository implements LeadRepository
var _ crm.LeadRepository = (*GormLeadRepository)(nil)
