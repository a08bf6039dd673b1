package persistence

import (
	"context"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormActivityRepository appends and lists audit rows
type GormActivityRepository struct {
	db *gorm.DB
}

// NewGormActivityRepository creates a new GormActivityRepository
func NewGormActivityRepository(db *gorm.DB) *GormActivityRepository {
	return &GormActivityRepository{db: db}
}

// Append inserts one activity. Rows are never updated.
func (r *GormActivityRepository) Append(ctx context.Context, activity *crm.Activity) error {
	model := models.ActivityModelFromDomain(activity)
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		return err
	}
	activity.ID = model.ID
	return nil
}

// ListBySubject returns the activities of one subject, newest first
func (r *GormActivityRepository) ListBySubject(ctx context.Context, subject crm.SubjectType, id int64, limit int) ([]*crm.Activity, error) {
	var rows []*models.ActivityModel
	query := conn(ctx, r.db).
		Where("subject_type = ? AND subject_id = ?", subject, id).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	activities := make([]*crm.Activity, len(rows))
	for i, row := range rows {
		activities[i] = row.ToDomain()
	}
	return activities, nil
}

var _ crm.ActivityRepository = (*GormActivityRepository)(nil)
