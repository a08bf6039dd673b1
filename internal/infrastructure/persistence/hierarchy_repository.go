package persistence

import (
	"context"
	"fmt"
	"slices"

	"github.com/crm/backend/internal/domain/access"
	"gorm.io/gorm"
)

// hierarchySQL walks "reports to" edges downward from a root user.
// UNION discards rows already produced, so a cycle in manager_id stops the
// recursion instead of looping.
const hierarchySQL = `WITH RECURSIVE subordinates(id) AS (
	SELECT CAST(? AS BIGINT)
	UNION
	SELECT u.id FROM users u JOIN subordinates s ON u.manager_id = s.id
)
SELECT id FROM subordinates`

// GormHierarchyResolver resolves a user's hierarchy with one recursive query
type GormHierarchyResolver struct {
	db *gorm.DB
}

// NewGormHierarchyResolver creates a new GormHierarchyResolver
func NewGormHierarchyResolver(db *gorm.DB) *GormHierarchyResolver {
	return &GormHierarchyResolver{db: db}
}

// ResolveHierarchy implements access.HierarchyResolver
func (r *GormHierarchyResolver) ResolveHierarchy(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	if err := conn(ctx, r.db).Raw(hierarchySQL, userID).Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("resolve hierarchy of user %d: %w", userID, err)
	}
	if !slices.Contains(ids, userID) {
		ids = append(ids, userID)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// NewHierarchyResolver picks the recursive query or the iterative fallback
func NewHierarchyResolver(db *gorm.DB, recursive bool) access.HierarchyResolver {
	if recursive {
		return NewGormHierarchyResolver(db)
	}
	return access.NewFixedPointResolver(NewGormUserRepository(db))
}

var _ access.HierarchyResolver = (*GormHierarchyResolver)(nil)
