package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crm/backend/internal/domain/access"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// chart: 1 ← 2 ← {3, 4}, 4 ← 5, 6 ← 7, and the cycle 8 ↔ 9
var hierarchyChart = map[int64]int64{
	1: 0,
	2: 1,
	3: 2,
	4: 2,
	5: 4,
	6: 0,
	7: 6,
	8: 9,
	9: 8,
}

func TestGormHierarchyResolver_ResolveHierarchy(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db, hierarchyChart)
	resolver := NewGormHierarchyResolver(db)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID int64
		want   []int64
	}{
		{"top of the tree sees everyone below", 1, []int64{1, 2, 3, 4, 5}},
		{"middle manager sees own branch", 2, []int64{2, 3, 4, 5}},
		{"leaf sees only self", 3, []int64{3}},
		{"separate tree", 6, []int64{6, 7}},
		{"cycle terminates", 8, []int64{8, 9}},
		{"unknown user resolves to self", 42, []int64{42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.ResolveHierarchy(ctx, tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHierarchyResolvers_Agree(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db, hierarchyChart)
	ctx := context.Background()

	recursive := NewHierarchyResolver(db, true)
	iterative := NewHierarchyResolver(db, false)
	assert.IsType(t, &GormHierarchyResolver{}, recursive)
	assert.IsType(t, &access.FixedPointResolver{}, iterative)

	for id := range hierarchyChart {
		want, err := recursive.ResolveHierarchy(ctx, id)
		require.NoError(t, err)
		got, err := iterative.ResolveHierarchy(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got, "user %d", id)
	}
}

func TestGormHierarchyResolver_Postgres(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	resolver := NewGormHierarchyResolver(gormDB)

	t.Run("runs one recursive query and sorts the result", func(t *testing.T) {
		mock.ExpectQuery(`WITH RECURSIVE subordinates\(id\) AS \(\s+SELECT CAST\(\$1 AS BIGINT\)\s+UNION\s+SELECT u.id FROM users u`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7).AddRow(12).AddRow(9))

		got, err := resolver.ResolveHierarchy(context.Background(), 7)

		require.NoError(t, err)
		assert.Equal(t, []int64{7, 9, 12}, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps query errors", func(t *testing.T) {
		mock.ExpectQuery(`WITH RECURSIVE`).
			WithArgs(int64(7)).
			WillReturnError(errors.New("connection reset"))

		_, err := resolver.ResolveHierarchy(context.Background(), 7)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "resolve hierarchy of user 7")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
