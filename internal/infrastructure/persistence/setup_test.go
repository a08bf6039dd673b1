package persistence

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a migrated in-memory SQLite database
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// seedUsers inserts users from a user→manager chart (0 means no manager)
func seedUsers(t *testing.T, db *gorm.DB, chart map[int64]int64) {
	t.Helper()
	for id := range chart {
		require.NoError(t, db.Create(&models.UserModel{
			BaseModel: models.BaseModel{ID: id, CreatedAt: time.Now(), UpdatedAt: time.Now()},
			Name:      "user",
			Email:     "user" + itoa(id) + "@example.com",
			RoleRank:  identity.RankAgent,
			Status:    identity.UserStatusActive,
		}).Error)
	}
	// Managers are set afterwards so cycles can be expressed
	for id, manager := range chart {
		if manager == 0 {
			continue
		}
		require.NoError(t, db.Model(&models.UserModel{}).
			Where("id = ?", id).
			Update("manager_id", manager).Error)
	}
}

// seedLead creates a lead through the repository
func seedLead(t *testing.T, repo *GormLeadRepository, createdBy int64, in crm.LeadInput) *crm.Lead {
	t.Helper()
	lead, err := crm.NewLead(createdBy, in)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), lead))
	return lead
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
