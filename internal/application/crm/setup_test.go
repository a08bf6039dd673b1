package crm

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testOrg maps user → manager (0 for roots):
//
//	1 (admin)
//	├── 2 (manager) ── 3 (agent)
//	└── 5 (manager) ── 6 (agent)
var testOrg = map[int64]int64{1: 0, 2: 1, 3: 2, 5: 1, 6: 5}

type fixture struct {
	db         *gorm.DB
	leadRepo   *persistence.GormLeadRepository
	clientRepo *persistence.GormClientRepository
	activities *persistence.GormActivityRepository
	audit      *faultyActivities
	leads      *LeadService
	clients    *ClientService
}

// faultyActivities fails Append with err once err is set. The primary write
// has already happened by then, so the surrounding transaction must undo it.
type faultyActivities struct {
	crm.ActivityRepository
	err error
}

func (a *faultyActivities) Append(ctx context.Context, activity *crm.Activity) error {
	if a.err != nil {
		return a.err
	}
	return a.ActivityRepository.Append(ctx, activity)
}

func newFixture(t *testing.T) *fixture {
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

	for id := range testOrg {
		require.NoError(t, db.Create(&models.UserModel{
			BaseModel: models.BaseModel{ID: id, CreatedAt: time.Now(), UpdatedAt: time.Now()},
			Name:      "user",
			Email:     "user" + strconv.FormatInt(id, 10) + "@example.com",
			RoleRank:  identity.RankAgent,
			Status:    identity.UserStatusActive,
		}).Error)
	}
	for id, manager := range testOrg {
		if manager != 0 {
			require.NoError(t, db.Model(&models.UserModel{}).Where("id = ?", id).Update("manager_id", manager).Error)
		}
	}

	f := &fixture{
		db:         db,
		leadRepo:   persistence.NewGormLeadRepository(db),
		clientRepo: persistence.NewGormClientRepository(db),
		activities: persistence.NewGormActivityRepository(db),
	}
	f.audit = &faultyActivities{ActivityRepository: f.activities}
	resolver := persistence.NewGormHierarchyResolver(db)
	scoper := access.NewScoper(resolver, f.leadRepo)
	gate := access.NewGate(resolver, scoper, f.leadRepo, f.clientRepo)
	recorder := crm.NewActivityRecorder(f.audit)
	tx := persistence.NewTxManager(db)

	f.leads = NewLeadService(f.leadRepo, f.clientRepo, scoper, gate,
		persistence.NewGormDuplicateChecker(db), recorder, tx, zap.NewNop())
	f.clients = NewClientService(f.clientRepo, f.leadRepo, scoper, gate, recorder, tx, zap.NewNop())
	return f
}

func (f *fixture) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func (f *fixture) createLead(t *testing.T, p identity.Principal, in crm.LeadInput) *LeadDTO {
	t.Helper()
	dto, err := f.leads.Create(context.Background(), p, in)
	require.NoError(t, err)
	return dto
}

var (
	adminP   = identity.Principal{UserID: 1, RoleRank: identity.RankAdmin}
	manager2 = identity.Principal{UserID: 2, RoleRank: identity.RankManager}
	agent3   = identity.Principal{UserID: 3, RoleRank: identity.RankAgent}
	manager5 = identity.Principal{UserID: 5, RoleRank: identity.RankManager}
	agent6   = identity.Principal{UserID: 6, RoleRank: identity.RankAgent}
)
