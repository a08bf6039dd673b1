package identity

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// faultyActivities fails every Append with err once err is set
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

type dbUserFixture struct {
	db    *gorm.DB
	users *persistence.GormUserRepository
	leads *persistence.GormLeadRepository
	audit *faultyActivities
	svc   *UserService
}

// newDBUserFixture seeds 1 (admin) ── 2 (manager) ── 3 (agent) in sqlite and
// wires the service to the real transaction manager
func newDBUserFixture(t *testing.T) *dbUserFixture {
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

	ranks := map[int64]int{1: identity.RankAdmin, 2: identity.RankManager, 3: identity.RankAgent}
	for id, rank := range ranks {
		require.NoError(t, db.Create(&models.UserModel{
			BaseModel: models.BaseModel{ID: id, CreatedAt: time.Now(), UpdatedAt: time.Now()},
			Name:      "User " + strconv.FormatInt(id, 10),
			Email:     "user" + strconv.FormatInt(id, 10) + "@example.com",
			RoleRank:  rank,
			Status:    identity.UserStatusActive,
		}).Error)
	}
	require.NoError(t, db.Model(&models.UserModel{}).Where("id = ?", 2).Update("manager_id", 1).Error)
	require.NoError(t, db.Model(&models.UserModel{}).Where("id = ?", 3).Update("manager_id", 2).Error)

	f := &dbUserFixture{
		db:    db,
		users: persistence.NewGormUserRepository(db),
		leads: persistence.NewGormLeadRepository(db),
		audit: &faultyActivities{ActivityRepository: persistence.NewGormActivityRepository(db)},
	}
	resolver := persistence.NewGormHierarchyResolver(db)
	scoper := access.NewScoper(resolver, f.leads)
	gate := access.NewGate(resolver, scoper, f.leads, persistence.NewGormClientRepository(db))
	f.svc = NewUserService(
		f.users, f.leads, resolver, scoper, gate,
		auth.NewPasswordHasher(testHashParams),
		crm.NewActivityRecorder(f.audit),
		persistence.NewTxManager(db), zap.NewNop(),
	)
	return f
}

func (f *dbUserFixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestUserService_AuditFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	errAudit := errors.New("activity store unavailable")

	t.Run("create", func(t *testing.T) {
		f := newDBUserFixture(t)
		f.audit.err = errAudit

		_, err := f.svc.Create(ctx, admin, CreateUserInput{
			Name: "Dana", Email: "dana@example.com", Password: "Password123",
			RoleRank: intPtr(identity.RankAgent), ManagerID: idPtr(2),
		})

		assert.ErrorIs(t, err, errAudit)
		assert.Equal(t, int64(3), f.count(t, &models.UserModel{}))
		_, err = f.users.FindByEmail(ctx, "dana@example.com")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Zero(t, f.count(t, &models.ActivityModel{}))
	})

	t.Run("update", func(t *testing.T) {
		f := newDBUserFixture(t)
		f.audit.err = errAudit

		name := "Renamed"
		_, err := f.svc.Patch(ctx, admin, 3, PatchUserInput{Name: &name, ManagerID: idPtr(1)})

		assert.ErrorIs(t, err, errAudit)
		stored, err := f.users.FindByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "User 3", stored.Name)
		require.NotNil(t, stored.ManagerID)
		assert.Equal(t, int64(2), *stored.ManagerID)
		assert.Zero(t, f.count(t, &models.ActivityModel{}))
	})

	t.Run("delete", func(t *testing.T) {
		f := newDBUserFixture(t)
		lead, err := crm.NewLead(3, crm.LeadInput{FirstName: "Ann", LastName: "Lee", AssignedTo: "3"})
		require.NoError(t, err)
		require.NoError(t, f.leads.Create(ctx, lead))
		f.audit.err = errAudit

		err = f.svc.Delete(ctx, mgr(2), 3)

		assert.ErrorIs(t, err, errAudit)
		_, err = f.users.FindByID(ctx, 3)
		assert.NoError(t, err, "user row is restored")
		stored, err := f.leads.FindByID(ctx, lead.ID, shared.MatchAll{})
		require.NoError(t, err)
		assert.Equal(t, "3", stored.AssignedTo, "lead reassignment is undone")
		assert.Zero(t, f.count(t, &models.ActivityModel{}))
	})

	t.Run("succeeds once the audit store recovers", func(t *testing.T) {
		f := newDBUserFixture(t)

		require.NoError(t, f.svc.Delete(ctx, mgr(2), 3))
		_, err := f.users.FindByID(ctx, 3)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, int64(1), f.count(t, &models.ActivityModel{}))
	})
}
