package identity

import (
	"context"
	"slices"
	"sync"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, filter identity.UserFilter) ([]*identity.User, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*identity.User), args.Error(1)
}

func (m *MockUserRepository) ListSubordinateIDs(ctx context.Context, managerIDs []int64) ([]int64, error) {
	args := m.Called(ctx, managerIDs)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockUserRepository) ReassignSubordinates(ctx context.Context, fromManager int64, toManager *int64) (int64, error) {
	args := m.Called(ctx, fromManager, toManager)
	return args.Get(0).(int64), args.Error(1)
}

// MockRoleRepository is a mock implementation of identity.RoleRepository
type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) ListRoles(ctx context.Context) ([]identity.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]identity.Role), args.Error(1)
}

func (m *MockRoleRepository) FindRole(ctx context.Context, id int) (*identity.Role, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Role), args.Error(1)
}

func (m *MockRoleRepository) ListPermissions(ctx context.Context) ([]identity.Permission, error) {
	args := m.Called(ctx)
	return args.Get(0).([]identity.Permission), args.Error(1)
}

func (m *MockRoleRepository) ListRolePermissions(ctx context.Context, roleID int) ([]identity.Permission, error) {
	args := m.Called(ctx, roleID)
	return args.Get(0).([]identity.Permission), args.Error(1)
}

func (m *MockRoleRepository) ReplaceRolePermissions(ctx context.Context, roleID int, permissionIDs []int64) error {
	args := m.Called(ctx, roleID, permissionIDs)
	return args.Error(0)
}

func (m *MockRoleRepository) ListComponentAccess(ctx context.Context) ([]identity.ComponentAccess, error) {
	args := m.Called(ctx)
	return args.Get(0).([]identity.ComponentAccess), args.Error(1)
}

func (m *MockRoleRepository) ListComponentAccessForRole(ctx context.Context, roleID int) ([]identity.ComponentAccess, error) {
	args := m.Called(ctx, roleID)
	return args.Get(0).([]identity.ComponentAccess), args.Error(1)
}

func (m *MockRoleRepository) ReplaceComponentAccess(ctx context.Context, entries []identity.ComponentAccess) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

// MockLeadReassigner is a mock implementation of LeadReassigner
type MockLeadReassigner struct {
	mock.Mock
}

func (m *MockLeadReassigner) ReassignAssignee(ctx context.Context, from, to string) (int64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(int64), args.Error(1)
}

// inlineTx runs fn directly and counts calls
type inlineTx struct {
	calls int
}

func (t *inlineTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

// memoryActivities is an append-only in-memory ActivityRepository
type memoryActivities struct {
	mu   sync.Mutex
	rows []*crm.Activity
}

func (m *memoryActivities) Append(_ context.Context, a *crm.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, a)
	return nil
}

func (m *memoryActivities) ListBySubject(_ context.Context, subject crm.SubjectType, id int64, limit int) ([]*crm.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*crm.Activity
	for _, a := range slices.Backward(m.rows) {
		if a.SubjectType == subject && a.SubjectID == id {
			out = append(out, a)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// chartResolver resolves hierarchies from a static manager map
type chartResolver map[int64]int64

func (c chartResolver) ResolveHierarchy(_ context.Context, userID int64) ([]int64, error) {
	out := []int64{userID}
	for frontier := []int64{userID}; len(frontier) > 0; {
		var next []int64
		for id, mgr := range c {
			if slices.Contains(frontier, mgr) && !slices.Contains(out, id) {
				next = append(next, id)
			}
		}
		out = append(out, next...)
		frontier = next
	}
	slices.Sort(out)
	return out, nil
}

func (c chartResolver) ListIDs(context.Context, shared.Predicate) ([]int64, error) {
	return nil, nil
}
