package cache

import (
	"context"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/persistence"
)

// scopeArgs keys reads that depend only on a scope predicate
type scopeArgs struct {
	Scope shared.Predicate `json:"scope"`
}

// idArgs keys single-record reads
type idArgs struct {
	ID    int64            `json:"id"`
	Scope shared.Predicate `json:"scope,omitempty"`
}

// CachedUserRepository decorates a UserRepository with the query cache
type CachedUserRepository struct {
	next  identity.UserRepository
	cache *QueryCache
}

// NewCachedUserRepository wraps next
func NewCachedUserRepository(next identity.UserRepository, cache *QueryCache) *CachedUserRepository {
	return &CachedUserRepository{next: next, cache: cache}
}

func (r *CachedUserRepository) Create(ctx context.Context, user *identity.User) error {
	if err := r.next.Create(ctx, user); err != nil {
		return err
	}
	r.cache.OnWrite(ctx, EntityUser, OpCreate)
	return nil
}

func (r *CachedUserRepository) Update(ctx context.Context, user *identity.User) error {
	if err := r.next.Update(ctx, user); err != nil {
		return err
	}
	r.cache.OnWrite(ctx, EntityUser, OpUpdate)
	return nil
}

func (r *CachedUserRepository) Delete(ctx context.Context, id int64) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.cache.OnWrite(ctx, EntityUser, OpDelete)
	return nil
}

// FindByID serves the user from the cache. Cached users never carry a
// password hash; inside a transaction the full row is loaded.
func (r *CachedUserRepository) FindByID(ctx context.Context, id int64) (*identity.User, error) {
	return Fetch(ctx, r.cache, EntityUser, OpGet, idArgs{ID: id}, func(ctx context.Context) (*identity.User, error) {
		user, err := r.next.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return cacheable(ctx, user), nil
	})
}

// FindByEmail is the credential lookup used by login and always reads the
// database.
func (r *CachedUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	return r.next.FindByEmail(ctx, email)
}

func (r *CachedUserRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	args := map[string]any{"email": identity.NormalizeEmail(email), "exclude": excludeID}
	return Fetch(ctx, r.cache, EntityUser, OpCount, args, func(ctx context.Context) (bool, error) {
		return r.next.ExistsByEmail(ctx, email, excludeID)
	})
}

func (r *CachedUserRepository) List(ctx context.Context, filter identity.UserFilter) ([]*identity.User, error) {
	return Fetch(ctx, r.cache, EntityUser, OpList, filter, func(ctx context.Context) ([]*identity.User, error) {
		users, err := r.next.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		for i, u := range users {
			users[i] = cacheable(ctx, u)
		}
		return users, nil
	})
}

// cacheable returns user without its password hash when the result may be
// stored in the cache. Transactions bypass the cache and need the full row,
// since repositories write every column back on update.
func cacheable(ctx context.Context, user *identity.User) *identity.User {
	if persistence.InTransaction(ctx) || user == nil {
		return user
	}
	c := *user
	c.PasswordHash = ""
	return &c
}

func (r *CachedUserRepository) ListSubordinateIDs(ctx context.Context, managerIDs []int64) ([]int64, error) {
	args := map[string][]int64{"managers": managerIDs}
	return Fetch(ctx, r.cache, EntityUser, OpIDs, args, func(ctx context.Context) ([]int64, error) {
		return r.next.ListSubordinateIDs(ctx, managerIDs)
	})
}

func (r *CachedUserRepository) ReassignSubordinates(ctx context.Context, fromManager int64, toManager *int64) (int64, error) {
	n, err := r.next.ReassignSubordinates(ctx, fromManager, toManager)
	if err != nil {
		return 0, err
	}
	r.cache.OnWrite(ctx, EntityUser, OpBulkUpdate)
	return n, nil
}

// CachedHierarchyResolver serves resolved hierarchies from the query cache
type CachedHierarchyResolver struct {
	next  access.HierarchyResolver
	cache *QueryCache
}

// NewCachedHierarchyResolver wraps next
func NewCachedHierarchyResolver(next access.HierarchyResolver, cache *QueryCache) *CachedHierarchyResolver {
	return &CachedHierarchyResolver{next: next, cache: cache}
}

// ResolveHierarchy implements access.HierarchyResolver
func (r *CachedHierarchyResolver) ResolveHierarchy(ctx context.Context, userID int64) ([]int64, error) {
	args := map[string]int64{"user_id": userID}
	return Fetch(ctx, r.cache, EntityUser, OpHierarchy, args, func(ctx context.Context) ([]int64, error) {
		return r.next.ResolveHierarchy(ctx, userID)
	})
}

// CachedLeadRepository decorates a LeadRepository with the query cache
type CachedLeadRepository struct {
	next  crm.LeadRepository
	cache *QueryCache
}

// NewCachedLeadRepository wraps next
func NewCachedLeadRepository(next crm.LeadRepository, cache *QueryCache) *CachedLeadRepository {
	return &CachedLeadRepository{next: next, cache: cache}
}

func (r *CachedLeadRepository) Create(ctx context.Context, lead *crm.Lead) error {
	if err := r.next.Create(ctx, lead); err != nil {
		return err
	}
	r.cache.OnWrite(ctx, EntityLead, OpCreate)
	return nil
}

func (r *CachedLeadRepository) Update(ctx context.Context, lead *crm.Lead) error {
	if err := r.next.Update(ctx, lead); err != nil {
		return err
	}
	r.cache.OnWrite(ctx, EntityLead, OpUpdate)
	return nil
}

func (r *CachedLeadRepository) Delete(ctx context.Context, id int64) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.cache.OnWrite(ctx, EntityLead, OpDelete)
	return nil
}

func (r *CachedLeadRepository) FindByID(ctx context.Context, id int64, scope shared.Predicate) (*crm.Lead, error) {
	return Fetch(ctx, r.cache, EntityLead, OpGet, idArgs{ID: id, Scope: scope}, func(ctx context.Context) (*crm.Lead, error) {
		return r.next.FindByID(ctx, id, scope)
	})
}

func (r *CachedLeadRepository) List(ctx context.Context, filter crm.LeadFilter) ([]*crm.Lead, error) {
	return Fetch(ctx, r.cache, EntityLead, OpList, filter, func(ctx context.Context) ([]*crm.Lead, error) {
		return r.next.List(ctx, filter)
	})
}

func (r *CachedLeadRepository) ListIDs(ctx context.Context, scope shared.Predicate) ([]int64, error) {
	return Fetch(ctx, r.cache, EntityLead, OpIDs, scopeArgs{Scope: scope}, func(ctx context.Context) ([]int64, error) {
		return r.next.ListIDs(ctx, scope)
	})
}

func (r *CachedLeadRepository) Count(ctx context.Context, scope shared.Predicate) (int64, error) {
	return Fetch(ctx, r.cache, EntityLead, OpCount, scopeArgs{Scope: scope}, func(ctx context.Context) (int64, error) {
		return r.next.Count(ctx, scope)
	})
}

func (r *CachedLeadRepository) CountByStatus(ctx context.Context, scope shared.Predicate) (map[crm.LeadStatus]int64, error) {
	return Fetch(ctx, r.cache, EntityLead, OpGroup, scopeArgs{Scope: scope}, func(ctx context.Context) (map[crm.LeadStatus]int64, error) {
		return r.next.CountByStatus(ctx, scope)
	})
}

func (r *CachedLeadRepository) ReassignAssignee(ctx context.Context, from, to string) (int64, error) {
	n, err := r.next.ReassignAssignee(ctx, from, to)
	if err != nil {
		return 0, err
	}
	r.cache.OnWrite(ctx, EntityLead, OpBulkUpdate)
	return n, nil
}

// CachedClientRepository decorates a ClientRepository with the query cache
type CachedClientRepository struct {
	next  crm.ClientRepository
	cache *QueryCache
}

// NewCachedClientRepository wraps next
func NewCachedClientRepository(next crm.ClientRepository, cache *QueryCache) *CachedClientRepository {
	return &CachedClientRepository{next: next, cache: cache}
}

func (r *CachedClientRepository) Create(ctx context.Context, client *crm.Client) error {
	if err := r.next.Create(ctx, client); err != nil {
		return err
	}
	r.cache.OnWrite(ctx, EntityClient, OpCreate)
	return nil
}

func (r *CachedClientRepository) Update(ctx context.Context, client *crm.Client) error {
	if err := r.next.Update(ctx, client); err != nil {
		return err
	}
	r.cache.OnWrite(ctx, EntityClient, OpUpdate)
	return nil
}

func (r *CachedClientRepository) Delete(ctx context.Context, id int64) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.cache.OnWrite(ctx, EntityClient, OpDelete)
	return nil
}

func (r *CachedClientRepository) FindByID(ctx context.Context, id int64, scope shared.Predicate) (*crm.Client, error) {
	return Fetch(ctx, r.cache, EntityClient, OpGet, idArgs{ID: id, Scope: scope}, func(ctx context.Context) (*crm.Client, error) {
		return r.next.FindByID(ctx, id, scope)
	})
}

func (r *CachedClientRepository) List(ctx context.Context, filter crm.ClientFilter) ([]*crm.Client, error) {
	return Fetch(ctx, r.cache, EntityClient, OpList, filter, func(ctx context.Context) ([]*crm.Client, error) {
		return r.next.List(ctx, filter)
	})
}

func (r *CachedClientRepository) ExistsForLead(ctx context.Context, leadID int64) (bool, error) {
	args := map[string]int64{"lead_id": leadID}
	return Fetch(ctx, r.cache, EntityClient, OpCount, args, func(ctx context.Context) (bool, error) {
		return r.next.ExistsForLead(ctx, leadID)
	})
}

// CachedRoleRepository caches role and permission reads. Its writes go
// through raw SQL, so freshness relies on the FlushingExecutor.
type CachedRoleRepository struct {
	next  identity.RoleRepository
	cache *QueryCache
}

// NewCachedRoleRepository wraps next
func NewCachedRoleRepository(next identity.RoleRepository, cache *QueryCache) *CachedRoleRepository {
	return &CachedRoleRepository{next: next, cache: cache}
}

func (r *CachedRoleRepository) ListRoles(ctx context.Context) ([]identity.Role, error) {
	return Fetch(ctx, r.cache, EntityRole, OpList, "roles", r.next.ListRoles)
}

func (r *CachedRoleRepository) FindRole(ctx context.Context, id int) (*identity.Role, error) {
	return Fetch(ctx, r.cache, EntityRole, OpGet, map[string]int{"id": id}, func(ctx context.Context) (*identity.Role, error) {
		return r.next.FindRole(ctx, id)
	})
}

func (r *CachedRoleRepository) ListPermissions(ctx context.Context) ([]identity.Permission, error) {
	return Fetch(ctx, r.cache, EntityRole, OpList, "permissions", r.next.ListPermissions)
}

func (r *CachedRoleRepository) ListRolePermissions(ctx context.Context, roleID int) ([]identity.Permission, error) {
	args := map[string]int{"role_permissions": roleID}
	return Fetch(ctx, r.cache, EntityRole, OpList, args, func(ctx context.Context) ([]identity.Permission, error) {
		return r.next.ListRolePermissions(ctx, roleID)
	})
}

func (r *CachedRoleRepository) ReplaceRolePermissions(ctx context.Context, roleID int, permissionIDs []int64) error {
	return r.next.ReplaceRolePermissions(ctx, roleID, permissionIDs)
}

func (r *CachedRoleRepository) ListComponentAccess(ctx context.Context) ([]identity.ComponentAccess, error) {
	return Fetch(ctx, r.cache, EntityRole, OpList, "component_access", r.next.ListComponentAccess)
}

func (r *CachedRoleRepository) ListComponentAccessForRole(ctx context.Context, roleID int) ([]identity.ComponentAccess, error) {
	args := map[string]int{"component_access": roleID}
	return Fetch(ctx, r.cache, EntityRole, OpList, args, func(ctx context.Context) ([]identity.ComponentAccess, error) {
		return r.next.ListComponentAccessForRole(ctx, roleID)
	})
}

func (r *CachedRoleRepository) ReplaceComponentAccess(ctx context.Context, entries []identity.ComponentAccess) error {
	return r.next.ReplaceComponentAccess(ctx, entries)
}

var (
	_ identity.UserRepository  = (*CachedUserRepository)(nil)
	_ identity.RoleRepository  = (*CachedRoleRepository)(nil)
	_ access.HierarchyResolver = (*CachedHierarchyResolver)(nil)
	_ crm.LeadRepository       = (*CachedLeadRepository)(nil)
	_ crm.ClientRepository     = (*CachedClientRepository)(nil)
)
