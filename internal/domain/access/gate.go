package access

import (
	"context"
	"errors"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
)

// Guard failure messages
const (
	MsgTargetOutsideBranch = "User is outside your branch"
	MsgRankTooHigh         = "cannot create equal-or-higher role"
	MsgManagerOutside      = "manager must be in your branch"
	MsgRankRequired        = "role_rank and manager_id are required"
	MsgManagerCycle        = "manager change would create a reporting cycle"
)

// CreateUserRequest holds the guarded fields of a user creation
type CreateUserRequest struct {
	RoleRank  *int
	ManagerID *int64
}

// LeadFinder loads a lead restricted to scope
type LeadFinder interface {
	FindByID(ctx context.Context, id int64, scope shared.Predicate) (*crm.Lead, error)
}

// ClientFinder loads a client restricted to scope
type ClientFinder interface {
	FindByID(ctx context.Context, id int64, scope shared.Predicate) (*crm.Client, error)
}

// Gate evaluates authorization guards. It holds no state of its own;
// every decision is computed from the principal and the target.
// Administrative principals pass every guard before any hierarchy lookup.
type Gate struct {
	resolver HierarchyResolver
	scoper   *Scoper
	leads    LeadFinder
	clients  ClientFinder
}

// NewGate creates a Gate
func NewGate(resolver HierarchyResolver, scoper *Scoper, leads LeadFinder, clients ClientFinder) *Gate {
	return &Gate{resolver: resolver, scoper: scoper, leads: leads, clients: clients}
}

// CheckAccess guards reads, updates and deletes of a specific user
func (g *Gate) CheckAccess(ctx context.Context, p identity.Principal, targetID int64) error {
	if p.IsAdmin() {
		return nil
	}
	h, err := g.scoper.Hierarchy(ctx, p)
	if err != nil {
		return err
	}
	if !InHierarchy(h, targetID) {
		return shared.Forbidden(MsgTargetOutsideBranch)
	}
	return nil
}

// CheckCreate guards user creation. Presence of rank and manager is checked
// first so that the rank and branch comparisons are always well-defined.
func (g *Gate) CheckCreate(ctx context.Context, p identity.Principal, req CreateUserRequest) error {
	if p.IsAdmin() {
		return nil
	}
	if req.RoleRank == nil || req.ManagerID == nil {
		return shared.BadRequest(MsgRankRequired)
	}
	if !p.Outranks(*req.RoleRank) {
		return shared.Forbidden(MsgRankTooHigh)
	}
	h, err := g.scoper.Hierarchy(ctx, p)
	if err != nil {
		return err
	}
	if !InHierarchy(h, *req.ManagerID) {
		return shared.Forbidden(MsgManagerOutside)
	}
	return nil
}

// CheckUpdate guards modification of a specific user. Nil fields are unchanged.
func (g *Gate) CheckUpdate(ctx context.Context, p identity.Principal, targetID int64, newRank *int, newManager *int64) error {
	if p.IsAdmin() {
		return nil
	}
	h, err := g.scoper.Hierarchy(ctx, p)
	if err != nil {
		return err
	}
	if !InHierarchy(h, targetID) {
		return shared.Forbidden(MsgTargetOutsideBranch)
	}
	if newRank != nil && !p.Outranks(*newRank) {
		return shared.Forbidden(MsgRankTooHigh)
	}
	if newManager != nil && !InHierarchy(h, *newManager) {
		return shared.Forbidden(MsgManagerOutside)
	}
	return nil
}

// CheckNoCycle rejects making newManager the manager of targetID when
// newManager already reports, directly or not, to targetID.
// It applies to administrators too.
func (g *Gate) CheckNoCycle(ctx context.Context, targetID int64, newManager *int64) error {
	if newManager == nil {
		return nil
	}
	if *newManager == targetID {
		return shared.BadRequest(MsgManagerCycle)
	}
	below, err := g.resolver.ResolveHierarchy(ctx, targetID)
	if err != nil {
		return err
	}
	if InHierarchy(below, *newManager) {
		return shared.BadRequest(MsgManagerCycle)
	}
	return nil
}

// LeadAccessible loads a lead visible to p. Out-of-scope leads are reported
// as not found so their existence is not leaked.
func (g *Gate) LeadAccessible(ctx context.Context, p identity.Principal, leadID int64) (*crm.Lead, error) {
	scope, err := g.scoper.LeadScope(ctx, p)
	if err != nil {
		return nil, err
	}
	lead, err := g.leads.FindByID(ctx, leadID, scope)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NotFound("Lead not found")
		}
		return nil, err
	}
	return lead, nil
}

// ClientAccessible loads a client visible to p, with the same not-found
// semantics as LeadAccessible.
func (g *Gate) ClientAccessible(ctx context.Context, p identity.Principal, clientID int64) (*crm.Client, error) {
	scope, err := g.scoper.ClientScope(ctx, p)
	if err != nil {
		return nil, err
	}
	if shared.IsMatchNone(scope) {
		return nil, shared.NotFound("Client not found")
	}
	client, err := g.clients.FindByID(ctx, clientID, scope)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NotFound("Client not found")
		}
		return nil, err
	}
	return client, nil
}
