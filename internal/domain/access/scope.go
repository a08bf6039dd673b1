package access

import (
	"context"
	"fmt"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
)

// Scoped column names. Storage adapters whitelist exactly these.
const (
	FieldID         = "id"
	FieldCreatedBy  = "created_by"
	FieldAssignedTo = "assigned_to"
	FieldLeadID     = "lead_id"
)

// LeadIDLister returns the ids of the leads matching scope
type LeadIDLister interface {
	ListIDs(ctx context.Context, scope shared.Predicate) ([]int64, error)
}

// UserPredicate restricts users to the hierarchy h
func UserPredicate(h []int64) shared.Predicate {
	return shared.NewInInt64(FieldID, h)
}

// LeadPredicate restricts leads to those created by or assigned to a member of h.
// assigned_to is text, so the hierarchy is compared in its decimal form.
func LeadPredicate(h []int64) shared.Predicate {
	return shared.Or{Predicates: []shared.Predicate{
		shared.NewInInt64(FieldCreatedBy, h),
		shared.NewInString(FieldAssignedTo, shared.Int64sToStrings(h)),
	}}
}

// ClientPredicate restricts clients to those converted from leadIDs
func ClientPredicate(leadIDs []int64) shared.Predicate {
	if len(leadIDs) == 0 {
		return shared.MatchNone{}
	}
	return shared.NewInInt64(FieldLeadID, leadIDs)
}

// Scoper builds the scope predicate of a principal for each entity type.
// Administrative principals get MatchAll before any hierarchy is resolved.
type Scoper struct {
	resolver HierarchyResolver
	leads    LeadIDLister
}

// NewScoper creates a Scoper
func NewScoper(resolver HierarchyResolver, leads LeadIDLister) *Scoper {
	return &Scoper{resolver: resolver, leads: leads}
}

// Hierarchy resolves the principal's closure
func (s *Scoper) Hierarchy(ctx context.Context, p identity.Principal) ([]int64, error) {
	h, err := s.resolver.ResolveHierarchy(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve hierarchy of user %d: %w", p.UserID, err)
	}
	return h, nil
}

// UserScope returns the predicate over users visible to p
func (s *Scoper) UserScope(ctx context.Context, p identity.Principal) (shared.Predicate, error) {
	if p.IsAdmin() {
		return shared.MatchAll{}, nil
	}
	h, err := s.Hierarchy(ctx, p)
	if err != nil {
		return nil, err
	}
	return UserPredicate(h), nil
}

// LeadScope returns the predicate over leads visible to p
func (s *Scoper) LeadScope(ctx context.Context, p identity.Principal) (shared.Predicate, error) {
	if p.IsAdmin() {
		return shared.MatchAll{}, nil
	}
	h, err := s.Hierarchy(ctx, p)
	if err != nil {
		return nil, err
	}
	return LeadPredicate(h), nil
}

// ClientScope returns the predicate over clients visible to p.
// It resolves in two steps: in-scope lead ids first, then lead_id membership.
// No in-scope leads yields MatchNone.
func (s *Scoper) ClientScope(ctx context.Context, p identity.Principal) (shared.Predicate, error) {
	if p.IsAdmin() {
		return shared.MatchAll{}, nil
	}
	leadScope, err := s.LeadScope(ctx, p)
	if err != nil {
		return nil, err
	}
	ids, err := s.leads.ListIDs(ctx, leadScope)
	if err != nil {
		return nil, fmt.Errorf("list in-scope leads: %w", err)
	}
	return ClientPredicate(ids), nil
}
