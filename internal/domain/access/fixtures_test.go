package access

import (
	"context"
	"errors"
	"slices"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/shared"
)

// orgChart maps a user id to its manager id
type orgChart map[int64]int64

func (o orgChart) ListSubordinateIDs(_ context.Context, managerIDs []int64) ([]int64, error) {
	var out []int64
	for id, mgr := range o {
		if slices.Contains(managerIDs, mgr) {
			out = append(out, id)
		}
	}
	return out, nil
}

type failingLister struct{}

func (failingLister) ListSubordinateIDs(context.Context, []int64) ([]int64, error) {
	return nil, errors.New("connection refused")
}

// countingResolver records how often a hierarchy was resolved
type countingResolver struct {
	inner HierarchyResolver
	calls int
}

func (c *countingResolver) ResolveHierarchy(ctx context.Context, id int64) ([]int64, error) {
	c.calls++
	return c.inner.ResolveHierarchy(ctx, id)
}

// leadTable evaluates predicates in memory over a fixed set of leads
type leadTable []*crm.Lead

func (t leadTable) ListIDs(_ context.Context, scope shared.Predicate) ([]int64, error) {
	var ids []int64
	for _, l := range t {
		if matches(scope, map[string]any{FieldID: l.ID, FieldCreatedBy: l.CreatedBy, FieldAssignedTo: l.AssignedTo}) {
			ids = append(ids, l.ID)
		}
	}
	return ids, nil
}

func (t leadTable) FindByID(_ context.Context, id int64, scope shared.Predicate) (*crm.Lead, error) {
	for _, l := range t {
		if l.ID == id && matches(scope, map[string]any{FieldID: l.ID, FieldCreatedBy: l.CreatedBy, FieldAssignedTo: l.AssignedTo}) {
			return l, nil
		}
	}
	return nil, shared.ErrNotFound
}

type clientTable []*crm.Client

func (t clientTable) FindByID(_ context.Context, id int64, scope shared.Predicate) (*crm.Client, error) {
	for _, c := range t {
		if c.ID == id && matches(scope, map[string]any{FieldID: c.ID, FieldLeadID: c.LeadID}) {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func matches(p shared.Predicate, row map[string]any) bool {
	switch v := p.(type) {
	case nil, shared.MatchAll:
		return true
	case shared.MatchNone:
		return false
	case shared.InInt64:
		n, ok := row[v.Field].(int64)
		return ok && slices.Contains(v.Values, n)
	case shared.InString:
		s, ok := row[v.Field].(string)
		return ok && slices.Contains(v.Values, s)
	case shared.Or:
		for _, c := range v.Predicates {
			if matches(c, row) {
				return true
			}
		}
		return false
	case shared.And:
		for _, c := range v.Predicates {
			if !matches(c, row) {
				return false
			}
		}
		return true
	}
	return false
}

func lead(id, createdBy int64, assignedTo string) *crm.Lead {
	l := &crm.Lead{CreatedBy: createdBy, AssignedTo: assignedTo}
	l.ID = id
	return l
}

func client(id, leadID int64) *crm.Client {
	c := &crm.Client{LeadID: leadID}
	c.ID = id
	return c
}

// testChart is:
//
//	1 (admin)
//	└─ 2 (manager)
//	   ├─ 3 (agent)
//	   └─ 4 (agent)
//	      └─ 5 (agent)
//	6 (manager, separate tree)
//	└─ 7
func testChart() orgChart {
	return orgChart{2: 1, 3: 2, 4: 2, 5: 4, 7: 6}
}
