// Package access implements hierarchical authorization: the hierarchy
// resolver contract, scope predicate construction and the guards applied
// before every user, lead and client operation.
package access

import (
	"context"
	"fmt"
	"slices"
)

// HierarchyResolver returns the closure of userID over "reports to" edges.
// The result always contains userID, is sorted ascending, and is finite even
// when the manager graph contains cycles. An unknown user resolves to {userID}.
type HierarchyResolver interface {
	ResolveHierarchy(ctx context.Context, userID int64) ([]int64, error)
}

// SubordinateLister returns the direct reports of any of managerIDs
type SubordinateLister interface {
	ListSubordinateIDs(ctx context.Context, managerIDs []int64) ([]int64, error)
}

// FixedPointResolver computes the closure by expanding a frontier one level
// per round trip until no unseen user is found.
type FixedPointResolver struct {
	lister SubordinateLister
}

// NewFixedPointResolver creates a resolver over lister
func NewFixedPointResolver(lister SubordinateLister) *FixedPointResolver {
	return &FixedPointResolver{lister: lister}
}

// ResolveHierarchy implements HierarchyResolver
func (r *FixedPointResolver) ResolveHierarchy(ctx context.Context, userID int64) ([]int64, error) {
	visited := map[int64]struct{}{userID: {}}
	frontier := []int64{userID}

	for len(frontier) > 0 {
		children, err := r.lister.ListSubordinateIDs(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("list subordinates: %w", err)
		}
		next := make([]int64, 0, len(children))
		for _, id := range children {
			if _, seen := visited[id]; seen {
				continue
			}
			visited[id] = struct{}{}
			next = append(next, id)
		}
		frontier = next
	}

	out := make([]int64, 0, len(visited))
	for id := range visited {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

// InHierarchy reports whether id belongs to the sorted closure h
func InHierarchy(h []int64, id int64) bool {
	_, found := slices.BinarySearch(h, id)
	return found
}

var _ HierarchyResolver = (*FixedPointResolver)(nil)
