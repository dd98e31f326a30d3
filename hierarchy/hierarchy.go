// Package hierarchy defines the role-inheritance graph: edges, the
// immutable snapshot used at evaluation time, and the store interface.
//
// Roles are opaque names. An edge Child -> Parent means Child inherits
// every grant that names Parent. A role may have multiple parents. The
// graph is a DAG; stores reject any edge that would create a cycle.
package hierarchy

import (
	"time"

	"github.com/xraph/bastion/id"
)

// Edge is a single inheritance link from a child role to a parent role.
type Edge struct {
	ID        id.EdgeID `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	Child     string    `json:"child" db:"child"`
	Parent    string    `json:"parent" db:"parent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ListFilter contains filters for listing edges.
type ListFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	Child    string `json:"child,omitempty"`
	Parent   string `json:"parent,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Snapshot is an immutable view of the inheritance graph. It is built
// once from a consistent edge list and never mutated; the engine swaps
// a new snapshot in when the hierarchy changes.
type Snapshot struct {
	parents map[string][]string
	edges   int
}

// NewSnapshot builds a snapshot from an edge list.
func NewSnapshot(edges []*Edge) *Snapshot {
	parents := make(map[string][]string, len(edges))
	for _, e := range edges {
		parents[e.Child] = append(parents[e.Child], e.Parent)
	}

	return &Snapshot{parents: parents, edges: len(edges)}
}

// Parents returns the direct parents of a role. The returned slice is
// shared; callers must not modify it.
func (s *Snapshot) Parents(role string) []string {
	return s.parents[role]
}

// Reachable reports whether to is reachable from from by following
// child-to-parent edges. A role is not considered reachable from itself
// unless a path exists.
func (s *Snapshot) Reachable(from, to string) bool {
	seen := make(map[string]struct{})
	frontier := []string{from}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for _, p := range s.parents[cur] {
			if p == to {
				return true
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			frontier = append(frontier, p)
		}
	}

	return false
}

// EdgeCount returns the number of edges in the snapshot.
func (s *Snapshot) EdgeCount() int {
	return s.edges
}
