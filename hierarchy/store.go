package hierarchy

import (
	"context"

	"github.com/xraph/bastion/id"
)

// Store defines persistence operations for role-inheritance edges.
type Store interface {
	// AddRoleEdge persists a new edge. It fails with a cycle error when
	// the parent can already reach the child; the graph is unchanged on
	// failure.
	AddRoleEdge(ctx context.Context, e *Edge) error

	// RemoveRoleEdge removes an edge by ID.
	RemoveRoleEdge(ctx context.Context, edgeID id.EdgeID) error

	// ListEdges returns edges matching the filter.
	ListEdges(ctx context.Context, filter *ListFilter) ([]*Edge, error)
}
