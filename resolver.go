package bastion

import (
	"fmt"

	"github.com/xraph/bastion/hierarchy"
)

// Resolver computes the effective role set for a subject: its directly
// held roles plus everything reachable through inheritance edges.
type Resolver interface {
	// EffectiveRoles returns the transitive closure of direct over the
	// snapshot's child-to-parent edges. It is a pure function of its
	// inputs. The store guarantees the graph is acyclic; if a cycle is
	// observed anyway the data is corrupt and the resolver fails with
	// ErrIntegrity rather than return a partial answer.
	EffectiveRoles(direct []string, snap *hierarchy.Snapshot) ([]string, error)
}

// DefaultResolver returns the built-in depth-first resolver.
// maxDepth bounds the longest inheritance chain; zero or negative uses
// the default of 32.
func DefaultResolver(maxDepth int) Resolver {
	if maxDepth <= 0 {
		maxDepth = 32
	}
	return &graphResolver{maxDepth: maxDepth}
}

type graphResolver struct {
	maxDepth int
}

const (
	colorWhite = iota
	colorGray
	colorBlack
)

func (r *graphResolver) EffectiveRoles(direct []string, snap *hierarchy.Snapshot) ([]string, error) {
	if len(direct) == 0 {
		return nil, nil
	}

	// Three-color DFS: a gray revisit is a back edge, i.e. a cycle that
	// the store should have rejected. Black revisits are diamonds and
	// are skipped.
	color := make(map[string]int, len(direct))
	out := make([]string, 0, len(direct))

	var visit func(role string, depth int) error
	visit = func(role string, depth int) error {
		switch color[role] {
		case colorGray:
			return fmt.Errorf("role %q participates in an inheritance cycle: %w", role, ErrIntegrity)
		case colorBlack:
			return nil
		}
		if depth > r.maxDepth {
			return fmt.Errorf("role %q: inheritance depth exceeds %d: %w", role, r.maxDepth, ErrIntegrity)
		}

		color[role] = colorGray
		out = append(out, role)
		for _, parent := range snap.Parents(role) {
			if err := visit(parent, depth+1); err != nil {
				return err
			}
		}
		color[role] = colorBlack
		return nil
	}

	for _, role := range direct {
		if err := visit(role, 0); err != nil {
			return nil, err
		}
	}
	return out, nil
}
