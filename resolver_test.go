package bastion

import (
	"errors"
	"sort"
	"testing"

	"github.com/xraph/bastion/hierarchy"
)

func snapOf(pairs ...[2]string) *hierarchy.Snapshot {
	edges := make([]*hierarchy.Edge, 0, len(pairs))
	for _, p := range pairs {
		edges = append(edges, &hierarchy.Edge{Child: p[0], Parent: p[1]})
	}
	return hierarchy.NewSnapshot(edges)
}

func TestEffectiveRolesClosure(t *testing.T) {
	snap := snapOf(
		[2]string{"editor", "viewer"},
		[2]string{"admin", "editor"},
	)
	r := DefaultResolver(0)

	roles, err := r.EffectiveRoles([]string{"admin"}, snap)
	if err != nil {
		t.Fatalf("EffectiveRoles: %v", err)
	}
	sort.Strings(roles)
	want := []string{"admin", "editor", "viewer"}
	if len(roles) != len(want) {
		t.Fatalf("roles = %v, want %v", roles, want)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("roles = %v, want %v", roles, want)
		}
	}
}

func TestEffectiveRolesDiamond(t *testing.T) {
	snap := snapOf(
		[2]string{"a", "b"},
		[2]string{"a", "c"},
		[2]string{"b", "d"},
		[2]string{"c", "d"},
	)
	r := DefaultResolver(0)

	roles, err := r.EffectiveRoles([]string{"a"}, snap)
	if err != nil {
		t.Fatalf("EffectiveRoles: %v", err)
	}
	if len(roles) != 4 {
		t.Errorf("expected 4 distinct roles for diamond, got %v", roles)
	}
}

func TestEffectiveRolesEmpty(t *testing.T) {
	r := DefaultResolver(0)
	roles, err := r.EffectiveRoles(nil, snapOf())
	if err != nil {
		t.Fatal(err)
	}
	if roles != nil {
		t.Errorf("expected nil for no direct roles, got %v", roles)
	}
}

func TestEffectiveRolesCycleIsIntegrityError(t *testing.T) {
	// A snapshot like this can only exist if the store's cycle check
	// was bypassed; the resolver must refuse to answer.
	snap := snapOf(
		[2]string{"a", "b"},
		[2]string{"b", "c"},
		[2]string{"c", "a"},
	)
	r := DefaultResolver(0)

	_, err := r.EffectiveRoles([]string{"a"}, snap)
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}

func TestEffectiveRolesDepthLimit(t *testing.T) {
	pairs := make([][2]string, 0, 10)
	names := []string{"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8", "r9"}
	for i := 0; i+1 < len(names); i++ {
		pairs = append(pairs, [2]string{names[i], names[i+1]})
	}
	snap := snapOf(pairs...)

	if _, err := DefaultResolver(3).EffectiveRoles([]string{"r0"}, snap); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity past depth limit, got %v", err)
	}
	if _, err := DefaultResolver(20).EffectiveRoles([]string{"r0"}, snap); err != nil {
		t.Fatalf("expected success within depth limit, got %v", err)
	}
}
