package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/event"
	"github.com/xraph/bastion/hierarchy"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/rule"
	"github.com/xraph/bastion/subject"
)

func newRule(subj, res, act string, effect rule.Effect) *rule.Rule {
	return &rule.Rule{
		ID:       id.NewRuleID(),
		Subject:  subj,
		Resource: res,
		Action:   act,
		Effect:   effect,
	}
}

func TestPutRuleValidatesPatterns(t *testing.T) {
	s := New()
	ctx := context.Background()

	bad := newRule("user_1", "doc*1", "read", rule.EffectAllow)
	err := s.PutRule(ctx, bad)
	if !errors.Is(err, bastion.ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}

	v, _ := s.Version(ctx)
	if v != 0 {
		t.Errorf("failed put must not bump version, got %d", v)
	}

	good := newRule("user_1", "doc:*", "read", rule.EffectAllow)
	if err := s.PutRule(ctx, good); err != nil {
		t.Fatalf("PutRule: %v", err)
	}
	if good.Version != 1 {
		t.Errorf("expected rule version 1, got %d", good.Version)
	}
}

func TestDeleteRuleTwice(t *testing.T) {
	s := New()
	ctx := context.Background()

	r := newRule("*", "doc:*", "read", rule.EffectAllow)
	if err := s.PutRule(ctx, r); err != nil {
		t.Fatalf("PutRule: %v", err)
	}
	if err := s.DeleteRule(ctx, r.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}

	err := s.DeleteRule(ctx, r.ID)
	if !errors.Is(err, bastion.ErrRuleNotFound) {
		t.Fatalf("second delete: expected ErrRuleNotFound, got %v", err)
	}
}

func TestAddRoleEdgeRejectsCycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	edges := []*hierarchy.Edge{
		{ID: id.NewEdgeID(), Child: "a", Parent: "b"},
		{ID: id.NewEdgeID(), Child: "b", Parent: "c"},
	}
	for _, e := range edges {
		if err := s.AddRoleEdge(ctx, e); err != nil {
			t.Fatalf("AddRoleEdge(%s->%s): %v", e.Child, e.Parent, err)
		}
	}
	vBefore, _ := s.Version(ctx)

	// c -> a closes the loop a -> b -> c -> a.
	err := s.AddRoleEdge(ctx, &hierarchy.Edge{ID: id.NewEdgeID(), Child: "c", Parent: "a"})
	if !errors.Is(err, bastion.ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}

	// Graph and version unchanged on failure.
	list, err := s.ListEdges(ctx, nil)
	if err != nil {
		t.Fatalf("ListEdges: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 edges after rejected insert, got %d", len(list))
	}
	vAfter, _ := s.Version(ctx)
	if vAfter != vBefore {
		t.Errorf("version changed on failed insert: %d -> %d", vBefore, vAfter)
	}
}

func TestAddRoleEdgeRejectsSelfLoop(t *testing.T) {
	s := New()
	err := s.AddRoleEdge(context.Background(), &hierarchy.Edge{ID: id.NewEdgeID(), Child: "a", Parent: "a"})
	if !errors.Is(err, bastion.ErrCycle) {
		t.Fatalf("expected ErrCycle for self-loop, got %v", err)
	}
}

func TestVersionMonotonicPerMutation(t *testing.T) {
	s := New()
	ctx := context.Background()

	r := newRule("*", "*", "*", rule.EffectAllow)
	if err := s.PutRule(ctx, r); err != nil {
		t.Fatal(err)
	}
	a := &assignment.Assignment{ID: id.NewAssignmentID(), SubjectID: "user_1", Role: "viewer"}
	if err := s.AssignRole(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteRule(ctx, r.ID); err != nil {
		t.Fatal(err)
	}

	v, err := s.Version(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v != 3 {
		t.Errorf("expected version 3 after 3 mutations, got %d", v)
	}
}

func TestSubscribeChangesOrdered(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.SubscribeChanges(ctx)
	if err != nil {
		t.Fatalf("SubscribeChanges: %v", err)
	}

	r := newRule("*", "doc:*", "read", rule.EffectAllow)
	if err := s.PutRule(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteRule(context.Background(), r.ID); err != nil {
		t.Fatal(err)
	}

	want := []event.Kind{event.KindRulePut, event.KindRuleDeleted}
	for i, kind := range want {
		select {
		case got := <-ch:
			if got.Kind != kind {
				t.Errorf("change %d: kind = %q, want %q", i, got.Kind, kind)
			}
			if got.Version != uint64(i+1) {
				t.Errorf("change %d: version = %d, want %d", i, got.Version, i+1)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for change %d", i)
		}
	}
}

func TestSubscribeChangesCancelClosesChannel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := s.SubscribeChanges(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestSlowSubscriberDoesNotBlockWriters(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Subscribe but never read.
	if _, err := s.SubscribeChanges(ctx); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = s.PutRule(context.Background(), newRule("*", "doc:*", "read", rule.EffectAllow))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("writers blocked by an unread subscriber")
	}
}

func TestListRolesForSubject(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, role := range []string{"viewer", "editor", "viewer"} {
		a := &assignment.Assignment{ID: id.NewAssignmentID(), SubjectID: "user_1", Role: role}
		if err := s.AssignRole(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	a := &assignment.Assignment{ID: id.NewAssignmentID(), SubjectID: "user_2", Role: "admin"}
	if err := s.AssignRole(ctx, a); err != nil {
		t.Fatal(err)
	}

	roles, err := s.ListRolesForSubject(ctx, "user_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 distinct roles, got %v", roles)
	}
	if roles[0] != "editor" || roles[1] != "viewer" {
		t.Errorf("unexpected roles %v", roles)
	}
}

func TestUnassignMissing(t *testing.T) {
	s := New()
	err := s.UnassignRole(context.Background(), id.NewAssignmentID())
	if !errors.Is(err, bastion.ErrAssignmentNotFound) {
		t.Fatalf("expected ErrAssignmentNotFound, got %v", err)
	}
}

func TestUpsertSubjectPreservesIdentity(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := &subject.Record{SubjectID: "user_1", DisplayName: "Alice"}
	if err := s.UpsertSubject(ctx, first); err != nil {
		t.Fatal(err)
	}
	if first.ID.IsNil() {
		t.Fatal("expected assigned record ID")
	}

	second := &subject.Record{SubjectID: "user_1", DisplayName: "Alice B"}
	if err := s.UpsertSubject(ctx, second); err != nil {
		t.Fatal(err)
	}
	if second.ID.String() != first.ID.String() {
		t.Errorf("upsert changed record ID: %s -> %s", first.ID, second.ID)
	}

	got, err := s.GetSubject(ctx, "user_1")
	if err != nil {
		t.Fatal(err)
	}
	if got.DisplayName != "Alice B" {
		t.Errorf("expected refreshed display name, got %q", got.DisplayName)
	}

	_, err = s.GetSubject(ctx, "ghost")
	if !errors.Is(err, bastion.ErrSubjectNotFound) {
		t.Fatalf("expected ErrSubjectNotFound, got %v", err)
	}
}

func TestListRulesPagination(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.PutRule(ctx, newRule("*", "doc:*", "read", rule.EffectAllow)); err != nil {
			t.Fatal(err)
		}
	}

	page1, err := s.ListRules(ctx, &rule.ListFilter{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	page2, err := s.ListRules(ctx, &rule.ListFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	page3, err := s.ListRules(ctx, &rule.ListFilter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatal(err)
	}

	if len(page1) != 2 || len(page2) != 2 || len(page3) != 1 {
		t.Fatalf("page sizes = %d,%d,%d, want 2,2,1", len(page1), len(page2), len(page3))
	}

	seen := make(map[string]struct{})
	for _, page := range [][]*rule.Rule{page1, page2, page3} {
		for _, r := range page {
			if _, dup := seen[r.ID.String()]; dup {
				t.Errorf("rule %s appeared on two pages", r.ID)
			}
			seen[r.ID.String()] = struct{}{}
		}
	}
	if len(seen) != 5 {
		t.Errorf("expected 5 distinct rules across pages, got %d", len(seen))
	}

	count, err := s.CountRules(ctx, &rule.ListFilter{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Errorf("CountRules must ignore pagination, got %d", count)
	}
}
