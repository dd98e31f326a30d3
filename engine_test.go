package bastion_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/cache"
	"github.com/xraph/bastion/hierarchy"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/rule"
	"github.com/xraph/bastion/store"
	"github.com/xraph/bastion/store/memory"
	"github.com/xraph/bastion/subject"
)

func newTestEngine(t *testing.T, opts ...bastion.Option) (*bastion.Engine, *memory.Store) {
	t.Helper()
	s := memory.New()
	eng, err := bastion.NewEngine(append([]bastion.Option{bastion.WithStore(s)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return eng, s
}

func putRule(t *testing.T, s *memory.Store, subj, res, act string, effect rule.Effect, priority int) *rule.Rule {
	t.Helper()
	r := &rule.Rule{
		ID:       id.NewRuleID(),
		Subject:  subj,
		Resource: res,
		Action:   act,
		Effect:   effect,
		Priority: priority,
	}
	if err := s.PutRule(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	return r
}

func assign(t *testing.T, s *memory.Store, subjectID, role string) {
	t.Helper()
	a := &assignment.Assignment{ID: id.NewAssignmentID(), SubjectID: subjectID, Role: role}
	if err := s.AssignRole(context.Background(), a); err != nil {
		t.Fatal(err)
	}
}

func addEdge(t *testing.T, s *memory.Store, child, parent string) {
	t.Helper()
	e := &hierarchy.Edge{ID: id.NewEdgeID(), Child: child, Parent: parent}
	if err := s.AddRoleEdge(context.Background(), e); err != nil {
		t.Fatal(err)
	}
}

func checkReq(subjectID, resource, action string) *bastion.CheckRequest {
	return &bastion.CheckRequest{
		Subject:  bastion.Subject{ID: subjectID},
		Resource: resource,
		Action:   action,
	}
}

func TestNewEngineRequiresStore(t *testing.T) {
	_, err := bastion.NewEngine()
	if err == nil {
		t.Fatal("expected error when store is nil")
	}
}

func TestCheckDefaultDeny(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	// A rule exists, but nothing references this resource.
	putRule(t, s, "*", "doc:*", "read", rule.EffectAllow, 0)

	dec, err := eng.Check(ctx, checkReq("user_1", "vault:secret", "read"))
	if err != nil {
		t.Fatal(err)
	}
	if dec.Allowed {
		t.Fatal("expected default deny")
	}
	if dec.Code != bastion.DecisionDenyDefault {
		t.Errorf("code = %q, want %q", dec.Code, bastion.DecisionDenyDefault)
	}
}

func TestCheckDirectSubjectAllow(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	putRule(t, s, "user_1", "doc:*", "read", rule.EffectAllow, 0)

	dec, err := eng.Check(ctx, checkReq("user_1", "doc:42", "read"))
	if err != nil {
		t.Fatal(err)
	}
	if !dec.Allowed {
		t.Fatalf("expected allow, got %s (%s)", dec.Code, dec.Reason)
	}
	if len(dec.MatchedBy) == 0 {
		t.Error("expected matched rule diagnostics")
	}
}

func TestCheckDenyOverridesAllow(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	// Deny has a lower priority than allow, and is inserted second.
	// It must still win.
	putRule(t, s, "user_1", "doc:*", "read", rule.EffectAllow, 100)
	denyRule := putRule(t, s, "user_1", "doc:*", "read", rule.EffectDeny, 1)

	dec, err := eng.Check(ctx, checkReq("user_1", "doc:42", "read"))
	if err != nil {
		t.Fatal(err)
	}
	if dec.Allowed {
		t.Fatal("deny must override allow")
	}
	if dec.Code != bastion.DecisionDenyExplicit {
		t.Errorf("code = %q, want %q", dec.Code, bastion.DecisionDenyExplicit)
	}
	if dec.MatchedBy[0].RuleID != denyRule.ID.String() {
		t.Errorf("winning rule = %s, want the deny rule %s", dec.MatchedBy[0].RuleID, denyRule.ID)
	}
}

func TestCheckRoleGrant(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	putRule(t, s, "viewer", "doc:*", "read", rule.EffectAllow, 0)
	assign(t, s, "user_1", "viewer")

	ok, err := eng.CanI(ctx, "user_1", "read", "doc:42")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("viewer role should grant read")
	}

	// user_2 holds no role.
	ok, err = eng.CanI(ctx, "user_2", "read", "doc:42")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("subject without the role must be denied")
	}
}

func TestCheckInheritedRoleGrant(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	// editor inherits viewer; the rule names only viewer.
	putRule(t, s, "viewer", "doc:*", "read", rule.EffectAllow, 0)
	addEdge(t, s, "editor", "viewer")
	assign(t, s, "user_1", "editor")

	ok, err := eng.CanI(ctx, "user_1", "read", "doc:42")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("editor should inherit viewer's read grant")
	}
}

func TestCheckSubjectAllowRoleDeny(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	// The subject is allowed by ID but denied through a held role.
	putRule(t, s, "user_1", "doc:*", "read", rule.EffectAllow, 100)
	putRule(t, s, "contractor", "doc:*", "read", rule.EffectDeny, 0)
	assign(t, s, "user_1", "contractor")

	dec, err := eng.Check(ctx, checkReq("user_1", "doc:42", "read"))
	if err != nil {
		t.Fatal(err)
	}
	if dec.Allowed {
		t.Fatal("role-sourced deny must override subject-level allow")
	}
}

func TestCheckCacheFreshAfterMutation(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory(cache.WithTTL(time.Hour))
	eng, s := newTestEngine(t, bastion.WithCache(c))

	r := putRule(t, s, "user_1", "doc:*", "read", rule.EffectAllow, 0)

	dec, err := eng.Check(ctx, checkReq("user_1", "doc:42", "read"))
	if err != nil {
		t.Fatal(err)
	}
	if !dec.Allowed {
		t.Fatal("expected allow before deletion")
	}

	// Warm cache: same answer again.
	if dec, err = eng.Check(ctx, checkReq("user_1", "doc:42", "read")); err != nil || !dec.Allowed {
		t.Fatalf("cached check: %v allowed=%v", err, dec.Allowed)
	}

	// Delete the rule. The next check pins a newer version, so the
	// cached allow is unreachable without any explicit invalidation.
	if err := s.DeleteRule(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	dec, err = eng.Check(ctx, checkReq("user_1", "doc:42", "read"))
	if err != nil {
		t.Fatal(err)
	}
	if dec.Allowed {
		t.Fatal("check after mutation served a stale cached allow")
	}
}

func TestCheckStrictUnknownSubject(t *testing.T) {
	ctx := context.Background()
	cfg := bastion.DefaultConfig()
	cfg.StrictSubjects = true
	eng, s := newTestEngine(t, bastion.WithConfig(cfg))

	putRule(t, s, "*", "doc:*", "read", rule.EffectAllow, 0)

	_, err := eng.Check(ctx, checkReq("ghost", "doc:42", "read"))
	if !errors.Is(err, bastion.ErrSubjectUnknown) {
		t.Fatalf("expected ErrSubjectUnknown, got %v", err)
	}

	// A known subject passes the gate.
	if err := s.UpsertSubject(ctx, &subject.Record{SubjectID: "user_1"}); err != nil {
		t.Fatal(err)
	}
	dec, err := eng.Check(ctx, checkReq("user_1", "doc:42", "read"))
	if err != nil {
		t.Fatal(err)
	}
	if !dec.Allowed {
		t.Fatal("known subject should be allowed by the wildcard rule")
	}
}

func TestCheckPermissiveUnknownSubject(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	// Only role-scoped rules exist; an unknown subject has no roles and
	// falls through to the default deny rather than an error.
	putRule(t, s, "viewer", "doc:*", "read", rule.EffectAllow, 0)

	dec, err := eng.Check(ctx, checkReq("ghost", "doc:42", "read"))
	if err != nil {
		t.Fatal(err)
	}
	if dec.Allowed {
		t.Fatal("unknown subject must not be allowed")
	}
	if dec.Code != bastion.DecisionDenyDefault {
		t.Errorf("code = %q, want %q", dec.Code, bastion.DecisionDenyDefault)
	}
}

func TestEnforce(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	putRule(t, s, "user_1", "doc:*", "read", rule.EffectAllow, 0)

	if err := eng.Enforce(ctx, checkReq("user_1", "doc:42", "read")); err != nil {
		t.Fatalf("Enforce should pass: %v", err)
	}

	err := eng.Enforce(ctx, checkReq("user_2", "doc:42", "read"))
	if !errors.Is(err, bastion.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

// slowStore delays rule listing to force a deadline hit mid-check.
type slowStore struct {
	store.Store
	delay time.Duration
}

func (s *slowStore) ListRules(ctx context.Context, filter *rule.ListFilter) ([]*rule.Rule, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Store.ListRules(ctx, filter)
}

func TestCheckTimeout(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	putRule(t, mem, "user_1", "doc:*", "read", rule.EffectAllow, 0)

	cfg := bastion.DefaultConfig()
	cfg.CheckTimeout = 10 * time.Millisecond
	eng, err := bastion.NewEngine(
		bastion.WithStore(&slowStore{Store: mem, delay: time.Second}),
		bastion.WithConfig(cfg),
	)
	if err != nil {
		t.Fatal(err)
	}

	_, err = eng.Check(ctx, checkReq("user_1", "doc:42", "read"))
	if !errors.Is(err, bastion.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

// slowEdgeStore delays edge listing so the change consumer's snapshot
// rebuild lags behind committed hierarchy writes.
type slowEdgeStore struct {
	store.Store
	delay time.Duration
}

func (s *slowEdgeStore) ListEdges(ctx context.Context, filter *hierarchy.ListFilter) ([]*hierarchy.Edge, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Store.ListEdges(ctx, filter)
}

func TestCheckCacheFreshAfterHierarchyChange(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	putRule(t, mem, "viewer", "doc:*", "read", rule.EffectAllow, 0)
	assign(t, mem, "user_1", "editor")

	c := cache.NewMemory(cache.WithTTL(time.Hour))
	eng, err := bastion.NewEngine(
		bastion.WithStore(&slowEdgeStore{Store: mem, delay: 50 * time.Millisecond}),
		bastion.WithCache(c),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := eng.Stop(context.Background()); err != nil {
			t.Errorf("Stop: %v", err)
		}
	}()

	edge := &hierarchy.Edge{ID: id.NewEdgeID(), Child: "editor", Parent: "viewer"}
	if err := mem.AddRoleEdge(ctx, edge); err != nil {
		t.Fatal(err)
	}

	// The consumer's rebuild is still in flight, but the check pins the
	// post-write version and must see the new edge, not the live snapshot.
	ok, err := eng.CanI(ctx, "user_1", "read", "doc:42")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("check right after the edge write missed the inherited grant")
	}

	// After the snapshot converges the same version is pinned, so the
	// check is served from cache. The cached entry must be the fresh
	// decision, not one computed against the pre-edge hierarchy.
	time.Sleep(200 * time.Millisecond)
	ok, err = eng.CanI(ctx, "user_1", "read", "doc:42")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("stale pre-edge deny stayed cached under the current version")
	}

	// The dual: removing the edge must not leave a stale allow reachable
	// while the rebuild lags.
	if err := mem.RemoveRoleEdge(ctx, edge.ID); err != nil {
		t.Fatal(err)
	}
	ok, err = eng.CanI(ctx, "user_1", "read", "doc:42")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("check right after the edge removal served a stale allow")
	}
}

func TestStartKeepsSnapshotCurrent(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	putRule(t, s, "viewer", "doc:*", "read", rule.EffectAllow, 0)
	assign(t, s, "user_1", "editor")

	if err := eng.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := eng.Stop(context.Background()); err != nil {
			t.Errorf("Stop: %v", err)
		}
	}()

	// No edge yet: editor gets nothing.
	ok, err := eng.CanI(ctx, "user_1", "read", "doc:42")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("editor should not inherit viewer before the edge exists")
	}

	addEdge(t, s, "editor", "viewer")

	// The change consumer applies the edge event asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for {
		ok, err = eng.CanI(ctx, "user_1", "read", "doc:42")
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("snapshot never picked up the new edge")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
