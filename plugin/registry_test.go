package plugin

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/rule"
)

// testPlugin implements Plugin + RulePut + AfterCheck.
type testPlugin struct {
	rulePutCalled    bool
	afterCheckCalled bool
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnRulePut(_ context.Context, _ *rule.Rule) error {
	t.rulePutCalled = true
	return nil
}

func (t *testPlugin) OnAfterCheck(_ context.Context, _, _ any) error {
	t.afterCheckCalled = true
	return nil
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

// failingPlugin returns an error from every hook it implements.
type failingPlugin struct{}

func (f *failingPlugin) Name() string { return "failing" }

func (f *failingPlugin) OnRulePut(_ context.Context, _ *rule.Rule) error {
	return errors.New("hook failure")
}

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	// Should dispatch RulePut to testPlugin only.
	reg.EmitRulePut(ctx, &rule.Rule{ID: id.NewRuleID()})
	if !tp.rulePutCalled {
		t.Fatal("OnRulePut was not called")
	}

	// Should dispatch AfterCheck.
	reg.EmitAfterCheck(ctx, nil, nil)
	if !tp.afterCheckCalled {
		t.Fatal("OnAfterCheck was not called")
	}

	// Should not panic on hooks with no listeners.
	reg.EmitBeforeCheck(ctx, nil)
	reg.EmitRuleDeleted(ctx, id.NewRuleID())
	reg.EmitEdgeRemoved(ctx, id.NewEdgeID())
	reg.EmitShutdown(ctx)
}

func TestRegistryHookErrorsAreIsolated(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(&failingPlugin{})
	reg.Register(tp)

	// A failing hook must not stop dispatch to later plugins.
	reg.EmitRulePut(ctx, &rule.Rule{ID: id.NewRuleID()})
	if !tp.rulePutCalled {
		t.Fatal("dispatch stopped at the failing plugin")
	}
}
