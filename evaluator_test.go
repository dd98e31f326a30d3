package bastion

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/rule"
)

func evalRule(subj, res, act string, effect rule.Effect, priority int, conds ...rule.Condition) *rule.Rule {
	return &rule.Rule{
		ID:         id.NewRuleID(),
		Subject:    subj,
		Resource:   res,
		Action:     act,
		Effect:     effect,
		Priority:   priority,
		Conditions: conds,
	}
}

func TestEvaluateNoMatchReturnsNil(t *testing.T) {
	ev := DefaultEvaluator()
	rules := []*rule.Rule{evalRule("admin", "doc:*", "read", rule.EffectAllow, 0)}

	dec, err := ev.Evaluate(context.Background(), rules, nil, &CheckRequest{
		Subject: Subject{ID: "user_1"}, Resource: "doc:1", Action: "read",
	})
	if err != nil {
		t.Fatal(err)
	}
	if dec != nil {
		t.Fatalf("expected nil decision for no match, got %+v", dec)
	}
}

func TestEvaluateSubjectMatchesRole(t *testing.T) {
	ev := DefaultEvaluator()
	rules := []*rule.Rule{evalRule("admin", "doc:*", "*", rule.EffectAllow, 0)}

	dec, err := ev.Evaluate(context.Background(), rules, []string{"admin"}, &CheckRequest{
		Subject: Subject{ID: "user_1"}, Resource: "doc:1", Action: "delete",
	})
	if err != nil {
		t.Fatal(err)
	}
	if dec == nil || !dec.Allowed {
		t.Fatal("rule naming a held role should allow")
	}
}

func TestEvaluateConditionGate(t *testing.T) {
	ev := DefaultEvaluator()
	rules := []*rule.Rule{evalRule("*", "doc:*", "read", rule.EffectAllow, 0,
		rule.Condition{Field: "context.env", Operator: rule.OpEquals, Value: "prod"},
	)}

	req := &CheckRequest{
		Subject: Subject{ID: "user_1"}, Resource: "doc:1", Action: "read",
		Context: map[string]any{"env": "staging"},
	}
	dec, err := ev.Evaluate(context.Background(), rules, nil, req)
	if err != nil {
		t.Fatal(err)
	}
	if dec != nil {
		t.Fatal("condition mismatch must not produce a match")
	}

	req.Context["env"] = "prod"
	dec, err = ev.Evaluate(context.Background(), rules, nil, req)
	if err != nil {
		t.Fatal(err)
	}
	if dec == nil || !dec.Allowed {
		t.Fatal("satisfied condition should allow")
	}
}

func TestEvaluateSubjectAttributeCondition(t *testing.T) {
	ev := DefaultEvaluator()
	rules := []*rule.Rule{evalRule("*", "report:*", "read", rule.EffectAllow, 0,
		rule.Condition{Field: "subject.level", Operator: rule.OpGTE, Value: 3},
	)}

	req := &CheckRequest{
		Subject:  Subject{ID: "user_1", Attributes: map[string]any{"level": 5}},
		Resource: "report:q3", Action: "read",
	}
	dec, err := ev.Evaluate(context.Background(), rules, nil, req)
	if err != nil {
		t.Fatal(err)
	}
	if dec == nil || !dec.Allowed {
		t.Fatal("level 5 should satisfy gte 3")
	}

	req.Subject.Attributes["level"] = 2
	dec, err = ev.Evaluate(context.Background(), rules, nil, req)
	if err != nil {
		t.Fatal(err)
	}
	if dec != nil {
		t.Fatal("level 2 must not satisfy gte 3")
	}
}

func TestEvaluateUnknownOperator(t *testing.T) {
	ev := DefaultEvaluator()
	rules := []*rule.Rule{evalRule("*", "*", "*", rule.EffectAllow, 0,
		rule.Condition{Field: "context.x", Operator: "bogus", Value: 1},
	)}

	_, err := ev.Evaluate(context.Background(), rules, nil, &CheckRequest{
		Subject: Subject{ID: "u"}, Resource: "r", Action: "a",
	})
	if !errors.Is(err, ErrInvalidCondition) {
		t.Fatalf("expected ErrInvalidCondition, got %v", err)
	}
}

func TestEvaluatePriorityPicksReportedWinner(t *testing.T) {
	ev := DefaultEvaluator()
	low := evalRule("user_1", "doc:*", "read", rule.EffectAllow, 1)
	high := evalRule("user_1", "doc:*", "read", rule.EffectAllow, 50)

	dec, err := ev.Evaluate(context.Background(), []*rule.Rule{low, high}, nil, &CheckRequest{
		Subject: Subject{ID: "user_1"}, Resource: "doc:1", Action: "read",
	})
	if err != nil {
		t.Fatal(err)
	}
	if dec.MatchedBy[0].RuleID != high.ID.String() {
		t.Errorf("winner = %s, want the higher-priority rule %s", dec.MatchedBy[0].RuleID, high.ID)
	}
	if len(dec.MatchedBy) != 2 {
		t.Errorf("expected both matches reported, got %d", len(dec.MatchedBy))
	}
}
