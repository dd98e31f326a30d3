// Package bastion provides an RBAC authorization engine with identity tokens.
//
// Bastion answers "may subject S perform action A on resource R" using
// pattern-based policy rules, role inheritance, and deny-override conflict
// resolution. Policy data lives in a versioned store; decisions are cached
// under version-stamped keys so they expire lazily when policy changes.
// A companion token service issues and validates identity tokens against a
// pluggable identity provider. It integrates with the Forge ecosystem for
// the optional HTTP surface.
//
//	eng, err := bastion.NewEngine(
//	    bastion.WithStore(memStore),
//	)
//	dec, err := eng.Check(ctx, &bastion.CheckRequest{
//	    Subject:  bastion.Subject{ID: "user_123"},
//	    Action:   "read",
//	    Resource: "doc:456",
//	})
package bastion

import "time"

// Subject represents an actor in an authorization check.
type Subject struct {
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// CheckRequest is the input to an authorization check.
//
// Resource and Action are opaque strings; rules match them with glob
// patterns. Context carries request-scoped attributes visible to rule
// conditions alongside the subject's stored attributes.
type CheckRequest struct {
	Subject  Subject        `json:"subject"`
	Resource string         `json:"resource"`
	Action   string         `json:"action"`
	Context  map[string]any `json:"context,omitempty"`
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed      bool         `json:"allowed"`
	Code         DecisionCode `json:"decision"`
	Reason       string       `json:"reason,omitempty"`
	MatchedBy    []MatchInfo  `json:"matched_by,omitempty"`
	StoreVersion uint64       `json:"store_version"`
	EvaluatedAt  time.Time    `json:"evaluated_at"`
	EvalTimeNs   int64        `json:"eval_time_ns"`
}

// DecisionCode classifies how a decision was reached.
type DecisionCode string

const (
	// DecisionAllow means an allow rule matched and no deny rule did.
	DecisionAllow DecisionCode = "allow"

	// DecisionDenyExplicit means a deny rule matched.
	DecisionDenyExplicit DecisionCode = "deny_explicit"

	// DecisionDenyDefault means no rule matched; the engine fails closed.
	DecisionDenyDefault DecisionCode = "deny_default"
)

// MatchInfo describes a rule that matched during evaluation.
// The winning rule is the highest-priority match of the deciding effect;
// priorities are diagnostic only and never override a deny.
type MatchInfo struct {
	RuleID   string `json:"rule_id"`
	Effect   string `json:"effect"` // "allow" or "deny"
	Priority int    `json:"priority"`
	Detail   string `json:"detail,omitempty"`
}
