// Package plugin defines the plugin system for Bastion.
// Plugins are notified of lifecycle events (check performed, rule
// written, role assigned, etc.) and can react: logging, metrics,
// tracing, and similar concerns.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/hierarchy"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/rule"
	"github.com/xraph/bastion/subject"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Check lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeCheck is called before an authorization check is evaluated.
// The req parameter is *bastion.CheckRequest (passed as any to avoid import cycle).
type BeforeCheck interface {
	OnBeforeCheck(ctx context.Context, req any) error
}

// AfterCheck is called after an authorization check completes.
// The req parameter is *bastion.CheckRequest; dec is *bastion.Decision.
type AfterCheck interface {
	OnAfterCheck(ctx context.Context, req, dec any) error
}

// ──────────────────────────────────────────────────
// Rule lifecycle hooks
// ──────────────────────────────────────────────────

// RulePut is called after a rule is created or replaced.
type RulePut interface {
	OnRulePut(ctx context.Context, r *rule.Rule) error
}

// RuleDeleted is called after a rule is deleted.
type RuleDeleted interface {
	OnRuleDeleted(ctx context.Context, ruleID id.RuleID) error
}

// ──────────────────────────────────────────────────
// Hierarchy lifecycle hooks
// ──────────────────────────────────────────────────

// EdgeAdded is called after an inheritance edge is added.
type EdgeAdded interface {
	OnEdgeAdded(ctx context.Context, e *hierarchy.Edge) error
}

// EdgeRemoved is called after an inheritance edge is removed.
type EdgeRemoved interface {
	OnEdgeRemoved(ctx context.Context, edgeID id.EdgeID) error
}

// ──────────────────────────────────────────────────
// Assignment lifecycle hooks
// ──────────────────────────────────────────────────

// RoleAssigned is called after a role is assigned to a subject.
type RoleAssigned interface {
	OnRoleAssigned(ctx context.Context, a *assignment.Assignment) error
}

// RoleUnassigned is called after a role is unassigned from a subject.
type RoleUnassigned interface {
	OnRoleUnassigned(ctx context.Context, assignID id.AssignmentID) error
}

// ──────────────────────────────────────────────────
// Subject lifecycle hooks
// ──────────────────────────────────────────────────

// SubjectUpserted is called after a subject record is written.
type SubjectUpserted interface {
	OnSubjectUpserted(ctx context.Context, rec *subject.Record) error
}

// ──────────────────────────────────────────────────
// Token lifecycle hooks
// ──────────────────────────────────────────────────

// TokenIssued is called after an identity token is issued.
type TokenIssued interface {
	OnTokenIssued(ctx context.Context, subjectID string) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
