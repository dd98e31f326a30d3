package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/hierarchy"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/rule"
	"github.com/xraph/bastion/subject"
)

// Named entry types pair a hook with the plugin name for logging.

type beforeCheckEntry struct {
	name string
	hook BeforeCheck
}
type afterCheckEntry struct {
	name string
	hook AfterCheck
}
type rulePutEntry struct {
	name string
	hook RulePut
}
type ruleDeletedEntry struct {
	name string
	hook RuleDeleted
}
type edgeAddedEntry struct {
	name string
	hook EdgeAdded
}
type edgeRemovedEntry struct {
	name string
	hook EdgeRemoved
}
type roleAssignedEntry struct {
	name string
	hook RoleAssigned
}
type roleUnassignedEntry struct {
	name string
	hook RoleUnassigned
}
type subjectUpsertedEntry struct {
	name string
	hook SubjectUpserted
}
type tokenIssuedEntry struct {
	name string
	hook TokenIssued
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeCheck     []beforeCheckEntry
	afterCheck      []afterCheckEntry
	rulePut         []rulePutEntry
	ruleDeleted     []ruleDeletedEntry
	edgeAdded       []edgeAddedEntry
	edgeRemoved     []edgeRemovedEntry
	roleAssigned    []roleAssignedEntry
	roleUnassigned  []roleUnassignedEntry
	subjectUpserted []subjectUpsertedEntry
	tokenIssued     []tokenIssuedEntry
	shutdown        []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeCheck); ok {
		r.beforeCheck = append(r.beforeCheck, beforeCheckEntry{name, h})
	}
	if h, ok := p.(AfterCheck); ok {
		r.afterCheck = append(r.afterCheck, afterCheckEntry{name, h})
	}
	if h, ok := p.(RulePut); ok {
		r.rulePut = append(r.rulePut, rulePutEntry{name, h})
	}
	if h, ok := p.(RuleDeleted); ok {
		r.ruleDeleted = append(r.ruleDeleted, ruleDeletedEntry{name, h})
	}
	if h, ok := p.(EdgeAdded); ok {
		r.edgeAdded = append(r.edgeAdded, edgeAddedEntry{name, h})
	}
	if h, ok := p.(EdgeRemoved); ok {
		r.edgeRemoved = append(r.edgeRemoved, edgeRemovedEntry{name, h})
	}
	if h, ok := p.(RoleAssigned); ok {
		r.roleAssigned = append(r.roleAssigned, roleAssignedEntry{name, h})
	}
	if h, ok := p.(RoleUnassigned); ok {
		r.roleUnassigned = append(r.roleUnassigned, roleUnassignedEntry{name, h})
	}
	if h, ok := p.(SubjectUpserted); ok {
		r.subjectUpserted = append(r.subjectUpserted, subjectUpsertedEntry{name, h})
	}
	if h, ok := p.(TokenIssued); ok {
		r.tokenIssued = append(r.tokenIssued, tokenIssuedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// ──────────────────────────────────────────────────
// Check event emitters
// ──────────────────────────────────────────────────

// EmitBeforeCheck notifies all plugins that implement BeforeCheck.
func (r *Registry) EmitBeforeCheck(ctx context.Context, req any) {
	for _, e := range r.beforeCheck {
		if err := e.hook.OnBeforeCheck(ctx, req); err != nil {
			r.logHookError("OnBeforeCheck", e.name, err)
		}
	}
}

// EmitAfterCheck notifies all plugins that implement AfterCheck.
func (r *Registry) EmitAfterCheck(ctx context.Context, req, dec any) {
	for _, e := range r.afterCheck {
		if err := e.hook.OnAfterCheck(ctx, req, dec); err != nil {
			r.logHookError("OnAfterCheck", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Rule event emitters
// ──────────────────────────────────────────────────

// EmitRulePut notifies all plugins that implement RulePut.
func (r *Registry) EmitRulePut(ctx context.Context, rl *rule.Rule) {
	for _, e := range r.rulePut {
		if err := e.hook.OnRulePut(ctx, rl); err != nil {
			r.logHookError("OnRulePut", e.name, err)
		}
	}
}

// EmitRuleDeleted notifies all plugins that implement RuleDeleted.
func (r *Registry) EmitRuleDeleted(ctx context.Context, ruleID id.RuleID) {
	for _, e := range r.ruleDeleted {
		if err := e.hook.OnRuleDeleted(ctx, ruleID); err != nil {
			r.logHookError("OnRuleDeleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Hierarchy event emitters
// ──────────────────────────────────────────────────

// EmitEdgeAdded notifies all plugins that implement EdgeAdded.
func (r *Registry) EmitEdgeAdded(ctx context.Context, edge *hierarchy.Edge) {
	for _, e := range r.edgeAdded {
		if err := e.hook.OnEdgeAdded(ctx, edge); err != nil {
			r.logHookError("OnEdgeAdded", e.name, err)
		}
	}
}

// EmitEdgeRemoved notifies all plugins that implement EdgeRemoved.
func (r *Registry) EmitEdgeRemoved(ctx context.Context, edgeID id.EdgeID) {
	for _, e := range r.edgeRemoved {
		if err := e.hook.OnEdgeRemoved(ctx, edgeID); err != nil {
			r.logHookError("OnEdgeRemoved", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Assignment event emitters
// ──────────────────────────────────────────────────

// EmitRoleAssigned notifies all plugins that implement RoleAssigned.
func (r *Registry) EmitRoleAssigned(ctx context.Context, a *assignment.Assignment) {
	for _, e := range r.roleAssigned {
		if err := e.hook.OnRoleAssigned(ctx, a); err != nil {
			r.logHookError("OnRoleAssigned", e.name, err)
		}
	}
}

// EmitRoleUnassigned notifies all plugins that implement RoleUnassigned.
func (r *Registry) EmitRoleUnassigned(ctx context.Context, assignID id.AssignmentID) {
	for _, e := range r.roleUnassigned {
		if err := e.hook.OnRoleUnassigned(ctx, assignID); err != nil {
			r.logHookError("OnRoleUnassigned", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Subject event emitters
// ──────────────────────────────────────────────────

// EmitSubjectUpserted notifies all plugins that implement SubjectUpserted.
func (r *Registry) EmitSubjectUpserted(ctx context.Context, rec *subject.Record) {
	for _, e := range r.subjectUpserted {
		if err := e.hook.OnSubjectUpserted(ctx, rec); err != nil {
			r.logHookError("OnSubjectUpserted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Token event emitters
// ──────────────────────────────────────────────────

// EmitTokenIssued notifies all plugins that implement TokenIssued.
func (r *Registry) EmitTokenIssued(ctx context.Context, subjectID string) {
	for _, e := range r.tokenIssued {
		if err := e.hook.OnTokenIssued(ctx, subjectID); err != nil {
			r.logHookError("OnTokenIssued", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated; they must not block the pipeline.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
