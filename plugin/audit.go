package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/rule"
)

// Compile-time interface checks.
var (
	_ Plugin      = (*AuditLogger)(nil)
	_ AfterCheck  = (*AuditLogger)(nil)
	_ RulePut     = (*AuditLogger)(nil)
	_ RuleDeleted = (*AuditLogger)(nil)
	_ TokenIssued = (*AuditLogger)(nil)
)

// AuditLogger emits one structured log line per decision and policy
// mutation. Decisions are never persisted; this log stream is the
// audit trail.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates an audit plugin writing to the given logger.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger}
}

// Name implements Plugin.
func (a *AuditLogger) Name() string { return "audit-logger" }

// OnAfterCheck logs the outcome of every authorization check.
func (a *AuditLogger) OnAfterCheck(ctx context.Context, req, dec any) error {
	a.logger.InfoContext(ctx, "authz decision",
		slog.Any("request", req),
		slog.Any("decision", dec),
	)
	return nil
}

// OnRulePut logs rule writes.
func (a *AuditLogger) OnRulePut(ctx context.Context, r *rule.Rule) error {
	a.logger.InfoContext(ctx, "rule put",
		slog.String("rule_id", r.ID.String()),
		slog.String("effect", string(r.Effect)),
		slog.String("subject", r.Subject),
		slog.String("resource", r.Resource),
		slog.String("action", r.Action),
	)
	return nil
}

// OnRuleDeleted logs rule deletions.
func (a *AuditLogger) OnRuleDeleted(ctx context.Context, ruleID id.RuleID) error {
	a.logger.InfoContext(ctx, "rule deleted", slog.String("rule_id", ruleID.String()))
	return nil
}

// OnTokenIssued logs token issuance.
func (a *AuditLogger) OnTokenIssued(ctx context.Context, subjectID string) error {
	a.logger.InfoContext(ctx, "token issued", slog.String("subject_id", subjectID))
	return nil
}
