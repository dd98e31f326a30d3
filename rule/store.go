package rule

import (
	"context"

	"github.com/xraph/bastion/id"
)

// Store defines persistence operations for policy rules.
type Store interface {
	// PutRule persists a rule, creating or replacing by ID. All three
	// patterns are validated before anything is written.
	PutRule(ctx context.Context, r *Rule) error

	// GetRule retrieves a rule by ID.
	GetRule(ctx context.Context, ruleID id.RuleID) (*Rule, error)

	// DeleteRule removes a rule by ID. Deleting an absent rule is an
	// error, including the second delete of the same ID.
	DeleteRule(ctx context.Context, ruleID id.RuleID) error

	// ListRules returns rules matching the filter. Pagination is stable
	// within a single store version.
	ListRules(ctx context.Context, filter *ListFilter) ([]*Rule, error)

	// CountRules returns the number of rules matching the filter.
	CountRules(ctx context.Context, filter *ListFilter) (int64, error)
}
