// Package rule defines the policy Rule entity and its store interface.
package rule

import (
	"time"

	"github.com/xraph/bastion/id"
)

// Effect is the rule outcome when it matches, allow or deny.
type Effect string

const (
	// EffectAllow permits matching requests.
	EffectAllow Effect = "allow"

	// EffectDeny blocks matching requests. Deny always wins over allow.
	EffectDeny Effect = "deny"
)

// Valid reports whether e is a recognized effect.
func (e Effect) Valid() bool {
	return e == EffectAllow || e == EffectDeny
}

// Rule is a single policy statement. Subject, Resource, and Action are
// glob patterns: an exact literal, "*", "prefix*", or "*suffix". The
// subject pattern is matched against the requesting subject's ID and
// against each of its effective roles.
type Rule struct {
	ID          id.RuleID   `json:"id" db:"id"`
	TenantID    string      `json:"tenant_id" db:"tenant_id"`
	Description string      `json:"description,omitempty" db:"description"`
	Subject     string      `json:"subject" db:"subject"`
	Resource    string      `json:"resource" db:"resource"`
	Action      string      `json:"action" db:"action"`
	Effect      Effect      `json:"effect" db:"effect"`
	Priority    int         `json:"priority" db:"priority"`
	Conditions  []Condition `json:"conditions,omitempty" db:"-"`
	Version     uint64      `json:"version" db:"version"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// Condition is a single attribute predicate within a rule. A rule only
// matches when every condition holds against the merged subject and
// request attributes.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// Operator is a comparison operator for conditions.
type Operator string

const (
	// OpEquals checks for equality.
	OpEquals Operator = "eq"

	// OpNotEquals checks for inequality.
	OpNotEquals Operator = "neq"

	// OpIn checks if a value is in a set.
	OpIn Operator = "in"

	// OpNotIn checks if a value is not in a set.
	OpNotIn Operator = "not_in"

	// OpContains checks if a string contains a substring.
	OpContains Operator = "contains"

	// OpStartsWith checks if a string starts with a prefix.
	OpStartsWith Operator = "starts_with"

	// OpEndsWith checks if a string ends with a suffix.
	OpEndsWith Operator = "ends_with"

	// OpGreaterThan checks if a value is greater than another.
	OpGreaterThan Operator = "gt"

	// OpLessThan checks if a value is less than another.
	OpLessThan Operator = "lt"

	// OpGTE checks if a value is greater than or equal to another.
	OpGTE Operator = "gte"

	// OpLTE checks if a value is less than or equal to another.
	OpLTE Operator = "lte"

	// OpExists checks if a field is present.
	OpExists Operator = "exists"

	// OpNotExists checks if a field is absent.
	OpNotExists Operator = "not_exists"

	// OpIPInCIDR checks if an IP address falls within a CIDR range.
	OpIPInCIDR Operator = "ip_in_cidr"

	// OpTimeAfter checks if a time is after a threshold.
	OpTimeAfter Operator = "time_after"

	// OpTimeBefore checks if a time is before a threshold.
	OpTimeBefore Operator = "time_before"

	// OpRegex checks if a value matches a regular expression.
	OpRegex Operator = "regex"
)

// ListFilter contains filters for listing rules.
type ListFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	Effect   Effect `json:"effect,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
