// Package event defines the change notifications emitted by the policy
// store. Every successful mutation increments the store version and
// emits exactly one Change carrying that version. Delivery is ordered
// and at-least-once; consumers dedupe by version.
package event

// Kind classifies a policy store mutation.
type Kind string

const (
	// KindRulePut is emitted when a rule is created or replaced.
	KindRulePut Kind = "rule_put"

	// KindRuleDeleted is emitted when a rule is removed.
	KindRuleDeleted Kind = "rule_deleted"

	// KindEdgeAdded is emitted when an inheritance edge is added.
	KindEdgeAdded Kind = "edge_added"

	// KindEdgeRemoved is emitted when an inheritance edge is removed.
	KindEdgeRemoved Kind = "edge_removed"

	// KindRoleAssigned is emitted when a role is assigned to a subject.
	KindRoleAssigned Kind = "role_assigned"

	// KindRoleUnassigned is emitted when an assignment is removed.
	KindRoleUnassigned Kind = "role_unassigned"

	// KindSubjectUpserted is emitted when a subject record is written.
	KindSubjectUpserted Kind = "subject_upserted"
)

// HierarchyChanged reports whether a change kind affects the role
// inheritance graph and therefore requires a snapshot rebuild.
func (k Kind) HierarchyChanged() bool {
	return k == KindEdgeAdded || k == KindEdgeRemoved
}

// Change is a single store mutation notification.
type Change struct {
	// Version is the store version produced by the mutation.
	Version uint64 `json:"version" db:"version"`

	// Kind classifies the mutation.
	Kind Kind `json:"kind" db:"kind"`

	// Entity is the ID of the affected entity.
	Entity string `json:"entity" db:"entity"`
}
