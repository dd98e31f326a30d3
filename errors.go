package bastion

import "errors"

var (
	// ErrAccessDenied is returned when an authorization check fails.
	ErrAccessDenied = errors.New("bastion: access denied")

	// ErrInvalidPattern is returned when a rule pattern has malformed
	// wildcard syntax.
	ErrInvalidPattern = errors.New("bastion: invalid pattern")

	// ErrInvalidCondition is returned when a rule condition is malformed
	// (unknown operator, bad regex).
	ErrInvalidCondition = errors.New("bastion: invalid condition")

	// ErrRuleNotFound is returned when a policy rule cannot be found.
	ErrRuleNotFound = errors.New("bastion: rule not found")

	// ErrEdgeNotFound is returned when a role-inheritance edge cannot be found.
	ErrEdgeNotFound = errors.New("bastion: role edge not found")

	// ErrAssignmentNotFound is returned when a role assignment cannot be found.
	ErrAssignmentNotFound = errors.New("bastion: assignment not found")

	// ErrSubjectNotFound is returned when a subject record cannot be found.
	ErrSubjectNotFound = errors.New("bastion: subject not found")

	// ErrCycle is returned when a role-inheritance edge would create a cycle.
	ErrCycle = errors.New("bastion: cyclic role inheritance detected")

	// ErrIntegrity is returned when a core invariant is found violated at
	// evaluation time (e.g. a cycle in a graph the store guarantees acyclic).
	// It is fatal for the request: the check fails closed and the condition
	// is reported for operator attention, never retried.
	ErrIntegrity = errors.New("bastion: policy data integrity violation")

	// ErrSubjectUnknown is returned in strict mode when a check names a
	// subject with no recorded identity.
	ErrSubjectUnknown = errors.New("bastion: subject unknown")

	// ErrAuthentication is returned when a credential cannot be verified.
	ErrAuthentication = errors.New("bastion: authentication failed")

	// ErrTokenExpired is returned when a token's expiry has passed.
	ErrTokenExpired = errors.New("bastion: token expired")

	// ErrTokenInvalid is returned when a token fails signature or claim
	// verification.
	ErrTokenInvalid = errors.New("bastion: token invalid")

	// ErrSigningKeyUnavailable is returned when a token cannot be signed
	// because no signing key is configured.
	ErrSigningKeyUnavailable = errors.New("bastion: signing key unavailable")

	// ErrTimeout is returned when a check or credential validation exceeds
	// its deadline. The caller must treat it as a deny.
	ErrTimeout = errors.New("bastion: operation timed out")

	// ErrStoreUnavailable is returned when the policy store exhausts its
	// retry budget on transient I/O failures.
	ErrStoreUnavailable = errors.New("bastion: policy store unavailable")
)
