package assignment

import (
	"context"

	"github.com/xraph/bastion/id"
)

// Store defines persistence operations for role assignments.
type Store interface {
	// AssignRole persists a new assignment.
	AssignRole(ctx context.Context, a *Assignment) error

	// UnassignRole removes an assignment by ID. Unassigning an absent
	// assignment is an error.
	UnassignRole(ctx context.Context, assignID id.AssignmentID) error

	// ListAssignments returns assignments matching the filter.
	ListAssignments(ctx context.Context, filter *ListFilter) ([]*Assignment, error)

	// ListRolesForSubject returns the names of the roles directly held
	// by a subject.
	ListRolesForSubject(ctx context.Context, subjectID string) ([]string, error)
}
