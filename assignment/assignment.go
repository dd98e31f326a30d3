// Package assignment defines direct subject-to-role grants.
package assignment

import (
	"time"

	"github.com/xraph/bastion/id"
)

// Assignment binds a subject to a directly-held role. Inherited roles
// are derived from the hierarchy at evaluation time and never stored.
type Assignment struct {
	ID        id.AssignmentID `json:"id" db:"id"`
	TenantID  string          `json:"tenant_id" db:"tenant_id"`
	SubjectID string          `json:"subject_id" db:"subject_id"`
	Role      string          `json:"role" db:"role"`
	GrantedBy string          `json:"granted_by,omitempty" db:"granted_by"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// ListFilter contains filters for listing assignments.
type ListFilter struct {
	TenantID  string `json:"tenant_id,omitempty"`
	SubjectID string `json:"subject_id,omitempty"`
	Role      string `json:"role,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}
