// Package subject defines stored subject identity records.
package subject

import (
	"time"

	"github.com/xraph/bastion/id"
)

// Record is the stored form of a subject identity. It is created on
// first token issuance or by explicit upsert, and is what strict-mode
// checks consult to decide whether a subject is known.
type Record struct {
	ID          id.SubjectID   `json:"id" db:"id"`
	TenantID    string         `json:"tenant_id" db:"tenant_id"`
	SubjectID   string         `json:"subject_id" db:"subject_id"`
	DisplayName string         `json:"display_name,omitempty" db:"display_name"`
	Attributes  map[string]any `json:"attributes,omitempty" db:"attributes"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing subject records.
type ListFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
