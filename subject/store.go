package subject

import "context"

// Store defines persistence operations for subject records.
type Store interface {
	// UpsertSubject creates or refreshes a subject record, keyed by
	// the external subject ID.
	UpsertSubject(ctx context.Context, rec *Record) error

	// GetSubject retrieves a record by external subject ID.
	GetSubject(ctx context.Context, subjectID string) (*Record, error)

	// ListSubjects returns records matching the filter.
	ListSubjects(ctx context.Context, filter *ListFilter) ([]*Record, error)
}
