package bastion

import "context"

// Cache provides caching for authorization decisions.
//
// Keys include the store version the decision was computed against, so
// entries written before a mutation can never answer a request made
// after it. Invalidation is therefore lazy: stale entries simply stop
// being addressable and age out by TTL or capacity eviction.
type Cache interface {
	// Get returns a cached decision for the request at the given store
	// version, if available.
	Get(ctx context.Context, tenantID string, req *CheckRequest, version uint64) (*Decision, bool)

	// Set stores a decision computed at the given store version.
	Set(ctx context.Context, tenantID string, req *CheckRequest, version uint64, dec *Decision)

	// InvalidateSubject removes all cached decisions for a subject, at
	// every version. Used when a subject record is deleted outright.
	InvalidateSubject(ctx context.Context, tenantID, subjectID string)
}
