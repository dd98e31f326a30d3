package api

// CheckResponse is the response for an authorization check.
type CheckResponse struct {
	Allowed      bool        `json:"allowed" description:"Whether the request is allowed"`
	Decision     string      `json:"decision" description:"Decision code"`
	Reason       string      `json:"reason,omitempty" description:"Human-readable reason"`
	MatchedBy    []MatchInfo `json:"matched_by,omitempty" description:"Matched rules"`
	StoreVersion uint64      `json:"store_version" description:"Policy store version the decision was computed at"`
	EvalTimeNs   int64       `json:"eval_time_ns" description:"Evaluation time in nanoseconds"`
}

// MatchInfo identifies a matched rule.
type MatchInfo struct {
	RuleID   string `json:"rule_id" description:"Rule identifier"`
	Effect   string `json:"effect" description:"Rule effect"`
	Priority int    `json:"priority" description:"Rule priority"`
	Detail   string `json:"detail,omitempty" description:"Match detail"`
}

// BatchCheckResponse contains results for multiple checks.
type BatchCheckResponse struct {
	Results []CheckResponse `json:"results" description:"Check results in order"`
}

// SubjectRolesResponse lists the directly-held roles of a subject.
type SubjectRolesResponse struct {
	SubjectID string   `json:"subject_id" description:"Subject ID"`
	Roles     []string `json:"roles" description:"Directly-held role names"`
}

// TokenResponse carries an issued token.
type TokenResponse struct {
	Token     string `json:"token" description:"Signed identity token"`
	SubjectID string `json:"subject_id" description:"Verified subject"`
}

// ValidateTokenResponse carries the subject a valid token vouches for.
type ValidateTokenResponse struct {
	SubjectID  string         `json:"subject_id" description:"Verified subject"`
	Attributes map[string]any `json:"attributes,omitempty" description:"Subject attributes from the token"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
