package api

// ──────────────────────────────────────────────────
// Check requests
// ──────────────────────────────────────────────────

// CheckRequest is the request body for an authorization check.
type CheckRequest struct {
	SubjectID         string         `json:"subject_id" description:"Subject identifier"`
	SubjectAttributes map[string]any `json:"subject_attributes,omitempty" description:"Subject attributes for condition evaluation"`
	Resource          string         `json:"resource" description:"Resource name"`
	Action            string         `json:"action" description:"Action name"`
	Context           map[string]any `json:"context,omitempty" description:"Additional context attributes"`
}

// BatchCheckRequest contains multiple checks.
type BatchCheckRequest struct {
	Checks []CheckRequest `json:"checks" description:"List of authorization checks"`
}

// ──────────────────────────────────────────────────
// Rule requests
// ──────────────────────────────────────────────────

// PutRuleRequest is the body for creating or replacing a rule.
type PutRuleRequest struct {
	TenantID    string           `json:"tenant_id,omitempty" description:"Tenant scope"`
	Description string           `json:"description,omitempty" description:"Human-readable description"`
	Subject     string           `json:"subject" description:"Subject pattern (exact, prefix*, *suffix, or *)"`
	Resource    string           `json:"resource" description:"Resource pattern"`
	Action      string           `json:"action" description:"Action pattern"`
	Effect      string           `json:"effect" description:"Rule effect (allow or deny)"`
	Priority    int              `json:"priority,omitempty" description:"Rule priority (lower wins reporting)"`
	Conditions  []ConditionInput `json:"conditions,omitempty" description:"Attribute conditions"`
}

// ConditionInput is the input format for a rule condition.
type ConditionInput struct {
	Field    string `json:"field" description:"Dot-separated field path (e.g. context.ip)"`
	Operator string `json:"operator" description:"Comparison operator"`
	Value    any    `json:"value" description:"Expected value"`
}

// GetRuleRequest is the path parameter for getting a rule.
type GetRuleRequest struct {
	RuleID string `path:"ruleId" description:"Rule ID"`
}

// ListRulesRequest holds query parameters for listing rules.
type ListRulesRequest struct {
	TenantID string `query:"tenant_id" description:"Filter by tenant"`
	Effect   string `query:"effect" description:"Filter by effect (allow/deny)"`
	Search   string `query:"search" description:"Search by description"`
	Limit    int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset   int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Hierarchy requests
// ──────────────────────────────────────────────────

// AddEdgeRequest is the body for adding an inheritance edge.
type AddEdgeRequest struct {
	TenantID string `json:"tenant_id,omitempty" description:"Tenant scope"`
	Child    string `json:"child" description:"Child role (inherits)"`
	Parent   string `json:"parent" description:"Parent role (inherited from)"`
}

// GetEdgeRequest is the path parameter for an edge.
type GetEdgeRequest struct {
	EdgeID string `path:"edgeId" description:"Edge ID"`
}

// ListEdgesRequest holds query parameters for listing edges.
type ListEdgesRequest struct {
	TenantID string `query:"tenant_id" description:"Filter by tenant"`
	Child    string `query:"child" description:"Filter by child role"`
	Parent   string `query:"parent" description:"Filter by parent role"`
	Limit    int    `query:"limit" description:"Maximum results"`
	Offset   int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Assignment requests
// ──────────────────────────────────────────────────

// AssignRoleRequest is the body for assigning a role to a subject.
type AssignRoleRequest struct {
	TenantID  string `json:"tenant_id,omitempty" description:"Tenant scope"`
	SubjectID string `json:"subject_id" description:"Subject identifier"`
	Role      string `json:"role" description:"Role name to assign"`
	GrantedBy string `json:"granted_by,omitempty" description:"Who granted the role"`
}

// GetAssignmentRequest is the path parameter for an assignment.
type GetAssignmentRequest struct {
	AssignmentID string `path:"assignmentId" description:"Assignment ID"`
}

// ListAssignmentsRequest holds query parameters.
type ListAssignmentsRequest struct {
	TenantID  string `query:"tenant_id" description:"Filter by tenant"`
	SubjectID string `query:"subject_id" description:"Filter by subject ID"`
	Role      string `query:"role" description:"Filter by role"`
	Limit     int    `query:"limit" description:"Maximum results"`
	Offset    int    `query:"offset" description:"Results to skip"`
}

// ListSubjectRolesRequest gets the directly-held roles of a subject.
type ListSubjectRolesRequest struct {
	SubjectID string `path:"subjectId" description:"Subject ID"`
}

// ──────────────────────────────────────────────────
// Subject requests
// ──────────────────────────────────────────────────

// UpsertSubjectRequest is the body for creating or refreshing a subject
// record.
type UpsertSubjectRequest struct {
	TenantID    string         `json:"tenant_id,omitempty" description:"Tenant scope"`
	SubjectID   string         `json:"subject_id" description:"External subject identifier"`
	DisplayName string         `json:"display_name,omitempty" description:"Human-readable name"`
	Attributes  map[string]any `json:"attributes,omitempty" description:"Subject attributes"`
}

// GetSubjectRequest is the path parameter for a subject record.
type GetSubjectRequest struct {
	SubjectID string `path:"subjectId" description:"External subject ID"`
}

// ListSubjectsRequest holds query parameters.
type ListSubjectsRequest struct {
	TenantID string `query:"tenant_id" description:"Filter by tenant"`
	Search   string `query:"search" description:"Search by display name"`
	Limit    int    `query:"limit" description:"Maximum results"`
	Offset   int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Token requests
// ──────────────────────────────────────────────────

// IssueTokenRequest is the body for credential login and token issuance.
type IssueTokenRequest struct {
	Identifier string `json:"identifier" description:"Identity being claimed (username, client id)"`
	Secret     string `json:"secret" description:"Credential proof (password, client secret)"`
	TTLSeconds int    `json:"ttl_seconds,omitempty" description:"Token lifetime in seconds (0 = service default)"`
}

// ValidateTokenRequest is the body for token validation.
type ValidateTokenRequest struct {
	Token string `json:"token" description:"Signed token to validate"`
}
