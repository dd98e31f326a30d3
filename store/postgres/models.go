package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/event"
	"github.com/xraph/bastion/hierarchy"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/rule"
	"github.com/xraph/bastion/subject"
)

// ──────────────────────────────────────────────────
// Rule model
// ──────────────────────────────────────────────────

type ruleModel struct {
	grove.BaseModel `grove:"table:bastion_rules"`
	ID              string           `grove:"id,pk"`
	TenantID        string           `grove:"tenant_id,notnull"`
	Description     string           `grove:"description"`
	Subject         string           `grove:"subject,notnull"`
	Resource        string           `grove:"resource,notnull"`
	Action          string           `grove:"action,notnull"`
	Effect          string           `grove:"effect,notnull"`
	Priority        int              `grove:"priority,notnull"`
	Conditions      []rule.Condition `grove:"conditions,type:jsonb"`
	Version         uint64           `grove:"version,notnull"`
	CreatedAt       time.Time        `grove:"created_at,notnull"`
	UpdatedAt       time.Time        `grove:"updated_at,notnull"`
}

func ruleToModel(r *rule.Rule) *ruleModel {
	return &ruleModel{
		ID:          r.ID.String(),
		TenantID:    r.TenantID,
		Description: r.Description,
		Subject:     r.Subject,
		Resource:    r.Resource,
		Action:      r.Action,
		Effect:      string(r.Effect),
		Priority:    r.Priority,
		Conditions:  r.Conditions,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func ruleFromModel(m *ruleModel) *rule.Rule {
	rid, _ := id.ParseRuleID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &rule.Rule{
		ID:          rid,
		TenantID:    m.TenantID,
		Description: m.Description,
		Subject:     m.Subject,
		Resource:    m.Resource,
		Action:      m.Action,
		Effect:      rule.Effect(m.Effect),
		Priority:    m.Priority,
		Conditions:  m.Conditions,
		Version:     m.Version,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Edge model
// ──────────────────────────────────────────────────

type edgeModel struct {
	grove.BaseModel `grove:"table:bastion_role_edges"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Child           string    `grove:"child,notnull"`
	Parent          string    `grove:"parent,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func edgeToModel(e *hierarchy.Edge) *edgeModel {
	return &edgeModel{
		ID:        e.ID.String(),
		TenantID:  e.TenantID,
		Child:     e.Child,
		Parent:    e.Parent,
		CreatedAt: e.CreatedAt,
	}
}

func edgeFromModel(m *edgeModel) *hierarchy.Edge {
	eid, _ := id.ParseEdgeID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &hierarchy.Edge{
		ID:        eid,
		TenantID:  m.TenantID,
		Child:     m.Child,
		Parent:    m.Parent,
		CreatedAt: m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Assignment model
// ──────────────────────────────────────────────────

type assignmentModel struct {
	grove.BaseModel `grove:"table:bastion_assignments"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	SubjectID       string    `grove:"subject_id,notnull"`
	Role            string    `grove:"role,notnull"`
	GrantedBy       string    `grove:"granted_by"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func assignmentToModel(a *assignment.Assignment) *assignmentModel {
	return &assignmentModel{
		ID:        a.ID.String(),
		TenantID:  a.TenantID,
		SubjectID: a.SubjectID,
		Role:      a.Role,
		GrantedBy: a.GrantedBy,
		CreatedAt: a.CreatedAt,
	}
}

func assignmentFromModel(m *assignmentModel) *assignment.Assignment {
	aid, _ := id.ParseAssignmentID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &assignment.Assignment{
		ID:        aid,
		TenantID:  m.TenantID,
		SubjectID: m.SubjectID,
		Role:      m.Role,
		GrantedBy: m.GrantedBy,
		CreatedAt: m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Subject model
// ──────────────────────────────────────────────────

type subjectModel struct {
	grove.BaseModel `grove:"table:bastion_subjects"`
	ID              string         `grove:"id,pk"`
	TenantID        string         `grove:"tenant_id,notnull"`
	SubjectID       string         `grove:"subject_id,notnull"`
	DisplayName     string         `grove:"display_name"`
	Attributes      map[string]any `grove:"attributes,type:jsonb"`
	CreatedAt       time.Time      `grove:"created_at,notnull"`
	UpdatedAt       time.Time      `grove:"updated_at,notnull"`
}

func subjectToModel(rec *subject.Record) *subjectModel {
	return &subjectModel{
		ID:          rec.ID.String(),
		TenantID:    rec.TenantID,
		SubjectID:   rec.SubjectID,
		DisplayName: rec.DisplayName,
		Attributes:  rec.Attributes,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func subjectFromModel(m *subjectModel) *subject.Record {
	sid, _ := id.ParseSubjectID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &subject.Record{
		ID:          sid,
		TenantID:    m.TenantID,
		SubjectID:   m.SubjectID,
		DisplayName: m.DisplayName,
		Attributes:  m.Attributes,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Change model
// ──────────────────────────────────────────────────

type changeModel struct {
	grove.BaseModel `grove:"table:bastion_changes"`
	Version         uint64    `grove:"version,pk"`
	Kind            string    `grove:"kind,notnull"`
	Entity          string    `grove:"entity,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func changeFromModel(m *changeModel) event.Change {
	return event.Change{
		Version: m.Version,
		Kind:    event.Kind(m.Kind),
		Entity:  m.Entity,
	}
}
