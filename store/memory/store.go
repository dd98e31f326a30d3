// Package memory provides an in-memory implementation of the Bastion
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/event"
	"github.com/xraph/bastion/hierarchy"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/rule"
	"github.com/xraph/bastion/store"
	"github.com/xraph/bastion/subject"
)

// Compile-time interface checks.
var (
	_ rule.Store       = (*Store)(nil)
	_ hierarchy.Store  = (*Store)(nil)
	_ assignment.Store = (*Store)(nil)
	_ subject.Store    = (*Store)(nil)
	_ store.Store      = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all Bastion entities.
//
// Mutations are serialized by a single mutex; each one increments the
// global version and queues exactly one change notification before the
// lock is released, so subscribers observe changes in version order.
type Store struct {
	mu sync.RWMutex

	version     uint64
	rules       map[string]*rule.Rule
	edges       map[string]*hierarchy.Edge
	assignments map[string]*assignment.Assignment
	subjects    map[string]*subject.Record // keyed by external subject ID

	subs    map[int]*subscriber
	nextSub int
	closed  bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		rules:       make(map[string]*rule.Rule),
		edges:       make(map[string]*hierarchy.Edge),
		assignments: make(map[string]*assignment.Assignment),
		subjects:    make(map[string]*subject.Record),
		subs:        make(map[int]*subscriber),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close shuts down the store and closes all subscriber channels.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, sub := range s.subs {
		sub.stop()
	}
	s.subs = map[int]*subscriber{}
	return nil
}

// ──────────────────────────────────────────────────
// Rule Store
// ──────────────────────────────────────────────────

func (s *Store) PutRule(_ context.Context, r *rule.Rule) error {
	for _, p := range []string{r.Subject, r.Resource, r.Action} {
		if err := bastion.ValidatePattern(p); err != nil {
			return err
		}
	}
	if !r.Effect.Valid() {
		return fmt.Errorf("bastion: invalid effect %q", r.Effect)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if existing, ok := s.rules[r.ID.String()]; ok {
		r.CreatedAt = existing.CreatedAt
	} else {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	r.Version = s.version + 1
	s.rules[r.ID.String()] = copyRule(r)
	s.bump(event.KindRulePut, r.ID.String())
	return nil
}

func (s *Store) GetRule(_ context.Context, ruleID id.RuleID) (*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[ruleID.String()]
	if !ok {
		return nil, fmt.Errorf("rule %s: %w", ruleID, bastion.ErrRuleNotFound)
	}
	return copyRule(r), nil
}

func (s *Store) DeleteRule(_ context.Context, ruleID id.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[ruleID.String()]; !ok {
		return fmt.Errorf("rule %s: %w", ruleID, bastion.ErrRuleNotFound)
	}
	delete(s.rules, ruleID.String())
	s.bump(event.KindRuleDeleted, ruleID.String())
	return nil
}

func (s *Store) ListRules(_ context.Context, filter *rule.ListFilter) ([]*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*rule.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if filter != nil {
			if filter.TenantID != "" && r.TenantID != filter.TenantID {
				continue
			}
			if filter.Effect != "" && r.Effect != filter.Effect {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(r.Description), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyRule(r))
	}
	sortByID(result, func(r *rule.Rule) string { return r.ID.String() })
	return applyPagination(result, paginationOpts(filter)), nil
}

func (s *Store) CountRules(ctx context.Context, filter *rule.ListFilter) (int64, error) {
	if filter != nil {
		f := *filter
		f.Limit = 0
		f.Offset = 0
		filter = &f
	}
	list, err := s.ListRules(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

// ──────────────────────────────────────────────────
// Hierarchy Store
// ──────────────────────────────────────────────────

func (s *Store) AddRoleEdge(_ context.Context, e *hierarchy.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Child == e.Parent {
		return fmt.Errorf("edge %s -> %s: %w", e.Child, e.Parent, bastion.ErrCycle)
	}
	snap := hierarchy.NewSnapshot(s.edgeList())
	if snap.Reachable(e.Parent, e.Child) {
		return fmt.Errorf("edge %s -> %s: %w", e.Child, e.Parent, bastion.ErrCycle)
	}
	e.CreatedAt = time.Now()
	s.edges[e.ID.String()] = copyEdge(e)
	s.bump(event.KindEdgeAdded, e.ID.String())
	return nil
}

func (s *Store) RemoveRoleEdge(_ context.Context, edgeID id.EdgeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.edges[edgeID.String()]; !ok {
		return fmt.Errorf("edge %s: %w", edgeID, bastion.ErrEdgeNotFound)
	}
	delete(s.edges, edgeID.String())
	s.bump(event.KindEdgeRemoved, edgeID.String())
	return nil
}

func (s *Store) ListEdges(_ context.Context, filter *hierarchy.ListFilter) ([]*hierarchy.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*hierarchy.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		if filter != nil {
			if filter.TenantID != "" && e.TenantID != filter.TenantID {
				continue
			}
			if filter.Child != "" && e.Child != filter.Child {
				continue
			}
			if filter.Parent != "" && e.Parent != filter.Parent {
				continue
			}
		}
		result = append(result, copyEdge(e))
	}
	sortByID(result, func(e *hierarchy.Edge) string { return e.ID.String() })
	var p pagOpts
	if filter != nil {
		p = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	return applyPagination(result, p), nil
}

// ──────────────────────────────────────────────────
// Assignment Store
// ──────────────────────────────────────────────────

func (s *Store) AssignRole(_ context.Context, a *assignment.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.CreatedAt = time.Now()
	s.assignments[a.ID.String()] = copyAssignment(a)
	s.bump(event.KindRoleAssigned, a.ID.String())
	return nil
}

func (s *Store) UnassignRole(_ context.Context, assignID id.AssignmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[assignID.String()]; !ok {
		return fmt.Errorf("assignment %s: %w", assignID, bastion.ErrAssignmentNotFound)
	}
	delete(s.assignments, assignID.String())
	s.bump(event.KindRoleUnassigned, assignID.String())
	return nil
}

func (s *Store) ListAssignments(_ context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*assignment.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		if filter != nil {
			if filter.TenantID != "" && a.TenantID != filter.TenantID {
				continue
			}
			if filter.SubjectID != "" && a.SubjectID != filter.SubjectID {
				continue
			}
			if filter.Role != "" && a.Role != filter.Role {
				continue
			}
		}
		result = append(result, copyAssignment(a))
	}
	sortByID(result, func(a *assignment.Assignment) string { return a.ID.String() })
	var p pagOpts
	if filter != nil {
		p = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	return applyPagination(result, p), nil
}

func (s *Store) ListRolesForSubject(_ context.Context, subjectID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var roles []string
	for _, a := range s.assignments {
		if a.SubjectID != subjectID {
			continue
		}
		if _, ok := seen[a.Role]; ok {
			continue
		}
		seen[a.Role] = struct{}{}
		roles = append(roles, a.Role)
	}
	sort.Strings(roles)
	return roles, nil
}

// ──────────────────────────────────────────────────
// Subject Store
// ──────────────────────────────────────────────────

func (s *Store) UpsertSubject(_ context.Context, rec *subject.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if existing, ok := s.subjects[rec.SubjectID]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	} else {
		if rec.ID.IsNil() {
			rec.ID = id.NewSubjectID()
		}
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	s.subjects[rec.SubjectID] = copySubject(rec)
	s.bump(event.KindSubjectUpserted, rec.SubjectID)
	return nil
}

func (s *Store) GetSubject(_ context.Context, subjectID string) (*subject.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.subjects[subjectID]
	if !ok {
		return nil, fmt.Errorf("subject %q: %w", subjectID, bastion.ErrSubjectNotFound)
	}
	return copySubject(rec), nil
}

func (s *Store) ListSubjects(_ context.Context, filter *subject.ListFilter) ([]*subject.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*subject.Record, 0, len(s.subjects))
	for _, rec := range s.subjects {
		if filter != nil {
			if filter.TenantID != "" && rec.TenantID != filter.TenantID {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(rec.DisplayName), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copySubject(rec))
	}
	sortByID(result, func(r *subject.Record) string { return r.SubjectID })
	var p pagOpts
	if filter != nil {
		p = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	return applyPagination(result, p), nil
}

// ──────────────────────────────────────────────────
// Versioning and change stream
// ──────────────────────────────────────────────────

func (s *Store) Version(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version, nil
}

// SubscribeChanges registers a subscriber. Each subscriber has its own
// unbounded queue drained by a pump goroutine, so a slow consumer never
// blocks writers or other subscribers.
func (s *Store) SubscribeChanges(ctx context.Context) (<-chan event.Change, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("subscribe: %w", bastion.ErrStoreUnavailable)
	}
	sub := newSubscriber()
	key := s.nextSub
	s.nextSub++
	s.subs[key] = sub
	s.mu.Unlock()

	go sub.pump()
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if cur, ok := s.subs[key]; ok && cur == sub {
			delete(s.subs, key)
			sub.stop()
		}
		s.mu.Unlock()
	}()

	return sub.out, nil
}

// bump increments the version and fans the change out to subscribers.
// Callers must hold the write lock.
func (s *Store) bump(kind event.Kind, entity string) {
	s.version++
	ch := event.Change{Version: s.version, Kind: kind, Entity: entity}
	for _, sub := range s.subs {
		sub.enqueue(ch)
	}
}

// edgeList returns the raw edge slice. Callers must hold the lock.
func (s *Store) edgeList() []*hierarchy.Edge {
	edges := make([]*hierarchy.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		edges = append(edges, e)
	}
	return edges
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func copyRule(r *rule.Rule) *rule.Rule {
	c := *r
	if r.Conditions != nil {
		c.Conditions = make([]rule.Condition, len(r.Conditions))
		copy(c.Conditions, r.Conditions)
	}
	return &c
}

func copyEdge(e *hierarchy.Edge) *hierarchy.Edge {
	c := *e
	return &c
}

func copyAssignment(a *assignment.Assignment) *assignment.Assignment {
	c := *a
	return &c
}

func copySubject(rec *subject.Record) *subject.Record {
	c := *rec
	if rec.Attributes != nil {
		c.Attributes = make(map[string]any, len(rec.Attributes))
		for k, v := range rec.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}

func sortByID[T any](items []*T, key func(*T) string) {
	sort.Slice(items, func(i, j int) bool { return key(items[i]) < key(items[j]) })
}

type pagOpts struct{ limit, offset int }

func paginationOpts(f *rule.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset > 0 && p.offset < len(items) {
		items = items[p.offset:]
	} else if p.offset >= len(items) && p.offset > 0 {
		return nil
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}
