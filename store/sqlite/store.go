// Package sqlite provides a SQLite implementation of the Bastion
// composite store.
//
// Every mutation claims the next row in bastion_changes inside its
// transaction. The primary key on the version column makes concurrent
// claims conflict, so the loser retries against fresh reads; the change
// log doubles as the global version counter and the change stream.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/event"
	"github.com/xraph/bastion/hierarchy"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/rule"
	"github.com/xraph/bastion/store"
	"github.com/xraph/bastion/subject"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

const (
	defaultPollInterval = 250 * time.Millisecond
	maxWriteAttempts    = 5
	retryBackoff        = 25 * time.Millisecond
)

// Store is a SQLite implementation of the composite Bastion store.
type Store struct {
	db   *grove.DB
	sdb  *sqlitedriver.SqliteDB
	poll time.Duration
}

// Option configures the SQLite store.
type Option func(*Store)

// WithPollInterval sets how often change-stream subscribers poll for
// new change rows.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) { s.poll = d }
}

// New creates a new SQLite store.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:   db,
		sdb:  sqlitedriver.Unwrap(db),
		poll: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("bastion/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("bastion/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// structural reports whether an error is a definite outcome that must
// not be retried, as opposed to a transient backend failure.
func structural(err error) bool {
	for _, sentinel := range []error{
		bastion.ErrInvalidPattern,
		bastion.ErrRuleNotFound,
		bastion.ErrEdgeNotFound,
		bastion.ErrAssignmentNotFound,
		bastion.ErrSubjectNotFound,
		bastion.ErrCycle,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// withRetry runs fn until it succeeds, fails structurally, or the
// attempt budget is exhausted. Exhaustion reports the store as
// unavailable rather than surfacing the last transient error.
func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if structural(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff << attempt):
		}
	}
	return fmt.Errorf("bastion/sqlite: %s: %v: %w", op, err, bastion.ErrStoreUnavailable)
}

// currentVersion returns the version of the newest change row, or zero
// when no mutation has happened yet.
func (s *Store) currentVersion(ctx context.Context) (uint64, error) {
	m := new(changeModel)
	err := s.sdb.NewSelect(m).OrderExpr("version DESC").Limit(1).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("bastion: read version: %w", err)
	}
	return m.Version, nil
}

// ──────────────────────────────────────────────────
// Rule operations
// ──────────────────────────────────────────────────

func (s *Store) PutRule(ctx context.Context, r *rule.Rule) error {
	for _, p := range []string{r.Subject, r.Resource, r.Action} {
		if err := bastion.ValidatePattern(p); err != nil {
			return err
		}
	}
	if !r.Effect.Valid() {
		return fmt.Errorf("bastion: invalid effect %q", r.Effect)
	}

	return s.withRetry(ctx, "put rule", func() error {
		cur, err := s.currentVersion(ctx)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		existing := new(ruleModel)
		err = s.sdb.NewSelect(existing).Where("id = ?", r.ID.String()).Scan(ctx)
		switch {
		case err == nil:
			r.CreatedAt = existing.CreatedAt
		case isNoRows(err):
			r.CreatedAt = now
		default:
			return fmt.Errorf("bastion: put rule: %w", err)
		}
		r.UpdatedAt = now
		r.Version = cur + 1

		m, err := ruleToModel(r)
		if err != nil {
			return fmt.Errorf("bastion: put rule: %w", err)
		}

		tx, err := s.sdb.BeginTxQuery(ctx, nil)
		if err != nil {
			return fmt.Errorf("bastion: begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

		change := &changeModel{Version: cur + 1, Kind: string(event.KindRulePut), Entity: r.ID.String(), CreatedAt: now}
		if _, err := tx.NewInsert(change).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: claim version: %w", err)
		}
		if _, err := tx.NewDelete((*ruleModel)(nil)).Where("id = ?", r.ID.String()).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: put rule: %w", err)
		}
		if _, err := tx.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: put rule: %w", err)
		}
		return tx.Commit()
	})
}

func (s *Store) GetRule(ctx context.Context, ruleID id.RuleID) (*rule.Rule, error) {
	m := new(ruleModel)
	err := s.sdb.NewSelect(m).Where("id = ?", ruleID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("rule %s: %w", ruleID, bastion.ErrRuleNotFound)
		}
		return nil, fmt.Errorf("bastion: get rule: %w", err)
	}
	r, err := ruleFromModel(m)
	if err != nil {
		return nil, fmt.Errorf("bastion: get rule: %w", err)
	}
	return r, nil
}

func (s *Store) DeleteRule(ctx context.Context, ruleID id.RuleID) error {
	return s.withRetry(ctx, "delete rule", func() error {
		cur, err := s.currentVersion(ctx)
		if err != nil {
			return err
		}

		tx, err := s.sdb.BeginTxQuery(ctx, nil)
		if err != nil {
			return fmt.Errorf("bastion: begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

		change := &changeModel{Version: cur + 1, Kind: string(event.KindRuleDeleted), Entity: ruleID.String(), CreatedAt: time.Now().UTC()}
		if _, err := tx.NewInsert(change).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: claim version: %w", err)
		}
		res, err := tx.NewDelete((*ruleModel)(nil)).Where("id = ?", ruleID.String()).Exec(ctx)
		if err != nil {
			return fmt.Errorf("bastion: delete rule: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("bastion: delete rule rows: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("rule %s: %w", ruleID, bastion.ErrRuleNotFound)
		}
		return tx.Commit()
	})
}

func (s *Store) ListRules(ctx context.Context, filter *rule.ListFilter) ([]*rule.Rule, error) {
	var models []ruleModel
	q := s.sdb.NewSelect(&models).OrderExpr("id ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Effect != "" {
			q = q.Where("effect = ?", string(filter.Effect))
		}
		if filter.Search != "" {
			q = q.Where("LOWER(description) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion: list rules: %w", err)
	}
	result := make([]*rule.Rule, len(models))
	for i := range models {
		r, err := ruleFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("bastion: list rules: %w", err)
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) CountRules(ctx context.Context, filter *rule.ListFilter) (int64, error) {
	q := s.sdb.NewSelect((*ruleModel)(nil))
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Effect != "" {
			q = q.Where("effect = ?", string(filter.Effect))
		}
		if filter.Search != "" {
			q = q.Where("LOWER(description) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("bastion: count rules: %w", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Hierarchy operations
// ──────────────────────────────────────────────────

func (s *Store) AddRoleEdge(ctx context.Context, e *hierarchy.Edge) error {
	if e.Child == e.Parent {
		return fmt.Errorf("edge %s -> %s: %w", e.Child, e.Parent, bastion.ErrCycle)
	}

	return s.withRetry(ctx, "add role edge", func() error {
		cur, err := s.currentVersion(ctx)
		if err != nil {
			return err
		}

		// The reachability check runs against the edge set as of cur;
		// a concurrent mutation invalidates the version claim below and
		// forces a retry against fresh edges.
		edges, err := s.ListEdges(ctx, nil)
		if err != nil {
			return err
		}
		snap := hierarchy.NewSnapshot(edges)
		if snap.Reachable(e.Parent, e.Child) {
			return fmt.Errorf("edge %s -> %s: %w", e.Child, e.Parent, bastion.ErrCycle)
		}

		e.CreatedAt = time.Now().UTC()

		tx, err := s.sdb.BeginTxQuery(ctx, nil)
		if err != nil {
			return fmt.Errorf("bastion: begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

		change := &changeModel{Version: cur + 1, Kind: string(event.KindEdgeAdded), Entity: e.ID.String(), CreatedAt: e.CreatedAt}
		if _, err := tx.NewInsert(change).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: claim version: %w", err)
		}
		if _, err := tx.NewInsert(edgeToModel(e)).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: add role edge: %w", err)
		}
		return tx.Commit()
	})
}

func (s *Store) RemoveRoleEdge(ctx context.Context, edgeID id.EdgeID) error {
	return s.withRetry(ctx, "remove role edge", func() error {
		cur, err := s.currentVersion(ctx)
		if err != nil {
			return err
		}

		tx, err := s.sdb.BeginTxQuery(ctx, nil)
		if err != nil {
			return fmt.Errorf("bastion: begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

		change := &changeModel{Version: cur + 1, Kind: string(event.KindEdgeRemoved), Entity: edgeID.String(), CreatedAt: time.Now().UTC()}
		if _, err := tx.NewInsert(change).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: claim version: %w", err)
		}
		res, err := tx.NewDelete((*edgeModel)(nil)).Where("id = ?", edgeID.String()).Exec(ctx)
		if err != nil {
			return fmt.Errorf("bastion: remove role edge: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("bastion: remove role edge rows: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("edge %s: %w", edgeID, bastion.ErrEdgeNotFound)
		}
		return tx.Commit()
	})
}

func (s *Store) ListEdges(ctx context.Context, filter *hierarchy.ListFilter) ([]*hierarchy.Edge, error) {
	var models []edgeModel
	q := s.sdb.NewSelect(&models).OrderExpr("id ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Child != "" {
			q = q.Where("child = ?", filter.Child)
		}
		if filter.Parent != "" {
			q = q.Where("parent = ?", filter.Parent)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion: list edges: %w", err)
	}
	result := make([]*hierarchy.Edge, len(models))
	for i := range models {
		result[i] = edgeFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Assignment operations
// ──────────────────────────────────────────────────

func (s *Store) AssignRole(ctx context.Context, a *assignment.Assignment) error {
	return s.withRetry(ctx, "assign role", func() error {
		cur, err := s.currentVersion(ctx)
		if err != nil {
			return err
		}
		a.CreatedAt = time.Now().UTC()

		tx, err := s.sdb.BeginTxQuery(ctx, nil)
		if err != nil {
			return fmt.Errorf("bastion: begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

		change := &changeModel{Version: cur + 1, Kind: string(event.KindRoleAssigned), Entity: a.ID.String(), CreatedAt: a.CreatedAt}
		if _, err := tx.NewInsert(change).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: claim version: %w", err)
		}
		if _, err := tx.NewInsert(assignmentToModel(a)).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: assign role: %w", err)
		}
		return tx.Commit()
	})
}

func (s *Store) UnassignRole(ctx context.Context, assignID id.AssignmentID) error {
	return s.withRetry(ctx, "unassign role", func() error {
		cur, err := s.currentVersion(ctx)
		if err != nil {
			return err
		}

		tx, err := s.sdb.BeginTxQuery(ctx, nil)
		if err != nil {
			return fmt.Errorf("bastion: begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

		change := &changeModel{Version: cur + 1, Kind: string(event.KindRoleUnassigned), Entity: assignID.String(), CreatedAt: time.Now().UTC()}
		if _, err := tx.NewInsert(change).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: claim version: %w", err)
		}
		res, err := tx.NewDelete((*assignmentModel)(nil)).Where("id = ?", assignID.String()).Exec(ctx)
		if err != nil {
			return fmt.Errorf("bastion: unassign role: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("bastion: unassign role rows: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("assignment %s: %w", assignID, bastion.ErrAssignmentNotFound)
		}
		return tx.Commit()
	})
}

func (s *Store) ListAssignments(ctx context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	q := s.sdb.NewSelect(&models).OrderExpr("id ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.SubjectID != "" {
			q = q.Where("subject_id = ?", filter.SubjectID)
		}
		if filter.Role != "" {
			q = q.Where("role = ?", filter.Role)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion: list assignments: %w", err)
	}
	result := make([]*assignment.Assignment, len(models))
	for i := range models {
		result[i] = assignmentFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) ListRolesForSubject(ctx context.Context, subjectID string) ([]string, error) {
	var models []assignmentModel
	err := s.sdb.NewSelect(&models).
		Where("subject_id = ?", subjectID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("bastion: list roles for subject: %w", err)
	}
	seen := make(map[string]struct{}, len(models))
	var roles []string
	for _, m := range models {
		if _, ok := seen[m.Role]; ok {
			continue
		}
		seen[m.Role] = struct{}{}
		roles = append(roles, m.Role)
	}
	sort.Strings(roles)
	return roles, nil
}

// ──────────────────────────────────────────────────
// Subject operations
// ──────────────────────────────────────────────────

func (s *Store) UpsertSubject(ctx context.Context, rec *subject.Record) error {
	return s.withRetry(ctx, "upsert subject", func() error {
		cur, err := s.currentVersion(ctx)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		existing := new(subjectModel)
		err = s.sdb.NewSelect(existing).Where("subject_id = ?", rec.SubjectID).Scan(ctx)
		switch {
		case err == nil:
			prev, err := subjectFromModel(existing)
			if err != nil {
				return fmt.Errorf("bastion: upsert subject: %w", err)
			}
			rec.ID = prev.ID
			rec.CreatedAt = prev.CreatedAt
		case isNoRows(err):
			if rec.ID.IsNil() {
				rec.ID = id.NewSubjectID()
			}
			rec.CreatedAt = now
		default:
			return fmt.Errorf("bastion: upsert subject: %w", err)
		}
		rec.UpdatedAt = now

		m, err := subjectToModel(rec)
		if err != nil {
			return fmt.Errorf("bastion: upsert subject: %w", err)
		}

		tx, err := s.sdb.BeginTxQuery(ctx, nil)
		if err != nil {
			return fmt.Errorf("bastion: begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

		change := &changeModel{Version: cur + 1, Kind: string(event.KindSubjectUpserted), Entity: rec.SubjectID, CreatedAt: now}
		if _, err := tx.NewInsert(change).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: claim version: %w", err)
		}
		if _, err := tx.NewDelete((*subjectModel)(nil)).Where("subject_id = ?", rec.SubjectID).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: upsert subject: %w", err)
		}
		if _, err := tx.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: upsert subject: %w", err)
		}
		return tx.Commit()
	})
}

func (s *Store) GetSubject(ctx context.Context, subjectID string) (*subject.Record, error) {
	m := new(subjectModel)
	err := s.sdb.NewSelect(m).Where("subject_id = ?", subjectID).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("subject %q: %w", subjectID, bastion.ErrSubjectNotFound)
		}
		return nil, fmt.Errorf("bastion: get subject: %w", err)
	}
	rec, err := subjectFromModel(m)
	if err != nil {
		return nil, fmt.Errorf("bastion: get subject: %w", err)
	}
	return rec, nil
}

func (s *Store) ListSubjects(ctx context.Context, filter *subject.ListFilter) ([]*subject.Record, error) {
	var models []subjectModel
	q := s.sdb.NewSelect(&models).OrderExpr("subject_id ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Search != "" {
			q = q.Where("LOWER(display_name) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion: list subjects: %w", err)
	}
	result := make([]*subject.Record, len(models))
	for i := range models {
		rec, err := subjectFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("bastion: list subjects: %w", err)
		}
		result[i] = rec
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Versioning and change stream
// ──────────────────────────────────────────────────

func (s *Store) Version(ctx context.Context) (uint64, error) {
	return s.currentVersion(ctx)
}

// SubscribeChanges starts a poller that tails bastion_changes. Each
// subscriber tracks its own cursor, so writers never interact with
// consumers and a slow consumer only delays its own stream.
func (s *Store) SubscribeChanges(ctx context.Context) (<-chan event.Change, error) {
	last, err := s.currentVersion(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan event.Change, 16)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			var models []changeModel
			err := s.sdb.NewSelect(&models).
				Where("version > ?", last).
				OrderExpr("version ASC").
				Scan(ctx)
			if err != nil {
				continue // transient; the next tick retries from the same cursor
			}
			for _, m := range models {
				select {
				case out <- changeFromModel(&m):
					last = m.Version
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
