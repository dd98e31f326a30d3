package bastion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/xraph/bastion/hierarchy"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/rule"
	"github.com/xraph/bastion/store"
)

// Engine is the central authorization engine. It pins a store version
// per check, resolves effective roles over an immutable hierarchy
// snapshot, evaluates pattern rules with deny-override, and fails
// closed on anything it cannot answer.
type Engine struct {
	store     store.Store
	evaluator Evaluator
	resolver  Resolver
	cache     Cache
	plugins   *plugin.Registry
	logger    *slog.Logger
	config    Config

	snapshot    atomic.Pointer[versionedSnapshot]
	lastApplied atomic.Uint64
	cancel      context.CancelFunc
	done        chan struct{}
}

// versionedSnapshot pairs a hierarchy snapshot with the store version it
// was built at. The pair is published through a single atomic pointer so
// a reader never sees a snapshot with a mismatched version claim.
type versionedSnapshot struct {
	snap    *hierarchy.Snapshot
	version uint64
}

// NewEngine creates a new Bastion engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		evaluator: DefaultEvaluator(),
		logger:    slog.Default(),
		config:    DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("bastion: store is required")
	}
	if e.resolver == nil {
		e.resolver = DefaultResolver(e.config.MaxInheritDepth)
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Start loads the hierarchy snapshot and launches the change consumer
// that keeps it current. Check works without Start, but then rebuilds
// the snapshot from the store on every call.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.reloadSnapshot(ctx); err != nil {
		return fmt.Errorf("bastion start: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	changes, err := e.store.SubscribeChanges(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("bastion start: %w", err)
	}
	e.cancel = cancel
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)
		for ch := range changes {
			// Deliveries are at-least-once; drop anything already applied.
			if ch.Version <= e.lastApplied.Load() {
				continue
			}
			e.lastApplied.Store(ch.Version)
			if !ch.Kind.HierarchyChanged() {
				continue
			}
			if err := e.reloadSnapshot(runCtx); err != nil {
				e.logger.Error("hierarchy snapshot reload failed",
					slog.Uint64("version", ch.Version),
					slog.String("error", err.Error()),
				)
			}
		}
	}()
	return nil
}

// Stop shuts down the change consumer and notifies shutdown plugins.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
		select {
		case <-e.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		e.cancel = nil
	}
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// Check performs an authorization check. This is the hot path.
//
// Any error means "not authorized": the caller must deny. A deadline
// hit anywhere in the pipeline surfaces as ErrTimeout, never as a
// stale or permissive answer.
func (e *Engine) Check(ctx context.Context, req *CheckRequest) (*Decision, error) {
	start := time.Now()
	if e.config.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.CheckTimeout)
		defer cancel()
	}
	scope := scopeFromContext(ctx)

	// 1. Pin the store version for this check.
	version, err := e.store.Version(ctx)
	if err != nil {
		return nil, e.checkErr("pin version", err)
	}

	// 2. Cache hit at the pinned version?
	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, scope.tenantID, req, version); ok {
			dec := *cached
			dec.EvalTimeNs = time.Since(start).Nanoseconds()
			return &dec, nil
		}
	}

	// 2b. Extension hook: before check.
	if e.plugins != nil {
		e.plugins.EmitBeforeCheck(ctx, req)
	}

	// 3. Unknown-subject handling.
	if e.config.StrictSubjects {
		if _, err := e.store.GetSubject(ctx, req.Subject.ID); err != nil {
			if errors.Is(err, ErrSubjectNotFound) {
				return nil, fmt.Errorf("subject %q: %w", req.Subject.ID, ErrSubjectUnknown)
			}
			return nil, e.checkErr("load subject", err)
		}
	}

	// 4. Effective roles: direct assignments plus inherited.
	direct, err := e.store.ListRolesForSubject(ctx, req.Subject.ID)
	if err != nil {
		return nil, e.checkErr("list roles", err)
	}
	snap, err := e.currentSnapshot(ctx, version)
	if err != nil {
		return nil, e.checkErr("load hierarchy", err)
	}
	roles, err := e.resolver.EffectiveRoles(direct, snap)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}

	// 5. Evaluate rules with deny-override.
	rules, err := e.store.ListRules(ctx, &rule.ListFilter{TenantID: scope.tenantID})
	if err != nil {
		return nil, e.checkErr("list rules", err)
	}
	dec, err := e.evaluator.Evaluate(ctx, rules, roles, req)
	if err != nil {
		return nil, e.checkErr("evaluate", err)
	}
	if dec == nil {
		dec = &Decision{
			Allowed: false,
			Code:    DecisionDenyDefault,
			Reason:  "no matching rule",
		}
	}

	// 6. Refuse to answer past the deadline, even with a result in hand.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, e.checkErr("finalize", ctxErr)
	}

	dec.StoreVersion = version
	dec.EvaluatedAt = start
	dec.EvalTimeNs = time.Since(start).Nanoseconds()

	// 7. Cache the decision at the pinned version.
	if e.cache != nil {
		e.cache.Set(ctx, scope.tenantID, req, version, dec)
	}

	// 8. Extension hook: after check.
	if e.plugins != nil {
		e.plugins.EmitAfterCheck(ctx, req, dec)
	}

	return dec, nil
}

// Enforce returns an error if the authorization check is denied.
func (e *Engine) Enforce(ctx context.Context, req *CheckRequest) error {
	dec, err := e.Check(ctx, req)
	if err != nil {
		return fmt.Errorf("bastion check: %w", err)
	}
	if !dec.Allowed {
		return fmt.Errorf("%w: %s: %s", ErrAccessDenied, dec.Code, dec.Reason)
	}
	return nil
}

// CanI is a shorthand for a simple authorization check.
func (e *Engine) CanI(ctx context.Context, subjectID, action, resource string) (bool, error) {
	dec, err := e.Check(ctx, &CheckRequest{
		Subject:  Subject{ID: subjectID},
		Resource: resource,
		Action:   action,
	})
	if err != nil {
		return false, err
	}
	return dec.Allowed, nil
}

// currentSnapshot returns a hierarchy snapshot at least as fresh as the
// pinned store version. The live snapshot is used when its version claim
// covers the pin; otherwise (change consumer not running, or still
// catching up on an edge write) the snapshot is rebuilt from the store,
// so a decision cached under the pinned version never reflects an older
// hierarchy.
func (e *Engine) currentSnapshot(ctx context.Context, pinned uint64) (*hierarchy.Snapshot, error) {
	if vs := e.snapshot.Load(); vs != nil && vs.version >= pinned {
		return vs.snap, nil
	}
	edges, err := e.store.ListEdges(ctx, nil)
	if err != nil {
		return nil, err
	}
	return hierarchy.NewSnapshot(edges), nil
}

// reloadSnapshot rebuilds the snapshot from the store and swaps it in.
// The version is read before the edges, so the claim is conservative: a
// concurrent write makes the edge list newer than the claim, never older.
func (e *Engine) reloadSnapshot(ctx context.Context) error {
	version, err := e.store.Version(ctx)
	if err != nil {
		return err
	}
	edges, err := e.store.ListEdges(ctx, nil)
	if err != nil {
		return err
	}
	e.snapshot.Store(&versionedSnapshot{snap: hierarchy.NewSnapshot(edges), version: version})
	return nil
}

// checkErr maps context deadline errors to ErrTimeout and wraps the rest.
func (e *Engine) checkErr(stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", stage, ErrTimeout)
	}
	return fmt.Errorf("%s: %w", stage, err)
}
