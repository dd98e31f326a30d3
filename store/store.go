// Package store defines the aggregate persistence interface for policy
// data. Each subsystem (rule, hierarchy, assignment, subject) defines
// its own store interface; the composite Store composes them all and
// adds the version counter and change stream.
// Backends: Postgres, SQLite, and Memory.
package store

import (
	"context"

	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/event"
	"github.com/xraph/bastion/hierarchy"
	"github.com/xraph/bastion/rule"
	"github.com/xraph/bastion/subject"
)

// Store is the aggregate persistence interface. A single backend
// implements all subsystem stores plus versioning and notification.
//
// Every successful mutation increments the global version by exactly
// one and emits one event.Change carrying the new version. Mutations
// are serialized: the version counter is linearizable, and a caller
// that completed a write observes a Version at or past it.
type Store interface {
	rule.Store
	hierarchy.Store
	assignment.Store
	subject.Store

	// Version returns the current global store version.
	Version(ctx context.Context) (uint64, error)

	// SubscribeChanges returns an ordered, at-least-once stream of
	// change notifications. The channel closes when ctx is canceled or
	// the store shuts down. Slow consumers never block writers.
	SubscribeChanges(ctx context.Context) (<-chan event.Change, error)

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store.
	Close() error
}
