// Package store defines the engine's view of the datastore. Concrete
// backends live under infra/store; everything the engine needs from them
// is expressed here so the core stays portable.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/acasal/alertd/core/model"
)

var (
	// ErrNotFound reports that the requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrResourceConflict reports that the resource targeted by an
	// assignment was claimed concurrently. The caller may retry against a
	// fresh candidate set exactly once before degrading to a pending
	// outcome.
	ErrResourceConflict = errors.New("store: resource already claimed")
)

// PersistenceError wraps a datastore failure. It is surfaced to the
// ingestion transport, which decides whether the message is redelivered;
// the engine never retries these automatically.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AlertFilter narrows ListAlerts results.
type AlertFilter struct {
	State model.AlertState
	Limit int
}

// Store is the persistence contract for alerts, resources and
// assignments. Assign and ResolveAlert are the two multi-row mutations and
// must be all-or-nothing: an observer must never see an alert assigned
// while its resource is still available, or resolved while the resource is
// still held.
type Store interface {
	// CreateAlert inserts the alert in state reported and fills in the
	// store-assigned identifier and creation timestamp.
	CreateAlert(ctx context.Context, a *model.Alert) error

	// GetAlert returns ErrNotFound for unknown identifiers.
	GetAlert(ctx context.Context, id int64) (model.Alert, error)

	ListAlerts(ctx context.Context, f AlertFilter) ([]model.Alert, error)

	// AvailableResources returns the resources of the given category that
	// are currently available. The snapshot is advisory: availability may
	// change before an assignment lands, which Assign detects.
	AvailableResources(ctx context.Context, c model.Category) ([]model.Resource, error)

	// Assign atomically records the assignment, marks the resource
	// unavailable and transitions the alert to assigned. It fails with
	// ErrResourceConflict when the resource is no longer available.
	Assign(ctx context.Context, a model.Assignment) (model.Assignment, error)

	// ResolveAlert atomically transitions the alert to resolved and
	// releases a held resource. resolved is false, without error, when the
	// alert is unknown or already resolved; released reports whether a
	// resource row was actually returned to the pool, which is false for
	// alerts that never got an assignment.
	ResolveAlert(ctx context.Context, alertID int64) (resolved, released bool, err error)

	// SeedResources loads reference data, skipping rows that already
	// exist.
	SeedResources(ctx context.Context, rs []model.Resource) error

	Close() error
}
