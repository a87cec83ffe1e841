// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"

	"github.com/good-yellow-bee/emberwatch/internal/models"
	"github.com/good-yellow-bee/emberwatch/internal/query"
)

// LogStore defines the query capabilities the core needs from the log
// store. The store's own indexing and search internals are out of scope;
// this contract is consumed, not reimplemented.
type LogStore interface {
	// Insert writes a batch of events.
	Insert(ctx context.Context, events []*models.LogEvent) error

	// Count returns the number of events matching the predicate.
	Count(ctx context.Context, pred query.Predicate) (int64, error)

	// Aggregate executes the named aggregation scoped by the predicate.
	Aggregate(ctx context.Context, pred query.Predicate, name string, spec query.AggSpec) (*query.Results, error)

	// Search returns one page of matching events sorted by timestamp
	// descending, along with the total hit count.
	Search(ctx context.Context, pred query.Predicate, page, size int) ([]*models.LogEvent, int64, error)

	// DistinctServices returns the distinct service names present in the
	// store, capped at limit.
	DistinctServices(ctx context.Context, limit int) ([]string, error)

	// Ping checks the connection health.
	Ping(ctx context.Context) error
}

// AlertStore defines alert persistence operations.
type AlertStore interface {
	// FindByStatus returns all alerts with the given status, newest
	// openedAt first.
	FindByStatus(ctx context.Context, status models.AlertStatus) ([]*models.Alert, error)

	// FindLatestOpen returns the most recently opened OPEN alert for the
	// (serviceName, ruleID) pair, or nil when none exists.
	FindLatestOpen(ctx context.Context, serviceName, ruleID string) (*models.Alert, error)

	// OpenOrUpdate atomically updates the latest OPEN alert for the
	// candidate's (serviceName, ruleID) pair, or inserts the candidate as
	// a new OPEN alert when none exists, reporting whether a new alert
	// was created. This is the only write path that creates OPEN alerts,
	// preserving the at-most-one-OPEN invariant under concurrent
	// evaluators.
	OpenOrUpdate(ctx context.Context, candidate *models.Alert) (*models.Alert, bool, error)

	// Save persists changes to an existing alert by ID.
	Save(ctx context.Context, alert *models.Alert) error

	// CountByStatus returns the number of alerts with the given status.
	CountByStatus(ctx context.Context, status models.AlertStatus) (int64, error)

	// FindAll returns every alert, newest openedAt first.
	FindAll(ctx context.Context) ([]*models.Alert, error)
}
