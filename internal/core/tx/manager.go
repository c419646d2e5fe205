// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces, not on a specific database;
// the pgx implementation lives in infrastructure/storage/postgres and an
// in-memory implementation backs the unit tests.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
// Implementations handle BEGIN, COMMIT, ROLLBACK, and nested calls.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context. The ledger
	// relies on this: a purchase order receive opens one transaction and
	// every per-line ledger apply joins it, so a failing line rolls back
	// the stock added by earlier lines.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transaction support.
// Use for queries that don't modify data (better performance, no locks).
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	// Attempts to modify data will fail.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
