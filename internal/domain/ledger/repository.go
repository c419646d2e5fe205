package ledger

import (
	"context"
	"time"

	"pharmstock/internal/core/id"
)

// HistoryFilter narrows movement history queries.
type HistoryFilter struct {
	Kind *Kind
	From *time.Time
	To   *time.Time
}

// Page is offset pagination for history queries.
type Page struct {
	Limit  int
	Offset int
}

// Repository persists movements. Implementations must enforce uniqueness of
// (item_id, kind, idempotency_key) for non-nil keys at the storage level:
// the pre-insert existence check alone is racy.
type Repository interface {
	// Create appends a movement. Returns DuplicateMovement when the
	// idempotency key is already used for this item and kind.
	Create(ctx context.Context, m *Movement) error

	GetByID(ctx context.Context, movementID id.ID) (*Movement, error)

	// ExistsByKey reports whether a movement with this idempotency key
	// already exists for the item and kind. Used as a cheap pre-check
	// before lock acquisition; the unique constraint remains the
	// authoritative guard.
	ExistsByKey(ctx context.Context, itemID id.ID, kind Kind, key string) (bool, error)

	ListByItem(ctx context.Context, itemID id.ID, filter HistoryFilter, page Page) ([]Movement, error)

	// SumDeltas replays the ledger for one item. Supports rebuilding the
	// cached stock quantity and verifying the conservation invariant.
	SumDeltas(ctx context.Context, itemID id.ID) (int64, error)
}
