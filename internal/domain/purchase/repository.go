package purchase

import (
	"context"

	"pharmstock/internal/core/id"
)

// Filter narrows order listings.
type Filter struct {
	Status *Status
	Limit  int
	Offset int
}

// Repository persists purchase orders and their lines.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)
	List(ctx context.Context, filter Filter) ([]Order, error)

	// UpdateStatus writes the status and audit fields, guarded by the
	// expected current status so concurrent transitions cannot both win.
	// Returns InvalidTransition when the row is no longer in expected.
	UpdateStatus(ctx context.Context, order *Order, expected Status) error

	// ReplaceLines rewrites the order's lines. Only valid in DRAFT.
	ReplaceLines(ctx context.Context, orderID id.ID, lines []Line) error
}
