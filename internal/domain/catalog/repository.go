package catalog

import (
	"context"

	"pharmstock/internal/core/id"
)

// Filter narrows item listings.
type Filter struct {
	Search   string // matches name or generic name, case-insensitive
	LowStock bool   // only items below their reorder threshold
	Limit    int
	Offset   int
}

// Repository persists items and their packaging units.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)
	List(ctx context.Context, filter Filter) ([]Item, error)
	Update(ctx context.Context, item *Item) error

	// GetStockForUpdate reads the cached stock quantity with a row lock so
	// the sufficiency check and the write belong to the same critical
	// section. Must be called inside a transaction.
	GetStockForUpdate(ctx context.Context, itemID id.ID) (int64, error)

	// UpdateStock writes the cached stock quantity. Must be called inside
	// the same transaction as GetStockForUpdate.
	UpdateStock(ctx context.Context, itemID id.ID, quantity int64) error
}
