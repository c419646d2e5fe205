// Package sales applies point-of-sale transactions to the stock ledger.
package sales

import (
	"context"
	"time"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/id"
	"pharmstock/internal/core/types"
)

// Sale is one point-of-sale transaction. The sale id doubles as the
// idempotency key for its SALE movements, so a client retry deducts stock
// exactly once.
type Sale struct {
	ID    id.ID      `json:"id"`
	Lines []Line     `json:"lines"`
	At    *time.Time `json:"at,omitempty"`
}

// Line is one sold position, expressed in an arbitrary packaging unit.
type Line struct {
	ItemID    id.ID  `json:"itemId"`
	UnitLabel string `json:"unitLabel"`
	Quantity  int64  `json:"quantity"`

	// SellingPrice is the price charged at sale time, per UnitLabel package.
	SellingPrice types.Money `json:"sellingPrice"`
}

// Validate checks sale invariants. Duplicate item lines are rejected
// because each movement is keyed by (item, SALE, saleID); a sale with two
// lines of the same item should merge them client-side.
func (s *Sale) Validate(_ context.Context) error {
	if id.IsNil(s.ID) {
		return apperror.NewValidation("sale id is required")
	}
	if len(s.Lines) == 0 {
		return apperror.NewValidation("sale needs at least one line")
	}
	seen := make(map[id.ID]struct{}, len(s.Lines))
	for _, l := range s.Lines {
		if id.IsNil(l.ItemID) {
			return apperror.NewValidation("sale line needs an item")
		}
		if l.Quantity <= 0 {
			return apperror.NewValidation("sale line quantity must be positive")
		}
		if _, dup := seen[l.ItemID]; dup {
			return apperror.NewValidation("duplicate item in sale; merge the lines")
		}
		seen[l.ItemID] = struct{}{}
	}
	return nil
}
