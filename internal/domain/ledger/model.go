// Package ledger provides the append-only stock movement log. It owns all
// mutation of an item's stock level; the cached quantity on the item row is
// a derived index that can always be rebuilt by replaying movements.
package ledger

import (
	"time"

	"pharmstock/internal/core/id"
	"pharmstock/internal/core/types"
	"pharmstock/internal/domain/units"
)

// Kind classifies a stock movement.
type Kind string

const (
	KindPurchase   Kind = "PURCHASE"
	KindSale       Kind = "SALE"
	KindLoss       Kind = "LOSS"
	KindAdjustment Kind = "ADJUSTMENT"
)

// IsValid checks if the kind is a known movement kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindPurchase, KindSale, KindLoss, KindAdjustment:
		return true
	}
	return false
}

// Movement is one immutable entry in the stock ledger. Rows are created,
// never updated or deleted; administrative corrections append a compensating
// ADJUSTMENT instead (see Service.Void).
type Movement struct {
	ID     id.ID `db:"id" json:"id"`
	ItemID id.ID `db:"item_id" json:"itemId"`

	Kind Kind `db:"kind" json:"kind"`

	// DeltaBaseUnits is the signed stock change in base units.
	DeltaBaseUnits int64 `db:"delta_base_units" json:"deltaBaseUnits"`

	// PreviousQuantity and NewQuantity snapshot the cached stock around
	// this movement; NewQuantity = PreviousQuantity + DeltaBaseUnits >= 0.
	PreviousQuantity int64 `db:"previous_quantity" json:"previousQuantity"`
	NewQuantity      int64 `db:"new_quantity" json:"newQuantity"`

	// CostOfGoods is the cost basis stamped at the moment of movement.
	// Populated for SALE, zero otherwise.
	CostOfGoods types.Money `db:"cost_of_goods" json:"costOfGoods"`

	// UnitLabel and Confidence record how the requested quantity was
	// converted to base units, for later audit of fallback conversions.
	UnitLabel  string           `db:"unit_label" json:"unitLabel,omitempty"`
	Confidence units.Confidence `db:"unit_confidence" json:"unitConfidence,omitempty"`

	// IdempotencyKey is an optional external reference (a sale id, a
	// purchase order line). Unique per (item, kind) when present.
	IdempotencyKey *string `db:"idempotency_key" json:"idempotencyKey,omitempty"`

	// CorrectsMovementID links a compensating ADJUSTMENT to the movement
	// it reverses.
	CorrectsMovementID *id.ID `db:"corrects_movement_id" json:"correctsMovementId,omitempty"`

	Actor     string    `db:"actor" json:"actor"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// IsDeduction reports whether this movement removes stock.
func (m *Movement) IsDeduction() bool {
	return m.DeltaBaseUnits < 0
}
