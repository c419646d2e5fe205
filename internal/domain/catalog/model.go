// Package catalog provides the medicine catalog: items and their packaging units.
package catalog

import (
	"context"
	"strings"
	"time"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/id"
	"pharmstock/internal/core/types"
)

// Item represents a sellable, stockable medicine.
//
// BaseStockQuantity is denominated in base units (the smallest dispensable
// item, e.g. one tablet) and is a denormalized cache of the movement ledger:
// the ledger is the source of truth and this field can always be rebuilt by
// replaying movements.
type Item struct {
	ID id.ID `db:"id" json:"id"`

	Name        string `db:"name" json:"name"`
	GenericName string `db:"generic_name" json:"genericName,omitempty"`

	// BaseStockQuantity is current stock in base units, never negative.
	// Mutated only through the stock ledger.
	BaseStockQuantity int64 `db:"base_stock_quantity" json:"baseStockQuantity"`

	// ReorderThreshold triggers low-stock listing when stock falls below it.
	ReorderThreshold int64 `db:"reorder_threshold" json:"reorderThreshold"`

	// CostPricePerPack is the cost of the item's primary pack
	// (conventionally the bulk unit, e.g. a box).
	CostPricePerPack types.Money `db:"cost_price_per_pack" json:"costPricePerPack"`

	// PackagingUnits is the ordered set of units this item can be traded in.
	// Exactly one unit is conventionally the base unit (BaseUnitsPerPackage = 1).
	PackagingUnits []PackagingUnit `db:"-" json:"packagingUnits"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// PackagingUnit defines one way an item is packaged and priced.
type PackagingUnit struct {
	ItemID id.ID `db:"item_id" json:"-"`

	// Label identifies the unit ("tablet", "strip", "box", custom).
	// Unique per item, matched case-insensitively.
	Label string `db:"label" json:"label"`

	// BaseUnitsPerPackage is the conversion factor to base units, >= 1.
	BaseUnitsPerPackage int64 `db:"base_units_per_package" json:"baseUnitsPerPackage"`

	SellingPricePerPackage types.Money `db:"selling_price_per_package" json:"sellingPricePerPackage"`
}

// NewItem creates an item with zero stock. Units are attached at creation;
// stock is mutated only through the ledger afterwards.
func NewItem(name string, units []PackagingUnit) *Item {
	now := time.Now().UTC()
	item := &Item{
		ID:             id.New(),
		Name:           name,
		PackagingUnits: units,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for i := range item.PackagingUnits {
		item.PackagingUnits[i].ItemID = item.ID
	}
	return item
}

// Validate checks item invariants.
func (i *Item) Validate(_ context.Context) error {
	if strings.TrimSpace(i.Name) == "" {
		return apperror.NewValidation("item name is required")
	}
	if i.BaseStockQuantity < 0 {
		return apperror.NewValidation("base stock quantity cannot be negative")
	}
	seen := make(map[string]struct{}, len(i.PackagingUnits))
	for _, u := range i.PackagingUnits {
		label := strings.ToLower(strings.TrimSpace(u.Label))
		if label == "" {
			return apperror.NewValidation("packaging unit label is required")
		}
		if u.BaseUnitsPerPackage < 1 {
			return apperror.NewValidation("baseUnitsPerPackage must be >= 1 for unit " + u.Label)
		}
		if _, dup := seen[label]; dup {
			return apperror.NewValidation("duplicate packaging unit label " + u.Label)
		}
		seen[label] = struct{}{}
	}
	return nil
}

// UnitByLabel returns the configured packaging unit matching label,
// case-insensitively. Returns nil when not configured.
func (i *Item) UnitByLabel(label string) *PackagingUnit {
	label = strings.ToLower(strings.TrimSpace(label))
	for idx := range i.PackagingUnits {
		if strings.ToLower(i.PackagingUnits[idx].Label) == label {
			return &i.PackagingUnits[idx]
		}
	}
	return nil
}

// BaseUnit returns the unit with BaseUnitsPerPackage == 1, or nil.
func (i *Item) BaseUnit() *PackagingUnit {
	for idx := range i.PackagingUnits {
		if i.PackagingUnits[idx].BaseUnitsPerPackage == 1 {
			return &i.PackagingUnits[idx]
		}
	}
	return nil
}

// BulkUnit returns the configured unit with the largest BaseUnitsPerPackage
// greater than 1 (conventionally the box). Returns nil when only the base
// unit is configured; CostPricePerPack is denominated in this unit.
func (i *Item) BulkUnit() *PackagingUnit {
	var bulk *PackagingUnit
	for idx := range i.PackagingUnits {
		u := &i.PackagingUnits[idx]
		if u.BaseUnitsPerPackage > 1 && (bulk == nil || u.BaseUnitsPerPackage > bulk.BaseUnitsPerPackage) {
			bulk = u
		}
	}
	return bulk
}

// IsLowStock reports whether stock has fallen below the reorder threshold.
func (i *Item) IsLowStock() bool {
	return i.ReorderThreshold > 0 && i.BaseStockQuantity < i.ReorderThreshold
}
