// Package pricing derives per-base-unit cost and selling prices from an
// item's packaging definitions.
package pricing

import (
	"github.com/shopspring/decimal"

	"pharmstock/internal/core/types"
	"pharmstock/internal/domain/catalog"
)

// DefaultPackSize is the assumed bulk pack size when an item has no
// configured multi-unit package. The fallback is reported, not silent.
const DefaultPackSize int64 = 100

// DefaultMarkup is the multiplier applied over cost when no selling price
// can be derived from the item's packaging units.
const DefaultMarkup = 1.3

// CostBasis is the per-base-unit cost of an item.
type CostBasis struct {
	PerBaseUnit types.Money
	// DefaultedPackSize is true when no bulk unit was configured and the
	// denominator fell back to DefaultPackSize. Callers must be able to
	// detect that the fallback occurred.
	DefaultedPackSize bool
}

// PriceSource records which policy step produced a selling price.
type PriceSource string

const (
	// PriceSourceConfigured means the item's base unit has a configured price.
	PriceSourceConfigured PriceSource = "configured"
	// PriceSourceDerived means the price was scaled down from the
	// lowest-priced configured multi-unit package.
	PriceSourceDerived PriceSource = "derived"
	// PriceSourceMarkup means the price is cost times the markup multiplier.
	PriceSourceMarkup PriceSource = "markup"
)

// SellingPrice is the per-base-unit selling price of an item.
type SellingPrice struct {
	PerBaseUnit types.Money
	Source      PriceSource
}

// Calculator computes cost and selling prices per base unit.
type Calculator struct {
	markup decimal.Decimal
}

// NewCalculator creates a calculator with the given markup multiplier.
// A non-positive markup falls back to DefaultMarkup.
func NewCalculator(markup float64) *Calculator {
	if markup <= 0 {
		markup = DefaultMarkup
	}
	return &Calculator{markup: decimal.NewFromFloat(markup)}
}

// CostPerBaseUnit divides the item's pack cost price by the bulk unit's
// package size. When no bulk unit is configured the denominator defaults to
// DefaultPackSize and the result is flagged.
func (c *Calculator) CostPerBaseUnit(item *catalog.Item) CostBasis {
	denominator := DefaultPackSize
	defaulted := true
	if bulk := item.BulkUnit(); bulk != nil {
		denominator = bulk.BaseUnitsPerPackage
		defaulted = false
	}

	return CostBasis{
		PerBaseUnit:       item.CostPricePerPack.Div(decimal.NewFromInt(denominator)),
		DefaultedPackSize: defaulted,
	}
}

// SellingPricePerBaseUnit resolves a selling price in three steps:
// the configured base-unit price, then the lowest-priced configured package
// scaled down to base units, then markup over cost. A sellable item never
// prices at zero; the source records which step applied.
func (c *Calculator) SellingPricePerBaseUnit(item *catalog.Item) SellingPrice {
	if base := item.BaseUnit(); base != nil && base.SellingPricePerPackage.IsPositive() {
		return SellingPrice{PerBaseUnit: base.SellingPricePerPackage, Source: PriceSourceConfigured}
	}

	if derived, ok := c.lowestScaledPrice(item); ok {
		return SellingPrice{PerBaseUnit: derived, Source: PriceSourceDerived}
	}

	cost := c.CostPerBaseUnit(item)
	return SellingPrice{PerBaseUnit: cost.PerBaseUnit.Mul(c.markup), Source: PriceSourceMarkup}
}

// lowestScaledPrice scales each priced multi-unit package down to one base
// unit and returns the cheapest.
func (c *Calculator) lowestScaledPrice(item *catalog.Item) (types.Money, bool) {
	var best types.Money
	found := false
	for _, u := range item.PackagingUnits {
		if !u.SellingPricePerPackage.IsPositive() || u.BaseUnitsPerPackage < 1 {
			continue
		}
		perBase := u.SellingPricePerPackage.Div(decimal.NewFromInt(u.BaseUnitsPerPackage))
		if !found || perBase.LessThan(best) {
			best = perBase
			found = true
		}
	}
	return best, found
}

// CostOfGoods multiplies the per-base-unit cost by a base-unit count.
// Stamped onto SALE movements at the moment of sale so historical profit
// figures stay stable when the item's cost later changes.
func (c *Calculator) CostOfGoods(item *catalog.Item, baseUnits int64) types.Money {
	return c.CostPerBaseUnit(item).PerBaseUnit.Mul(decimal.NewFromInt(baseUnits))
}
