package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmstock/internal/core/types"
	"pharmstock/internal/domain/catalog"
)

func itemWith(cost string, units ...catalog.PackagingUnit) *catalog.Item {
	item := catalog.NewItem("Amoxicillin 250mg", units)
	item.CostPricePerPack = types.MustMoney(cost)
	return item
}

func TestCostPerBaseUnit(t *testing.T) {
	calc := NewCalculator(DefaultMarkup)

	t.Run("divides by bulk unit size", func(t *testing.T) {
		item := itemWith("500",
			catalog.PackagingUnit{Label: "capsule", BaseUnitsPerPackage: 1},
			catalog.PackagingUnit{Label: "strip", BaseUnitsPerPackage: 10},
			catalog.PackagingUnit{Label: "box", BaseUnitsPerPackage: 100},
		)

		basis := calc.CostPerBaseUnit(item)
		assert.True(t, basis.PerBaseUnit.Equal(types.MustMoney("5")), "got %s", basis.PerBaseUnit)
		assert.False(t, basis.DefaultedPackSize)
	})

	t.Run("largest multi-unit is the bulk unit", func(t *testing.T) {
		item := itemWith("500",
			catalog.PackagingUnit{Label: "capsule", BaseUnitsPerPackage: 1},
			catalog.PackagingUnit{Label: "strip", BaseUnitsPerPackage: 10},
		)

		basis := calc.CostPerBaseUnit(item)
		assert.True(t, basis.PerBaseUnit.Equal(types.MustMoney("50")), "got %s", basis.PerBaseUnit)
		assert.False(t, basis.DefaultedPackSize)
	})

	t.Run("defaults denominator without a bulk unit", func(t *testing.T) {
		item := itemWith("500",
			catalog.PackagingUnit{Label: "capsule", BaseUnitsPerPackage: 1},
		)

		basis := calc.CostPerBaseUnit(item)
		assert.True(t, basis.PerBaseUnit.Equal(types.MustMoney("5")), "got %s", basis.PerBaseUnit)
		assert.True(t, basis.DefaultedPackSize, "fallback must be detectable")
	})
}

func TestSellingPricePerBaseUnit(t *testing.T) {
	calc := NewCalculator(DefaultMarkup)

	t.Run("configured base price wins", func(t *testing.T) {
		item := itemWith("500",
			catalog.PackagingUnit{Label: "capsule", BaseUnitsPerPackage: 1, SellingPricePerPackage: types.MustMoney("8")},
			catalog.PackagingUnit{Label: "box", BaseUnitsPerPackage: 100, SellingPricePerPackage: types.MustMoney("600")},
		)

		price := calc.SellingPricePerBaseUnit(item)
		assert.True(t, price.PerBaseUnit.Equal(types.MustMoney("8")))
		assert.Equal(t, PriceSourceConfigured, price.Source)
	})

	t.Run("derived from cheapest priced package", func(t *testing.T) {
		item := itemWith("500",
			catalog.PackagingUnit{Label: "capsule", BaseUnitsPerPackage: 1},
			catalog.PackagingUnit{Label: "strip", BaseUnitsPerPackage: 10, SellingPricePerPackage: types.MustMoney("70")},
			catalog.PackagingUnit{Label: "box", BaseUnitsPerPackage: 100, SellingPricePerPackage: types.MustMoney("600")},
		)

		price := calc.SellingPricePerBaseUnit(item)
		// box sells at 6 per capsule, strip at 7: box wins.
		assert.True(t, price.PerBaseUnit.Equal(types.MustMoney("6")), "got %s", price.PerBaseUnit)
		assert.Equal(t, PriceSourceDerived, price.Source)
	})

	t.Run("markup over cost as last resort", func(t *testing.T) {
		item := itemWith("500",
			catalog.PackagingUnit{Label: "capsule", BaseUnitsPerPackage: 1},
			catalog.PackagingUnit{Label: "box", BaseUnitsPerPackage: 100},
		)

		price := calc.SellingPricePerBaseUnit(item)
		// cost 5 per capsule times 1.3
		assert.True(t, price.PerBaseUnit.Equal(types.MustMoney("6.5")), "got %s", price.PerBaseUnit)
		assert.Equal(t, PriceSourceMarkup, price.Source)
		assert.True(t, price.PerBaseUnit.IsPositive(), "sellable item never prices at zero")
	})
}

func TestCostOfGoods(t *testing.T) {
	calc := NewCalculator(DefaultMarkup)
	item := itemWith("500",
		catalog.PackagingUnit{Label: "capsule", BaseUnitsPerPackage: 1},
		catalog.PackagingUnit{Label: "strip", BaseUnitsPerPackage: 10},
		catalog.PackagingUnit{Label: "box", BaseUnitsPerPackage: 100},
	)

	// Selling one strip moves 10 base units at 5 each.
	cogs := calc.CostOfGoods(item, 10)
	require.True(t, cogs.Equal(types.MustMoney("50")), "got %s", cogs)
}

func TestNewCalculator_MarkupFallback(t *testing.T) {
	calc := NewCalculator(0)
	item := itemWith("100", catalog.PackagingUnit{Label: "capsule", BaseUnitsPerPackage: 1})

	price := calc.SellingPricePerBaseUnit(item)
	// cost 1 per unit (defaulted pack size 100) times default markup 1.3
	assert.True(t, price.PerBaseUnit.Equal(types.MustMoney("1.3")), "got %s", price.PerBaseUnit)
}
