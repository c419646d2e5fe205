package units

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/types"
	"pharmstock/internal/domain/catalog"
)

func testItem(units ...catalog.PackagingUnit) *catalog.Item {
	return catalog.NewItem("Paracetamol 500mg", units)
}

func configuredItem() *catalog.Item {
	return testItem(
		catalog.PackagingUnit{Label: "tablet", BaseUnitsPerPackage: 1, SellingPricePerPackage: types.MustMoney("7")},
		catalog.PackagingUnit{Label: "strip", BaseUnitsPerPackage: 12},
		catalog.PackagingUnit{Label: "box", BaseUnitsPerPackage: 120},
	)
}

func TestResolve_StrategyOrder(t *testing.T) {
	c := NewConverter(false)

	tests := []struct {
		name           string
		item           *catalog.Item
		label          string
		wantFactor     int64
		wantConfidence Confidence
	}{
		{
			name:           "configured unit wins",
			item:           configuredItem(),
			label:          "strip",
			wantFactor:     12,
			wantConfidence: ConfidenceExact,
		},
		{
			name:           "configured match is case-insensitive",
			item:           configuredItem(),
			label:          "  BOX ",
			wantFactor:     120,
			wantConfidence: ConfidenceExact,
		},
		{
			name:           "base synonym",
			item:           configuredItem(),
			label:          "tabs",
			wantFactor:     1,
			wantConfidence: ConfidenceSynonym,
		},
		{
			name:           "generic default when unconfigured",
			item:           testItem(catalog.PackagingUnit{Label: "tablet", BaseUnitsPerPackage: 1}),
			label:          "strip",
			wantFactor:     10,
			wantConfidence: ConfidenceFallback,
		},
		{
			name:           "bottle defaults to one base unit",
			item:           testItem(catalog.PackagingUnit{Label: "tablet", BaseUnitsPerPackage: 1}),
			label:          "bottle",
			wantFactor:     1,
			wantConfidence: ConfidenceFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Resolve(tt.item, tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFactor, res.Factor)
			assert.Equal(t, tt.wantConfidence, res.Confidence)
		})
	}
}

func TestResolve_UnknownLabel(t *testing.T) {
	c := NewConverter(false)

	_, err := c.Resolve(configuredItem(), "carton")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnknownUnit, appErr.Code)
}

func TestResolve_StrictRejectsFallback(t *testing.T) {
	strict := NewConverter(true)
	item := testItem(catalog.PackagingUnit{Label: "tablet", BaseUnitsPerPackage: 1})

	// Configured and synonym labels still resolve.
	res, err := strict.Resolve(item, "tablet")
	require.NoError(t, err)
	assert.Equal(t, ConfidenceExact, res.Confidence)

	// The generic default table is off limits.
	_, err = strict.Resolve(item, "box")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnknownUnit, appErr.Code)
}

func TestToBaseUnits(t *testing.T) {
	c := NewConverter(false)
	ctx := context.Background()

	total, res, err := c.ToBaseUnits(ctx, configuredItem(), "box", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(360), total)
	assert.Equal(t, ConfidenceExact, res.Confidence)

	_, _, err = c.ToBaseUnits(ctx, configuredItem(), "strip", 0)
	assert.Error(t, err)

	_, _, err = c.ToBaseUnits(ctx, configuredItem(), "strip", -2)
	assert.Error(t, err)
}

func TestFromBaseUnits(t *testing.T) {
	tests := []struct {
		name string
		item *catalog.Item
		base int64
		want Breakdown
	}{
		{
			name: "configured sizes",
			item: configuredItem(), // box=120, strip=12
			base: 257,
			want: Breakdown{Boxes: 2, Strips: 1, Loose: 5},
		},
		{
			name: "default sizes when only base unit configured",
			item: testItem(catalog.PackagingUnit{Label: "tablet", BaseUnitsPerPackage: 1}),
			base: 235,
			want: Breakdown{Boxes: 2, Strips: 3, Loose: 5},
		},
		{
			name: "zero stock",
			item: configuredItem(),
			base: 0,
			want: Breakdown{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromBaseUnits(tt.item, tt.base))
		})
	}
}

func TestFromBaseUnits_RoundTrip(t *testing.T) {
	item := configuredItem()
	for _, n := range []int64{1, 11, 12, 119, 120, 121, 1000, 99999} {
		b := FromBaseUnits(item, n)
		recomposed := b.Boxes*120 + b.Strips*12 + b.Loose
		assert.Equal(t, n, recomposed, "n=%d", n)
	}
}
