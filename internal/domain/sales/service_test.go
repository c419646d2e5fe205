package sales_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/id"
	"pharmstock/internal/core/types"
	"pharmstock/internal/domain/catalog"
	"pharmstock/internal/domain/ledger"
	"pharmstock/internal/domain/pricing"
	"pharmstock/internal/domain/sales"
	"pharmstock/internal/domain/units"
	"pharmstock/internal/infrastructure/storage/memory"
)

type fixture struct {
	items  *memory.ItemRepo
	ledger *ledger.Service
	sales  *sales.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	items := memory.NewItemRepo(store)
	txManager := memory.NewTxManager(store)

	ledgerSvc := ledger.NewService(
		memory.NewMovementRepo(store),
		items,
		units.NewConverter(false),
		pricing.NewCalculator(pricing.DefaultMarkup),
		ledger.NewGuard(),
		txManager,
		nil,
	)
	return &fixture{
		items:  items,
		ledger: ledgerSvc,
		sales:  sales.NewService(ledgerSvc, txManager),
	}
}

func (f *fixture) seedItem(t *testing.T, name string, stock int64) *catalog.Item {
	t.Helper()
	ctx := context.Background()
	item := catalog.NewItem(name, []catalog.PackagingUnit{
		{Label: "tablet", BaseUnitsPerPackage: 1, SellingPricePerPackage: types.MustMoney("7")},
		{Label: "strip", BaseUnitsPerPackage: 10, SellingPricePerPackage: types.MustMoney("65")},
		{Label: "box", BaseUnitsPerPackage: 100, SellingPricePerPackage: types.MustMoney("600")},
	})
	item.CostPricePerPack = types.MustMoney("500")
	require.NoError(t, f.items.Create(ctx, item))

	if stock > 0 {
		_, err := f.ledger.Apply(ctx, ledger.ApplyInput{
			ItemID: item.ID, Kind: ledger.KindPurchase, Quantity: stock,
		})
		require.NoError(t, err)
	}
	return item
}

func (f *fixture) stock(t *testing.T, item *catalog.Item) int64 {
	t.Helper()
	current, err := f.ledger.CurrentStock(context.Background(), item.ID)
	require.NoError(t, err)
	return current
}

func TestApply_MultiLineSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedItem(t, "Paracetamol 500mg", 100)
	b := f.seedItem(t, "Ibuprofen 400mg", 50)

	sale := &sales.Sale{
		ID: id.New(),
		Lines: []sales.Line{
			{ItemID: a.ID, UnitLabel: "strip", Quantity: 2, SellingPrice: types.MustMoney("65")},
			{ItemID: b.ID, UnitLabel: "tablet", Quantity: 5, SellingPrice: types.MustMoney("7")},
		},
	}

	result, err := f.sales.Apply(ctx, sale)
	require.NoError(t, err)
	require.Len(t, result.Movements, 2)
	assert.Equal(t, sale.ID, result.SaleID)

	assert.Equal(t, int64(80), f.stock(t, a))
	assert.Equal(t, int64(45), f.stock(t, b))

	// Cost basis stamped per movement at sale time: 20 units at 5 each.
	assert.True(t, result.Movements[0].CostOfGoods.Equal(types.MustMoney("100")),
		"got %s", result.Movements[0].CostOfGoods)

	// Every movement carries the sale id as its idempotency key.
	for _, m := range result.Movements {
		require.NotNil(t, m.IdempotencyKey)
		assert.Equal(t, sale.ID.String(), *m.IdempotencyKey)
	}
}

func TestApply_RetryIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Paracetamol 500mg", 100)

	sale := &sales.Sale{
		ID:    id.New(),
		Lines: []sales.Line{{ItemID: item.ID, UnitLabel: "strip", Quantity: 1}},
	}

	_, err := f.sales.Apply(ctx, sale)
	require.NoError(t, err)

	_, err = f.sales.Apply(ctx, sale)
	require.Error(t, err)
	assert.True(t, apperror.IsDuplicateMovement(err))

	// Deducted exactly once.
	assert.Equal(t, int64(90), f.stock(t, item))
}

func TestApply_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plenty := f.seedItem(t, "Paracetamol 500mg", 100)
	scarce := f.seedItem(t, "Ibuprofen 400mg", 3)

	sale := &sales.Sale{
		ID: id.New(),
		Lines: []sales.Line{
			{ItemID: plenty.ID, UnitLabel: "strip", Quantity: 2},
			{ItemID: scarce.ID, UnitLabel: "strip", Quantity: 1},
		},
	}

	_, err := f.sales.Apply(ctx, sale)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// The first line's deduction must not survive the failure.
	assert.Equal(t, int64(100), f.stock(t, plenty))
	assert.Equal(t, int64(3), f.stock(t, scarce))

	// And the sale can be retried with the same id once stock suffices.
	_, err = f.ledger.Apply(ctx, ledger.ApplyInput{
		ItemID: scarce.ID, Kind: ledger.KindPurchase, Quantity: 1, UnitLabel: "strip",
	})
	require.NoError(t, err)

	_, err = f.sales.Apply(ctx, sale)
	require.NoError(t, err)
	assert.Equal(t, int64(80), f.stock(t, plenty))
	assert.Equal(t, int64(3), f.stock(t, scarce))
}

func TestApply_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Paracetamol 500mg", 100)

	t.Run("nil sale id", func(t *testing.T) {
		_, err := f.sales.Apply(ctx, &sales.Sale{
			Lines: []sales.Line{{ItemID: item.ID, Quantity: 1}},
		})
		assert.Error(t, err)
	})

	t.Run("no lines", func(t *testing.T) {
		_, err := f.sales.Apply(ctx, &sales.Sale{ID: id.New()})
		assert.Error(t, err)
	})

	t.Run("duplicate item lines", func(t *testing.T) {
		_, err := f.sales.Apply(ctx, &sales.Sale{
			ID: id.New(),
			Lines: []sales.Line{
				{ItemID: item.ID, Quantity: 1},
				{ItemID: item.ID, Quantity: 2},
			},
		})
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		_, err := f.sales.Apply(ctx, &sales.Sale{
			ID:    id.New(),
			Lines: []sales.Line{{ItemID: item.ID, Quantity: 0}},
		})
		assert.Error(t, err)
	})
}
