package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmstock/internal/core/apperror"
	appctx "pharmstock/internal/core/context"
	"pharmstock/internal/core/types"
	"pharmstock/internal/domain/catalog"
	"pharmstock/internal/domain/ledger"
	"pharmstock/internal/domain/pricing"
	"pharmstock/internal/domain/units"
	"pharmstock/internal/infrastructure/storage/memory"
)

type fixture struct {
	store    *memory.Store
	items    *memory.ItemRepo
	ledger   *ledger.Service
	movement *memory.MovementRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	items := memory.NewItemRepo(store)
	movements := memory.NewMovementRepo(store)
	txManager := memory.NewTxManager(store)

	svc := ledger.NewService(
		movements,
		items,
		units.NewConverter(false),
		pricing.NewCalculator(pricing.DefaultMarkup),
		ledger.NewGuard(),
		txManager,
		nil,
	)
	return &fixture{store: store, items: items, ledger: svc, movement: movements}
}

func (f *fixture) seedItem(t *testing.T, initialStock int64) *catalog.Item {
	t.Helper()
	item := catalog.NewItem("Paracetamol 500mg", []catalog.PackagingUnit{
		{Label: "tablet", BaseUnitsPerPackage: 1, SellingPricePerPackage: types.MustMoney("7")},
		{Label: "strip", BaseUnitsPerPackage: 10, SellingPricePerPackage: types.MustMoney("65")},
		{Label: "box", BaseUnitsPerPackage: 100, SellingPricePerPackage: types.MustMoney("600")},
	})
	item.CostPricePerPack = types.MustMoney("500")
	require.NoError(t, f.items.Create(context.Background(), item))

	if initialStock > 0 {
		_, err := f.ledger.Apply(context.Background(), ledger.ApplyInput{
			ItemID:   item.ID,
			Kind:     ledger.KindPurchase,
			Quantity: initialStock,
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

func TestApply_PurchaseAndSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, 0)

	// Receive two boxes.
	m, err := f.ledger.Apply(ctx, ledger.ApplyInput{
		ItemID: item.ID, Kind: ledger.KindPurchase, Quantity: 2, UnitLabel: "box",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200), m.DeltaBaseUnits)
	assert.Equal(t, int64(0), m.PreviousQuantity)
	assert.Equal(t, int64(200), m.NewQuantity)
	assert.Equal(t, int64(200), f.stock(t, item))

	// Sell three strips.
	m, err = f.ledger.Apply(ctx, ledger.ApplyInput{
		ItemID: item.ID, Kind: ledger.KindSale, Quantity: 3, UnitLabel: "strip",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-30), m.DeltaBaseUnits)
	assert.Equal(t, int64(170), m.NewQuantity)

	// Cost of goods: 30 base units at 500/100 = 5 each.
	assert.True(t, m.CostOfGoods.Equal(types.MustMoney("150")), "got %s", m.CostOfGoods)
}

func TestApply_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, 5)

	_, err := f.ledger.Apply(ctx, ledger.ApplyInput{
		ItemID: item.ID, Kind: ledger.KindSale, Quantity: 1, UnitLabel: "strip",
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, int64(10), appErr.Details["requested"])
	assert.Equal(t, int64(5), appErr.Details["available"])

	// Rejected movement leaves no trace.
	assert.Equal(t, int64(5), f.stock(t, item))
	history, err := f.ledger.History(ctx, item.ID, ledger.HistoryFilter{}, ledger.Page{})
	require.NoError(t, err)
	assert.Len(t, history, 1) // the seed purchase only
}

func TestApply_Idempotency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, 100)

	in := ledger.ApplyInput{
		ItemID: item.ID, Kind: ledger.KindSale, Quantity: 2, UnitLabel: "strip",
		IdempotencyKey: "receipt-42",
	}

	_, err := f.ledger.Apply(ctx, in)
	require.NoError(t, err)

	_, err = f.ledger.Apply(ctx, in)
	require.Error(t, err)
	assert.True(t, apperror.IsDuplicateMovement(err))

	// Deducted exactly once.
	assert.Equal(t, int64(80), f.stock(t, item))
}

func TestApply_SameKeyDifferentKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, 100)

	// The key is unique per (item, kind): the same reference may legally
	// appear on movements of different kinds.
	_, err := f.ledger.Apply(ctx, ledger.ApplyInput{
		ItemID: item.ID, Kind: ledger.KindSale, Quantity: 1, IdempotencyKey: "ref-1",
	})
	require.NoError(t, err)

	_, err = f.ledger.Apply(ctx, ledger.ApplyInput{
		ItemID: item.ID, Kind: ledger.KindPurchase, Quantity: 1, IdempotencyKey: "ref-1",
	})
	require.NoError(t, err)
}

func TestApply_AdjustmentClampsAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, 30)

	m, err := f.ledger.Apply(ctx, ledger.ApplyInput{
		ItemID: item.ID, Kind: ledger.KindAdjustment, Quantity: -50,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-30), m.DeltaBaseUnits, "delta records what actually moved")
	assert.Equal(t, int64(0), m.NewQuantity)
	assert.Equal(t, int64(0), f.stock(t, item))
}

func TestApply_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, 10)

	// Zero quantity.
	_, err := f.ledger.Apply(ctx, ledger.ApplyInput{
		ItemID: item.ID, Kind: ledger.KindPurchase, Quantity: 0,
	})
	assert.Error(t, err)

	// Negative quantity outside ADJUSTMENT.
	_, err = f.ledger.Apply(ctx, ledger.ApplyInput{
		ItemID: item.ID, Kind: ledger.KindSale, Quantity: -1,
	})
	assert.Error(t, err)

	// Unknown kind.
	_, err = f.ledger.Apply(ctx, ledger.ApplyInput{
		ItemID: item.ID, Kind: ledger.Kind("RETURN"), Quantity: 1,
	})
	assert.Error(t, err)
}

func TestApply_ConcurrentSales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, 10)

	// Two concurrent sales of 6: stock covers one, never both.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ledger.Apply(ctx, ledger.ApplyInput{
				ItemID: item.ID, Kind: ledger.KindSale, Quantity: 6,
			})
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.True(t, apperror.IsInsufficientStock(err))
			failures++
		}
	}
	assert.Equal(t, 1, failures, "exactly one sale must be rejected")
	assert.Equal(t, int64(4), f.stock(t, item))
}

func TestConservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, 0)

	inputs := []ledger.ApplyInput{
		{ItemID: item.ID, Kind: ledger.KindPurchase, Quantity: 3, UnitLabel: "box"},
		{ItemID: item.ID, Kind: ledger.KindSale, Quantity: 5, UnitLabel: "strip"},
		{ItemID: item.ID, Kind: ledger.KindLoss, Quantity: 7},
		{ItemID: item.ID, Kind: ledger.KindAdjustment, Quantity: -13},
		{ItemID: item.ID, Kind: ledger.KindAdjustment, Quantity: 4},
	}
	for _, in := range inputs {
		_, err := f.ledger.Apply(ctx, in)
		require.NoError(t, err)
	}

	// Cached quantity equals the replayed sum of deltas.
	sum, err := f.movement.SumDeltas(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, sum, f.stock(t, item))
	assert.Equal(t, int64(300-50-7-13+4), sum)
}

func TestRebuild_RepairsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, 120)

	// Corrupt the cache behind the ledger's back.
	require.NoError(t, f.items.UpdateStock(ctx, item.ID, 999))

	total, err := f.ledger.Rebuild(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120), total)
	assert.Equal(t, int64(120), f.stock(t, item))
}

func TestVoid_CompensatesWithoutDeleting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, 100)

	sale, err := f.ledger.Apply(ctx, ledger.ApplyInput{
		ItemID: item.ID, Kind: ledger.KindSale, Quantity: 2, UnitLabel: "strip",
	})
	require.NoError(t, err)
	require.Equal(t, int64(80), f.stock(t, item))

	comp, err := f.ledger.Void(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.KindAdjustment, comp.Kind)
	assert.Equal(t, int64(20), comp.DeltaBaseUnits)
	require.NotNil(t, comp.CorrectsMovementID)
	assert.Equal(t, sale.ID, *comp.CorrectsMovementID)
	assert.Equal(t, int64(100), f.stock(t, item))

	// Original row survives; voiding twice is rejected by the key.
	_, err = f.ledger.GetByID(ctx, sale.ID)
	require.NoError(t, err)
	_, err = f.ledger.Void(ctx, sale.ID)
	assert.True(t, apperror.IsDuplicateMovement(err))
}

func TestVoid_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, 50)

	ctx := appctx.WithActor(context.Background(), &appctx.Actor{UserID: "u1", Username: "clerk"})

	sale, err := f.ledger.Apply(ctx, ledger.ApplyInput{
		ItemID: item.ID, Kind: ledger.KindSale, Quantity: 1,
	})
	require.NoError(t, err)

	_, err = f.ledger.Void(ctx, sale.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)

	admin := appctx.WithActor(context.Background(), &appctx.Actor{UserID: "u2", Username: "chief", IsAdmin: true})
	_, err = f.ledger.Void(admin, sale.ID)
	assert.NoError(t, err)
}

func TestHistory_FilterByKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, 100)

	for i := 0; i < 3; i++ {
		_, err := f.ledger.Apply(ctx, ledger.ApplyInput{
			ItemID: item.ID, Kind: ledger.KindSale, Quantity: 1,
		})
		require.NoError(t, err)
	}

	kind := ledger.KindSale
	movements, err := f.ledger.History(ctx, item.ID, ledger.HistoryFilter{Kind: &kind}, ledger.Page{})
	require.NoError(t, err)
	assert.Len(t, movements, 3)
	for _, m := range movements {
		assert.Equal(t, ledger.KindSale, m.Kind)
	}

	// Newest first, pagination applies after filtering.
	page, err := f.ledger.History(ctx, item.ID, ledger.HistoryFilter{}, ledger.Page{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestBreakdown(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, 257)

	b, err := f.ledger.Breakdown(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, units.Breakdown{Boxes: 2, Strips: 5, Loose: 7}, b)
}

func TestApply_FallbackConfidenceRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := catalog.NewItem("Cough Syrup", []catalog.PackagingUnit{
		{Label: "bottle", BaseUnitsPerPackage: 1},
	})
	require.NoError(t, f.items.Create(ctx, item))

	// "pack" is not configured: the generic default table supplies 30.
	m, err := f.ledger.Apply(ctx, ledger.ApplyInput{
		ItemID: item.ID, Kind: ledger.KindPurchase, Quantity: 2, UnitLabel: "pack",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(60), m.DeltaBaseUnits)
	assert.Equal(t, units.ConfidenceFallback, m.Confidence)
}
