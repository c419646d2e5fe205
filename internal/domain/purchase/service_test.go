package purchase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/types"
	"pharmstock/internal/domain/catalog"
	"pharmstock/internal/domain/ledger"
	"pharmstock/internal/domain/pricing"
	"pharmstock/internal/domain/purchase"
	"pharmstock/internal/domain/units"
	"pharmstock/internal/infrastructure/storage/memory"
)

type fixture struct {
	items    *memory.ItemRepo
	ledger   *ledger.Service
	purchase *purchase.Service
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
		items:    items,
		ledger:   ledgerSvc,
		purchase: purchase.NewService(memory.NewPurchaseRepo(store), ledgerSvc, txManager),
	}
}

func (f *fixture) seedItem(t *testing.T) *catalog.Item {
	t.Helper()
	item := catalog.NewItem("Amoxicillin 250mg", []catalog.PackagingUnit{
		{Label: "capsule", BaseUnitsPerPackage: 1},
		{Label: "box", BaseUnitsPerPackage: 100},
	})
	item.CostPricePerPack = types.MustMoney("800")
	require.NoError(t, f.items.Create(context.Background(), item))
	return item
}

func (f *fixture) draftOrder(t *testing.T, item *catalog.Item) *purchase.Order {
	t.Helper()
	order := purchase.NewOrder("ACME Pharma", "buyer")
	order.AddLine(&item.ID, "", 2, "box", types.MustMoney("800"))
	require.NoError(t, f.purchase.Create(context.Background(), order))
	return order
}

func (f *fixture) approvedOrder(t *testing.T, item *catalog.Item) *purchase.Order {
	t.Helper()
	ctx := context.Background()
	order := f.draftOrder(t, item)
	_, err := f.purchase.Submit(ctx, order.ID)
	require.NoError(t, err)
	approved, err := f.purchase.Approve(ctx, order.ID)
	require.NoError(t, err)
	return approved
}

func assertInvalidTransition(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
}

func TestCreate_StartsInDraft(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t)
	order := f.draftOrder(t, item)

	got, err := f.purchase.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase.StatusDraft, got.Status)
	assert.NotEmpty(t, got.Number)
	assert.True(t, got.TotalAmount.Equal(types.MustMoney("1600")))
}

func TestLifecycle_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t)
	order := f.draftOrder(t, item)

	submitted, err := f.purchase.Submit(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase.StatusPending, submitted.Status)

	approved, err := f.purchase.Approve(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase.StatusApproved, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)

	received, err := f.purchase.Receive(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase.StatusReceived, received.Status)
	assert.NotNil(t, received.ReceivedAt)

	// Two boxes of 100 landed in stock.
	stock, err := f.ledger.CurrentStock(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), stock)
}

func TestLifecycle_IllegalTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t)

	t.Run("approve from draft", func(t *testing.T) {
		order := f.draftOrder(t, item)
		_, err := f.purchase.Approve(ctx, order.ID)
		assertInvalidTransition(t, err)
	})

	t.Run("receive from pending", func(t *testing.T) {
		order := f.draftOrder(t, item)
		_, err := f.purchase.Submit(ctx, order.ID)
		require.NoError(t, err)
		_, err = f.purchase.Receive(ctx, order.ID)
		assertInvalidTransition(t, err)
	})

	t.Run("received is terminal", func(t *testing.T) {
		order := f.approvedOrder(t, item)
		_, err := f.purchase.Receive(ctx, order.ID)
		require.NoError(t, err)

		_, err = f.purchase.Cancel(ctx, order.ID)
		assertInvalidTransition(t, err)
		_, err = f.purchase.Submit(ctx, order.ID)
		assertInvalidTransition(t, err)
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		order := f.draftOrder(t, item)
		_, err := f.purchase.Cancel(ctx, order.ID)
		require.NoError(t, err)
		_, err = f.purchase.Submit(ctx, order.ID)
		assertInvalidTransition(t, err)
	})
}

func TestCancel_FromEveryNonTerminalState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t)

	// DRAFT
	order := f.draftOrder(t, item)
	cancelled, err := f.purchase.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase.StatusCancelled, cancelled.Status)

	// PENDING
	order = f.draftOrder(t, item)
	_, err = f.purchase.Submit(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.purchase.Cancel(ctx, order.ID)
	require.NoError(t, err)

	// APPROVED
	order = f.approvedOrder(t, item)
	_, err = f.purchase.Cancel(ctx, order.ID)
	require.NoError(t, err)

	// A cancelled order never reaches the ledger.
	stock, err := f.ledger.CurrentStock(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stock)
}

func TestReceive_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t)
	order := f.approvedOrder(t, item)

	_, err := f.purchase.Receive(ctx, order.ID)
	require.NoError(t, err)

	// The second receive loses on the status guard before touching stock.
	_, err = f.purchase.Receive(ctx, order.ID)
	assertInvalidTransition(t, err)

	stock, err := f.ledger.CurrentStock(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), stock)
}

func TestReceive_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := f.seedItem(t)
	missing := catalog.NewItem("Ghost item", []catalog.PackagingUnit{
		{Label: "capsule", BaseUnitsPerPackage: 1},
	})
	// missing is never persisted: its line must fail on receive.

	order := purchase.NewOrder("ACME Pharma", "buyer")
	order.AddLine(&good.ID, "", 1, "box", types.MustMoney("800"))
	order.AddLine(&missing.ID, "", 5, "capsule", types.MustMoney("10"))
	require.NoError(t, f.purchase.Create(ctx, order))

	_, err := f.purchase.Submit(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.purchase.Approve(ctx, order.ID)
	require.NoError(t, err)

	_, err = f.purchase.Receive(ctx, order.ID)
	require.Error(t, err)

	// No partial stock addition and the order is still receivable.
	stock, stockErr := f.ledger.CurrentStock(ctx, good.ID)
	require.NoError(t, stockErr)
	assert.Equal(t, int64(0), stock)

	got, getErr := f.purchase.GetByID(ctx, order.ID)
	require.NoError(t, getErr)
	assert.Equal(t, purchase.StatusApproved, got.Status)
}

func TestReceive_SkipsFreeTextLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t)

	order := purchase.NewOrder("ACME Pharma", "buyer")
	order.AddLine(&item.ID, "", 1, "box", types.MustMoney("800"))
	order.AddLine(nil, "cold chain packaging", 3, "", types.MustMoney("50"))
	require.NoError(t, f.purchase.Create(ctx, order))

	_, err := f.purchase.Submit(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.purchase.Approve(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.purchase.Receive(ctx, order.ID)
	require.NoError(t, err)

	stock, err := f.ledger.CurrentStock(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stock, "only the resolved line feeds the ledger")
}

func TestUpdateLines_DraftOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t)
	order := f.draftOrder(t, item)

	newLines := []purchase.Line{{
		ItemID:    &item.ID,
		Quantity:  5,
		UnitLabel: "box",
		UnitCost:  types.MustMoney("750"),
		LineTotal: types.MustMoney("3750"),
	}}
	require.NoError(t, f.purchase.UpdateLines(ctx, order.ID, newLines))

	got, err := f.purchase.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, int64(5), got.Lines[0].Quantity)
	assert.True(t, got.TotalAmount.Equal(types.MustMoney("3750")))

	_, err = f.purchase.Submit(ctx, order.ID)
	require.NoError(t, err)
	err = f.purchase.UpdateLines(ctx, order.ID, newLines)
	assertInvalidTransition(t, err)
}

func TestSubmit_RequiresLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := purchase.NewOrder("ACME Pharma", "buyer")
	require.NoError(t, f.purchase.Create(ctx, order))

	_, err := f.purchase.Submit(ctx, order.ID)
	assert.Error(t, err)
}
