package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/id"
	"pharmstock/internal/core/types"
	"pharmstock/internal/domain/purchase"
)

const (
	ordersTable     = "purchase_orders"
	orderLinesTable = "purchase_order_lines"
)

// PurchaseRepo implements purchase.Repository.
type PurchaseRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewPurchaseRepo creates a new purchase order repository.
func NewPurchaseRepo(txManager *TxManager) *PurchaseRepo {
	return &PurchaseRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var orderColumns = []string{
	"id", "number", "supplier_ref", "status", "total_amount",
	"created_by", "created_at", "approved_by", "approved_at",
	"received_by", "received_at",
}

// Create inserts the order and its lines.
func (r *PurchaseRepo) Create(ctx context.Context, order *purchase.Order) error {
	q := r.builder.Insert(ordersTable).
		Columns(orderColumns...).
		Values(order.ID, order.Number, order.SupplierRef, order.Status, order.TotalAmount,
			order.CreatedBy, order.CreatedAt, order.ApprovedBy, order.ApprovedAt,
			order.ReceivedBy, order.ReceivedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return r.insertLines(ctx, order.ID, order.Lines)
}

func (r *PurchaseRepo) insertLines(ctx context.Context, orderID id.ID, lines []purchase.Line) error {
	if len(lines) == 0 {
		return nil
	}

	q := r.builder.Insert(orderLinesTable).
		Columns("order_id", "line_no", "item_id", "description",
			"quantity", "unit_label", "unit_cost", "line_total")
	for _, l := range lines {
		q = q.Values(orderID, l.LineNo, l.ItemID, l.Description,
			l.Quantity, l.UnitLabel, l.UnitCost, l.LineTotal)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build lines insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// GetByID retrieves an order with lines.
func (r *PurchaseRepo) GetByID(ctx context.Context, orderID id.ID) (*purchase.Order, error) {
	sql, args, err := r.builder.Select(orderColumns...).
		From(ordersTable).
		Where(squirrel.Eq{"id": orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var order purchase.Order
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &order, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("purchase order", orderID)
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	lines, err := r.getLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines
	return &order, nil
}

func (r *PurchaseRepo) getLines(ctx context.Context, orderID id.ID) ([]purchase.Line, error) {
	sql, args, err := r.builder.Select("order_id", "line_no", "item_id", "description",
		"quantity", "unit_label", "unit_cost", "line_total").
		From(orderLinesTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	var lines []purchase.Line
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select lines: %w", err)
	}
	return lines, nil
}

// List returns orders matching the filter, without lines.
func (r *PurchaseRepo) List(ctx context.Context, filter purchase.Filter) ([]purchase.Order, error) {
	q := r.builder.Select(orderColumns...).
		From(ordersTable).
		OrderBy("created_at DESC")

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var orders []purchase.Order
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &orders, sql, args...); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus writes status and audit fields guarded by the expected
// current status. Zero rows affected means another transition won the race.
func (r *PurchaseRepo) UpdateStatus(ctx context.Context, order *purchase.Order, expected purchase.Status) error {
	q := r.builder.Update(ordersTable).
		Set("status", order.Status).
		Set("approved_by", order.ApprovedBy).
		Set("approved_at", order.ApprovedAt).
		Set("received_by", order.ReceivedBy).
		Set("received_at", order.ReceivedAt).
		Where(squirrel.Eq{"id": order.ID, "status": expected})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewInvalidTransition(string(expected), "transition to "+string(order.Status))
	}
	return nil
}

// ReplaceLines rewrites the order's lines.
func (r *PurchaseRepo) ReplaceLines(ctx context.Context, orderID id.ID, lines []purchase.Line) error {
	delSQL, delArgs, err := r.builder.Delete(orderLinesTable).
		Where(squirrel.Eq{"order_id": orderID}).ToSql()
	if err != nil {
		return fmt.Errorf("build lines delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}
	if err := r.insertLines(ctx, orderID, lines); err != nil {
		return err
	}

	total := types.ZeroMoney()
	for _, line := range lines {
		total = total.Add(line.LineTotal)
	}
	totalSQL, totalArgs, err := r.builder.Update(ordersTable).
		Set("total_amount", total).
		Where(squirrel.Eq{"id": orderID}).ToSql()
	if err != nil {
		return fmt.Errorf("build total update: %w", err)
	}
	if _, err := querier.Exec(ctx, totalSQL, totalArgs...); err != nil {
		return fmt.Errorf("update total: %w", err)
	}
	return nil
}
