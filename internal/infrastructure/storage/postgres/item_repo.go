package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/id"
	"pharmstock/internal/domain/catalog"
)

const (
	itemsTable          = "items"
	packagingUnitsTable = "item_packaging_units"
)

// ItemRepo implements catalog.Repository.
type ItemRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewItemRepo creates a new item repository.
func NewItemRepo(txManager *TxManager) *ItemRepo {
	return &ItemRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts an item with its packaging units.
func (r *ItemRepo) Create(ctx context.Context, item *catalog.Item) error {
	q := r.builder.Insert(itemsTable).
		Columns("id", "name", "generic_name", "base_stock_quantity",
			"reorder_threshold", "cost_price_per_pack", "created_at", "updated_at").
		Values(item.ID, item.Name, item.GenericName, item.BaseStockQuantity,
			item.ReorderThreshold, item.CostPricePerPack, item.CreatedAt, item.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("item", "name", item.Name)
		}
		return fmt.Errorf("insert item: %w", err)
	}

	return r.insertUnits(ctx, item.ID, item.PackagingUnits)
}

func (r *ItemRepo) insertUnits(ctx context.Context, itemID id.ID, units []catalog.PackagingUnit) error {
	if len(units) == 0 {
		return nil
	}

	q := r.builder.Insert(packagingUnitsTable).
		Columns("item_id", "label", "base_units_per_package", "selling_price_per_package")
	for _, u := range units {
		q = q.Values(itemID, u.Label, u.BaseUnitsPerPackage, u.SellingPricePerPackage)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build units insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert packaging units: %w", err)
	}
	return nil
}

// GetByID retrieves an item with its packaging units.
func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*catalog.Item, error) {
	q := r.builder.Select("id", "name", "generic_name", "base_stock_quantity",
		"reorder_threshold", "cost_price_per_pack", "created_at", "updated_at").
		From(itemsTable).
		Where(squirrel.Eq{"id": itemID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var item catalog.Item
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &item, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("item", itemID)
		}
		return nil, fmt.Errorf("select item: %w", err)
	}

	units, err := r.getUnits(ctx, itemID)
	if err != nil {
		return nil, err
	}
	item.PackagingUnits = units
	return &item, nil
}

func (r *ItemRepo) getUnits(ctx context.Context, itemID id.ID) ([]catalog.PackagingUnit, error) {
	q := r.builder.Select("item_id", "label", "base_units_per_package", "selling_price_per_package").
		From(packagingUnitsTable).
		Where(squirrel.Eq{"item_id": itemID}).
		OrderBy("base_units_per_package")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build units query: %w", err)
	}

	var units []catalog.PackagingUnit
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &units, sql, args...); err != nil {
		return nil, fmt.Errorf("select packaging units: %w", err)
	}
	return units, nil
}

// List returns items matching the filter, packaging units included.
func (r *ItemRepo) List(ctx context.Context, filter catalog.Filter) ([]catalog.Item, error) {
	q := r.builder.Select("id", "name", "generic_name", "base_stock_quantity",
		"reorder_threshold", "cost_price_per_pack", "created_at", "updated_at").
		From(itemsTable).
		OrderBy("name")

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"generic_name": pattern},
		})
	}
	if filter.LowStock {
		q = q.Where("reorder_threshold > 0 AND base_stock_quantity < reorder_threshold")
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

	var items []catalog.Item
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}

	for i := range items {
		units, err := r.getUnits(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].PackagingUnits = units
	}
	return items, nil
}

// Update rewrites item metadata and packaging units. The cached stock
// quantity is deliberately not written here; only UpdateStock touches it.
func (r *ItemRepo) Update(ctx context.Context, item *catalog.Item) error {
	q := r.builder.Update(itemsTable).
		Set("name", item.Name).
		Set("generic_name", item.GenericName).
		Set("reorder_threshold", item.ReorderThreshold).
		Set("cost_price_per_pack", item.CostPricePerPack).
		Set("updated_at", item.UpdatedAt).
		Where(squirrel.Eq{"id": item.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("item", item.ID)
	}

	// Replace packaging units wholesale.
	delSQL, delArgs, err := r.builder.Delete(packagingUnitsTable).
		Where(squirrel.Eq{"item_id": item.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build units delete: %w", err)
	}
	if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete packaging units: %w", err)
	}
	return r.insertUnits(ctx, item.ID, item.PackagingUnits)
}

// GetStockForUpdate reads the cached stock quantity with SELECT FOR UPDATE
// so the row stays locked until the surrounding transaction ends.
func (r *ItemRepo) GetStockForUpdate(ctx context.Context, itemID id.ID) (int64, error) {
	sql, args, err := r.builder.Select("base_stock_quantity").
		From(itemsTable).
		Where(squirrel.Eq{"id": itemID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var quantity int64
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&quantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperror.NewNotFound("item", itemID)
		}
		return 0, fmt.Errorf("select stock for update: %w", err)
	}
	return quantity, nil
}

// UpdateStock writes the cached stock quantity. Called only by the ledger
// inside the same transaction as GetStockForUpdate.
func (r *ItemRepo) UpdateStock(ctx context.Context, itemID id.ID, quantity int64) error {
	sql, args, err := r.builder.Update(itemsTable).
		Set("base_stock_quantity", quantity).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": itemID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("item", itemID)
	}
	return nil
}
