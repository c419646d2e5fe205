package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/id"
	"pharmstock/internal/domain/ledger"
)

const movementsTable = "stock_movements"

// uniqueViolation is the PostgreSQL error code for unique constraint breach.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// MovementRepo implements ledger.Repository. The table carries a partial
// unique index on (item_id, kind, idempotency_key) WHERE idempotency_key IS
// NOT NULL; that constraint, not the pre-insert existence check, is what
// makes duplicate detection race-free.
type MovementRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewMovementRepo creates a new movement repository.
func NewMovementRepo(txManager *TxManager) *MovementRepo {
	return &MovementRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var movementColumns = []string{
	"id", "item_id", "kind", "delta_base_units",
	"previous_quantity", "new_quantity", "cost_of_goods",
	"unit_label", "unit_confidence", "idempotency_key",
	"corrects_movement_id", "actor", "created_at",
}

// Create appends a movement row.
func (r *MovementRepo) Create(ctx context.Context, m *ledger.Movement) error {
	q := r.builder.Insert(movementsTable).
		Columns(movementColumns...).
		Values(m.ID, m.ItemID, m.Kind, m.DeltaBaseUnits,
			m.PreviousQuantity, m.NewQuantity, m.CostOfGoods,
			m.UnitLabel, m.Confidence, m.IdempotencyKey,
			m.CorrectsMovementID, m.Actor, m.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			key := ""
			if m.IdempotencyKey != nil {
				key = *m.IdempotencyKey
			}
			return apperror.NewDuplicateMovement(m.ItemID.String(), string(m.Kind), key)
		}
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// GetByID retrieves a movement.
func (r *MovementRepo) GetByID(ctx context.Context, movementID id.ID) (*ledger.Movement, error) {
	sql, args, err := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"id": movementID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var m ledger.Movement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &m, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("movement", movementID)
		}
		return nil, fmt.Errorf("select movement: %w", err)
	}
	return &m, nil
}

// ExistsByKey checks for a prior movement with this idempotency key.
func (r *MovementRepo) ExistsByKey(ctx context.Context, itemID id.ID, kind ledger.Kind, key string) (bool, error) {
	sql, args, err := r.builder.Select("1").
		From(movementsTable).
		Where(squirrel.Eq{"item_id": itemID, "kind": kind, "idempotency_key": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	querier := r.txManager.GetQuerier(ctx)
	err = querier.QueryRow(ctx, sql, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check idempotency key: %w", err)
	}
	return true, nil
}

// ListByItem returns an item's movements, newest first.
func (r *MovementRepo) ListByItem(ctx context.Context, itemID id.ID, filter ledger.HistoryFilter, page ledger.Page) ([]ledger.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"item_id": itemID}).
		OrderBy("created_at DESC", "id DESC")

	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.To})
	}
	if page.Limit > 0 {
		q = q.Limit(uint64(page.Limit))
	}
	if page.Offset > 0 {
		q = q.Offset(uint64(page.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []ledger.Movement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}

// SumDeltas replays the ledger for one item.
func (r *MovementRepo) SumDeltas(ctx context.Context, itemID id.ID) (int64, error) {
	sql, args, err := r.builder.Select("COALESCE(SUM(delta_base_units), 0)").
		From(movementsTable).
		Where(squirrel.Eq{"item_id": itemID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var sum int64
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum deltas: %w", err)
	}
	return sum, nil
}
