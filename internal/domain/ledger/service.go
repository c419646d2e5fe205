package ledger

import (
	"context"
	"fmt"
	"time"

	"pharmstock/internal/core/apperror"
	appctx "pharmstock/internal/core/context"
	"pharmstock/internal/core/id"
	"pharmstock/internal/core/tx"
	"pharmstock/internal/domain/catalog"
	"pharmstock/internal/domain/pricing"
	"pharmstock/internal/domain/units"
	"pharmstock/pkg/logger"
)

// ItemStore is the slice of the catalog repository the ledger needs.
type ItemStore interface {
	GetByID(ctx context.Context, itemID id.ID) (*catalog.Item, error)
	GetStockForUpdate(ctx context.Context, itemID id.ID) (int64, error)
	UpdateStock(ctx context.Context, itemID id.ID, quantity int64) error
}

// Archiver snapshots corrected movements for the audit archive.
type Archiver interface {
	SnapshotCorrection(ctx context.Context, original, compensation *Movement) error
}

// NoopArchiver discards snapshots. Used when no archive backend is wired.
type NoopArchiver struct{}

func (NoopArchiver) SnapshotCorrection(context.Context, *Movement, *Movement) error { return nil }

// ApplyInput describes one requested stock movement.
type ApplyInput struct {
	ItemID id.ID
	Kind   Kind

	// Quantity is a count of UnitLabel units. Positive for PURCHASE, SALE
	// and LOSS (the kind determines direction); signed for ADJUSTMENT.
	Quantity int64

	// UnitLabel is the packaging unit the quantity is expressed in.
	// Empty means base units.
	UnitLabel string

	// IdempotencyKey, when set, makes retries of the same logical event
	// safe: the second apply is rejected with DuplicateMovement.
	IdempotencyKey string

	// Actor overrides the context actor when set.
	Actor string

	// CorrectsMovementID links a compensating ADJUSTMENT to the movement
	// it reverses. Set only by Void.
	CorrectsMovementID *id.ID
}

// Service is the stock ledger. All stock-level changes go through Apply;
// direct writes to the cached item quantity bypassing the ledger are a
// defect.
type Service struct {
	repo      Repository
	items     ItemStore
	converter *units.Converter
	calc      *pricing.Calculator
	guard     *Guard
	txManager tx.Manager
	archiver  Archiver
}

// NewService creates a stock ledger service.
func NewService(
	repo Repository,
	items ItemStore,
	converter *units.Converter,
	calc *pricing.Calculator,
	guard *Guard,
	txManager tx.Manager,
	archiver Archiver,
) *Service {
	if archiver == nil {
		archiver = NoopArchiver{}
	}
	return &Service{
		repo:      repo,
		items:     items,
		converter: converter,
		calc:      calc,
		guard:     guard,
		txManager: txManager,
		archiver:  archiver,
	}
}

// Guard exposes the per-item serialization guard so multi-item operations
// (sales, purchase order receives) can lock all their items up front in
// sorted order.
func (s *Service) Guard() *Guard {
	return s.guard
}

// Apply records one stock movement: convert to base units, serialize per
// item, validate sufficiency, write the movement row and the cached stock
// quantity as one atomic unit.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (*Movement, error) {
	if err := s.precheck(ctx, in); err != nil {
		return nil, err
	}

	unlock := s.guard.Lock(in.ItemID)
	defer unlock()

	return s.applyLocked(ctx, in)
}

// ApplyLocked records a movement for a caller that already holds the item
// locks (via Guard.LockMany) and an open transaction. Used by the sale and
// purchase order paths so a multi-line operation stays all-or-nothing.
func (s *Service) ApplyLocked(ctx context.Context, in ApplyInput) (*Movement, error) {
	if err := s.precheck(ctx, in); err != nil {
		return nil, err
	}
	return s.applyLocked(ctx, in)
}

// precheck validates the input and runs the idempotency existence check.
// Runs before lock acquisition so duplicate detection does not contend for
// the per-item lock; the storage unique constraint remains authoritative.
func (s *Service) precheck(ctx context.Context, in ApplyInput) error {
	if !in.Kind.IsValid() {
		return apperror.NewValidation(fmt.Sprintf("unknown movement kind %q", in.Kind))
	}
	if in.Quantity == 0 {
		return apperror.NewValidation("quantity must not be zero")
	}
	if in.Quantity < 0 && in.Kind != KindAdjustment {
		return apperror.NewValidation("negative quantity is only valid for ADJUSTMENT")
	}

	if in.IdempotencyKey != "" {
		exists, err := s.repo.ExistsByKey(ctx, in.ItemID, in.Kind, in.IdempotencyKey)
		if err != nil {
			return fmt.Errorf("idempotency check: %w", err)
		}
		if exists {
			return apperror.NewDuplicateMovement(in.ItemID.String(), string(in.Kind), in.IdempotencyKey)
		}
	}

	return nil
}

// applyLocked is the critical section: read stock, validate, write movement
// and cached quantity. Caller holds the per-item lock; the transaction makes
// the two writes atomic (a nested call joins the caller's transaction).
func (s *Service) applyLocked(ctx context.Context, in ApplyInput) (*Movement, error) {
	item, err := s.items.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}

	count := in.Quantity
	negative := count < 0
	if negative {
		count = -count
	}

	baseUnits, resolution, err := s.convert(ctx, item, in.UnitLabel, count)
	if err != nil {
		return nil, err
	}

	delta := baseUnits
	switch in.Kind {
	case KindSale, KindLoss:
		delta = -baseUnits
	case KindAdjustment:
		if negative {
			delta = -baseUnits
		}
	}

	var movement *Movement
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.items.GetStockForUpdate(ctx, in.ItemID)
		if err != nil {
			return err
		}

		newQuantity := current + delta
		if newQuantity < 0 {
			if in.Kind == KindAdjustment {
				// Adjustment is a correction tool, not a second deduction
				// path: clamp at zero instead of failing.
				newQuantity = 0
				delta = -current
			} else {
				return apperror.NewInsufficientStock(in.ItemID.String(), baseUnits, current)
			}
		}

		movement = &Movement{
			ID:                 id.New(),
			ItemID:             in.ItemID,
			Kind:               in.Kind,
			DeltaBaseUnits:     delta,
			PreviousQuantity:   current,
			NewQuantity:        newQuantity,
			UnitLabel:          resolution.Matched,
			Confidence:         resolution.Confidence,
			CorrectsMovementID: in.CorrectsMovementID,
			Actor:              s.actor(ctx, in.Actor),
			CreatedAt:          time.Now().UTC(),
		}
		if in.IdempotencyKey != "" {
			key := in.IdempotencyKey
			movement.IdempotencyKey = &key
		}
		if in.Kind == KindSale {
			movement.CostOfGoods = s.calc.CostOfGoods(item, baseUnits)
		}

		if err := s.repo.Create(ctx, movement); err != nil {
			return err
		}
		return s.items.UpdateStock(ctx, in.ItemID, newQuantity)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock movement recorded",
		"movement_id", movement.ID,
		"item_id", movement.ItemID,
		"kind", movement.Kind,
		"delta", movement.DeltaBaseUnits,
		"new_quantity", movement.NewQuantity,
	)

	return movement, nil
}

func (s *Service) convert(ctx context.Context, item *catalog.Item, label string, count int64) (int64, units.Resolution, error) {
	if label == "" {
		return count, units.Resolution{Factor: 1, Confidence: units.ConfidenceExact, Matched: "base"}, nil
	}
	return s.converter.ToBaseUnits(ctx, item, label, count)
}

func (s *Service) actor(ctx context.Context, override string) string {
	if override != "" {
		return override
	}
	return appctx.ActorName(ctx)
}

// CurrentStock returns the cached stock quantity in base units.
func (s *Service) CurrentStock(ctx context.Context, itemID id.ID) (int64, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return item.BaseStockQuantity, nil
}

// GetByID returns one movement.
func (s *Service) GetByID(ctx context.Context, movementID id.ID) (*Movement, error) {
	return s.repo.GetByID(ctx, movementID)
}

// History returns the item's movements, newest first.
func (s *Service) History(ctx context.Context, itemID id.ID, filter HistoryFilter, page Page) ([]Movement, error) {
	return s.repo.ListByItem(ctx, itemID, filter, page)
}

// Breakdown decomposes the item's current stock into boxes, strips and
// loose units for display.
func (s *Service) Breakdown(ctx context.Context, itemID id.ID) (units.Breakdown, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return units.Breakdown{}, err
	}
	return units.FromBaseUnits(item, item.BaseStockQuantity), nil
}

// Rebuild recomputes the cached stock quantity by replaying the movement
// log. The ledger is ground truth; any drift in the cache is resolved in
// its favor.
func (s *Service) Rebuild(ctx context.Context, itemID id.ID) (int64, error) {
	unlock := s.guard.Lock(itemID)
	defer unlock()

	var total int64
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.items.GetStockForUpdate(ctx, itemID); err != nil {
			return err
		}
		sum, err := s.repo.SumDeltas(ctx, itemID)
		if err != nil {
			return fmt.Errorf("sum deltas: %w", err)
		}
		total = sum
		return s.items.UpdateStock(ctx, itemID, total)
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx, "stock rebuilt from ledger", "item_id", itemID, "quantity", total)
	return total, nil
}

// Void reverses a movement with a compensating ADJUSTMENT. This is the one
// administrative override of ledger immutability: the original row is never
// removed, so the conservation invariant holds by construction. Requires an
// administrative actor; the pair is snapshotted to the audit archive.
func (s *Service) Void(ctx context.Context, movementID id.ID) (*Movement, error) {
	if actor := appctx.GetActor(ctx); actor != nil && !actor.IsAdmin {
		return nil, apperror.NewForbidden("movement correction requires an administrative actor")
	}

	original, err := s.repo.GetByID(ctx, movementID)
	if err != nil {
		return nil, err
	}

	compensation, err := s.Apply(ctx, ApplyInput{
		ItemID:             original.ItemID,
		Kind:               KindAdjustment,
		Quantity:           -original.DeltaBaseUnits,
		IdempotencyKey:     "void-" + movementID.String(),
		CorrectsMovementID: &original.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.archiver.SnapshotCorrection(ctx, original, compensation); err != nil {
		logger.Warn(ctx, "correction snapshot failed", "movement_id", movementID, "error", err)
	}

	logger.Info(ctx, "movement voided",
		"movement_id", movementID,
		"compensation_id", compensation.ID,
	)
	return compensation, nil
}
