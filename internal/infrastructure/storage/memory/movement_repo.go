package memory

import (
	"context"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/id"
	"pharmstock/internal/domain/ledger"
)

// MovementRepo is the in-memory ledger.Repository. Movements are held in an
// append-only slice; the idempotency index mirrors the partial unique index
// the postgres schema enforces.
type MovementRepo struct {
	store *Store
}

var _ ledger.Repository = (*MovementRepo)(nil)

func NewMovementRepo(store *Store) *MovementRepo {
	return &MovementRepo{store: store}
}

func (r *MovementRepo) Create(ctx context.Context, m *ledger.Movement) error {
	return r.store.withWrite(ctx, func() error {
		if m.IdempotencyKey != nil {
			key := movementKey(m.ItemID, m.Kind, *m.IdempotencyKey)
			if _, ok := r.store.movementKeys[key]; ok {
				return apperror.NewDuplicateMovement(m.ItemID.String(), string(m.Kind), *m.IdempotencyKey)
			}
			r.store.movementKeys[key] = struct{}{}
		}
		r.store.movements = append(r.store.movements, *m)
		return nil
	})
}

func (r *MovementRepo) GetByID(ctx context.Context, movementID id.ID) (*ledger.Movement, error) {
	var found *ledger.Movement
	err := r.store.withRead(ctx, func() error {
		for i := range r.store.movements {
			if r.store.movements[i].ID == movementID {
				m := r.store.movements[i]
				found = &m
				return nil
			}
		}
		return apperror.NewNotFound("movement", movementID.String())
	})
	return found, err
}

func (r *MovementRepo) ExistsByKey(ctx context.Context, itemID id.ID, kind ledger.Kind, key string) (bool, error) {
	var exists bool
	err := r.store.withRead(ctx, func() error {
		_, exists = r.store.movementKeys[movementKey(itemID, kind, key)]
		return nil
	})
	return exists, err
}

func (r *MovementRepo) ListByItem(ctx context.Context, itemID id.ID, filter ledger.HistoryFilter, page ledger.Page) ([]ledger.Movement, error) {
	var out []ledger.Movement
	err := r.store.withRead(ctx, func() error {
		// Newest first, matching the postgres ordering.
		for i := len(r.store.movements) - 1; i >= 0; i-- {
			m := r.store.movements[i]
			if m.ItemID != itemID {
				continue
			}
			if filter.Kind != nil && m.Kind != *filter.Kind {
				continue
			}
			if filter.From != nil && m.CreatedAt.Before(*filter.From) {
				continue
			}
			if filter.To != nil && m.CreatedAt.After(*filter.To) {
				continue
			}
			out = append(out, m)
		}
		if page.Offset > 0 {
			if page.Offset >= len(out) {
				out = nil
				return nil
			}
			out = out[page.Offset:]
		}
		if page.Limit > 0 && page.Limit < len(out) {
			out = out[:page.Limit]
		}
		return nil
	})
	return out, err
}

func (r *MovementRepo) SumDeltas(ctx context.Context, itemID id.ID) (int64, error) {
	var sum int64
	err := r.store.withRead(ctx, func() error {
		for i := range r.store.movements {
			if r.store.movements[i].ItemID == itemID {
				sum += r.store.movements[i].DeltaBaseUnits
			}
		}
		return nil
	})
	return sum, err
}
