package memory

import (
	"context"
	"sort"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/id"
	"pharmstock/internal/core/types"
	"pharmstock/internal/domain/purchase"
)

// PurchaseRepo is the in-memory purchase.Repository.
type PurchaseRepo struct {
	store *Store
}

var _ purchase.Repository = (*PurchaseRepo)(nil)

func NewPurchaseRepo(store *Store) *PurchaseRepo {
	return &PurchaseRepo{store: store}
}

func (r *PurchaseRepo) Create(ctx context.Context, order *purchase.Order) error {
	return r.store.withWrite(ctx, func() error {
		if _, ok := r.store.orders[order.ID]; ok {
			return apperror.NewDuplicate("purchase order", "id", order.ID.String())
		}
		r.store.orders[order.ID] = cloneOrder(order)
		return nil
	})
}

func (r *PurchaseRepo) GetByID(ctx context.Context, orderID id.ID) (*purchase.Order, error) {
	var found *purchase.Order
	err := r.store.withRead(ctx, func() error {
		order, ok := r.store.orders[orderID]
		if !ok {
			return apperror.NewNotFound("purchase order", orderID.String())
		}
		found = cloneOrder(order)
		return nil
	})
	return found, err
}

func (r *PurchaseRepo) List(ctx context.Context, filter purchase.Filter) ([]purchase.Order, error) {
	var out []purchase.Order
	err := r.store.withRead(ctx, func() error {
		for _, order := range r.store.orders {
			if filter.Status != nil && order.Status != *filter.Status {
				continue
			}
			out = append(out, *cloneOrder(order))
		}
		sort.Slice(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
		if filter.Offset > 0 {
			if filter.Offset >= len(out) {
				out = nil
				return nil
			}
			out = out[filter.Offset:]
		}
		if filter.Limit > 0 && filter.Limit < len(out) {
			out = out[:filter.Limit]
		}
		return nil
	})
	return out, err
}

func (r *PurchaseRepo) UpdateStatus(ctx context.Context, order *purchase.Order, expected purchase.Status) error {
	return r.store.withWrite(ctx, func() error {
		existing, ok := r.store.orders[order.ID]
		if !ok {
			return apperror.NewNotFound("purchase order", order.ID.String())
		}
		if existing.Status != expected {
			return apperror.NewInvalidTransition(string(existing.Status), string(order.Status))
		}
		existing.Status = order.Status
		existing.ApprovedBy = order.ApprovedBy
		existing.ApprovedAt = order.ApprovedAt
		existing.ReceivedBy = order.ReceivedBy
		existing.ReceivedAt = order.ReceivedAt
		return nil
	})
}

func (r *PurchaseRepo) ReplaceLines(ctx context.Context, orderID id.ID, lines []purchase.Line) error {
	return r.store.withWrite(ctx, func() error {
		existing, ok := r.store.orders[orderID]
		if !ok {
			return apperror.NewNotFound("purchase order", orderID.String())
		}
		existing.Lines = make([]purchase.Line, len(lines))
		copy(existing.Lines, lines)
		total := types.ZeroMoney()
		for _, line := range lines {
			total = total.Add(line.LineTotal)
		}
		existing.TotalAmount = total
		return nil
	})
}
