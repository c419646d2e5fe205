package memory

import (
	"context"
	"sort"
	"strings"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/id"
	"pharmstock/internal/domain/catalog"
)

// ItemRepo is the in-memory catalog.Repository.
type ItemRepo struct {
	store *Store
}

var _ catalog.Repository = (*ItemRepo)(nil)

func NewItemRepo(store *Store) *ItemRepo {
	return &ItemRepo{store: store}
}

func (r *ItemRepo) Create(ctx context.Context, item *catalog.Item) error {
	return r.store.withWrite(ctx, func() error {
		if _, ok := r.store.items[item.ID]; ok {
			return apperror.NewDuplicate("item", "id", item.ID.String())
		}
		r.store.items[item.ID] = cloneItem(item)
		return nil
	})
}

func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*catalog.Item, error) {
	var found *catalog.Item
	err := r.store.withRead(ctx, func() error {
		item, ok := r.store.items[itemID]
		if !ok {
			return apperror.NewNotFound("item", itemID.String())
		}
		found = cloneItem(item)
		return nil
	})
	return found, err
}

func (r *ItemRepo) List(ctx context.Context, filter catalog.Filter) ([]catalog.Item, error) {
	var out []catalog.Item
	err := r.store.withRead(ctx, func() error {
		for _, item := range r.store.items {
			if !matchesFilter(item, filter) {
				continue
			}
			out = append(out, *cloneItem(item))
		}
		sort.Slice(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
		out = paginateItems(out, filter.Limit, filter.Offset)
		return nil
	})
	return out, err
}

func matchesFilter(item *catalog.Item, filter catalog.Filter) bool {
	if filter.LowStock && !item.IsLowStock() {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(item.Name), needle) &&
			!strings.Contains(strings.ToLower(item.GenericName), needle) {
			return false
		}
	}
	return true
}

func paginateItems(items []catalog.Item, limit, offset int) []catalog.Item {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (r *ItemRepo) Update(ctx context.Context, item *catalog.Item) error {
	return r.store.withWrite(ctx, func() error {
		existing, ok := r.store.items[item.ID]
		if !ok {
			return apperror.NewNotFound("item", item.ID.String())
		}
		updated := cloneItem(item)
		// Stock changes flow through the ledger only.
		updated.BaseStockQuantity = existing.BaseStockQuantity
		r.store.items[item.ID] = updated
		return nil
	})
}

func (r *ItemRepo) GetStockForUpdate(ctx context.Context, itemID id.ID) (int64, error) {
	var qty int64
	err := r.store.withRead(ctx, func() error {
		item, ok := r.store.items[itemID]
		if !ok {
			return apperror.NewNotFound("item", itemID.String())
		}
		qty = item.BaseStockQuantity
		return nil
	})
	return qty, err
}

func (r *ItemRepo) UpdateStock(ctx context.Context, itemID id.ID, quantity int64) error {
	return r.store.withWrite(ctx, func() error {
		item, ok := r.store.items[itemID]
		if !ok {
			return apperror.NewNotFound("item", itemID.String())
		}
		item.BaseStockQuantity = quantity
		return nil
	})
}
