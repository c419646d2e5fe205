package catalog

import (
	"context"
	"fmt"
	"time"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/id"
	"pharmstock/internal/core/tx"
	"pharmstock/pkg/logger"
)

// Cache is a read-through cache for item lookups. A nil-safe noop
// implementation is used when no cache backend is configured.
type Cache interface {
	GetItem(ctx context.Context, itemID id.ID) (*Item, bool)
	SetItem(ctx context.Context, item *Item)
	InvalidateItem(ctx context.Context, itemID id.ID)
}

// Service provides business operations for the medicine catalog.
type Service struct {
	repo      Repository
	cache     Cache
	txManager tx.Manager
}

// NewService creates a new catalog service.
func NewService(repo Repository, cache Cache, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		txManager: txManager,
	}
}

// Create validates and persists a new item with its packaging units.
func (s *Service) Create(ctx context.Context, item *Item) error {
	if err := item.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, item)
	})
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}

	logger.Info(ctx, "item created", "id", item.ID, "name", item.Name)
	return nil
}

// GetByID retrieves an item, consulting the cache first.
func (s *Service) GetByID(ctx context.Context, itemID id.ID) (*Item, error) {
	if item, ok := s.cache.GetItem(ctx, itemID); ok {
		return item, nil
	}

	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	s.cache.SetItem(ctx, item)
	return item, nil
}

// List returns items matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Item, error) {
	return s.repo.List(ctx, filter)
}

// Update persists catalog metadata changes (name, threshold, prices, units).
// Stock quantity changes through the repository Update are rejected: stock
// is mutated only through the ledger.
func (s *Service) Update(ctx context.Context, item *Item) error {
	if err := item.Validate(ctx); err != nil {
		return err
	}

	current, err := s.repo.GetByID(ctx, item.ID)
	if err != nil {
		return err
	}
	if current.BaseStockQuantity != item.BaseStockQuantity {
		return apperror.NewValidation("stock quantity cannot be edited directly; record a movement")
	}

	item.UpdatedAt = time.Now().UTC()
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, item)
	})
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	s.cache.InvalidateItem(ctx, item.ID)
	return nil
}

// LowStock lists items below their reorder threshold.
func (s *Service) LowStock(ctx context.Context) ([]Item, error) {
	return s.repo.List(ctx, Filter{LowStock: true})
}
