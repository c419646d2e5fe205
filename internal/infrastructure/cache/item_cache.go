// Package cache provides the optional Redis read cache for catalog items.
// Cache failures never fail the request; misses fall through to the
// repository and errors are logged at debug level.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"pharmstock/internal/core/id"
	"pharmstock/internal/domain/catalog"
	"pharmstock/pkg/logger"
)

const itemKeyPrefix = "pharmstock:item:"

// ItemCache caches catalog items in Redis, encoded with msgpack.
type ItemCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ catalog.Cache = (*ItemCache)(nil)

// NewItemCache creates a cache over an existing Redis client.
func NewItemCache(client *redis.Client, ttl time.Duration) *ItemCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ItemCache{client: client, ttl: ttl}
}

func itemKey(itemID id.ID) string {
	return itemKeyPrefix + itemID.String()
}

// GetItem returns the cached item, or false on a miss or cache error.
func (c *ItemCache) GetItem(ctx context.Context, itemID id.ID) (*catalog.Item, bool) {
	data, err := c.client.Get(ctx, itemKey(itemID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Debug(ctx, "item cache read failed", "item_id", itemID, "error", err)
		}
		return nil, false
	}

	var item catalog.Item
	if err := msgpack.Unmarshal(data, &item); err != nil {
		// Stale encoding, drop the entry.
		logger.Warn(ctx, "item cache entry undecodable, evicting", "item_id", itemID, "error", err)
		c.client.Del(ctx, itemKey(itemID))
		return nil, false
	}
	return &item, true
}

// SetItem stores the item, best effort.
func (c *ItemCache) SetItem(ctx context.Context, item *catalog.Item) {
	data, err := msgpack.Marshal(item)
	if err != nil {
		logger.Warn(ctx, "item cache encode failed", "item_id", item.ID, "error", err)
		return
	}
	if err := c.client.Set(ctx, itemKey(item.ID), data, c.ttl).Err(); err != nil {
		logger.Debug(ctx, "item cache write failed", "item_id", item.ID, "error", err)
	}
}

// InvalidateItem removes the item from the cache.
func (c *ItemCache) InvalidateItem(ctx context.Context, itemID id.ID) {
	if err := c.client.Del(ctx, itemKey(itemID)).Err(); err != nil {
		logger.Debug(ctx, "item cache invalidate failed", "item_id", itemID, "error", err)
	}
}

// Ping verifies the Redis connection at startup.
func (c *ItemCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Noop is the cache used when no Redis backend is configured.
type Noop struct{}

var _ catalog.Cache = Noop{}

func (Noop) GetItem(context.Context, id.ID) (*catalog.Item, bool) { return nil, false }
func (Noop) SetItem(context.Context, *catalog.Item)               {}
func (Noop) InvalidateItem(context.Context, id.ID)                {}
