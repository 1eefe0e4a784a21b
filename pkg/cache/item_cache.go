package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultItemCacheTTL is used when NewItemCache is given a zero TTL.
	DefaultItemCacheTTL = 24 * time.Hour

	itemCacheKeyPrefix = "item"
)

// CachedItem is the item record as stored in Redis.
// Fields are stored as a Redis hash. Records are immutable once written,
// so entries never need invalidation, only expiry.
type CachedItem struct {
	ItemID         string
	Name           string
	Details        string
	Category       string
	Subcategory    string
	CreatedBy      string
	DateOfCreation string
	Latitude       float64
	Longitude      float64
}

// ItemCache provides structured read/write operations for item cache entries.
// Key format: "item:{itemID}"
type ItemCache struct {
	client *RedisClient
	ttl    time.Duration
}

// NewItemCache creates a new ItemCache backed by the given RedisClient.
func NewItemCache(r *RedisClient, ttl time.Duration) *ItemCache {
	if ttl <= 0 {
		ttl = DefaultItemCacheTTL
	}
	return &ItemCache{client: r, ttl: ttl}
}

// Get retrieves a cached item by ID.
// Returns redis.Nil error when the key does not exist or has expired.
func (c *ItemCache) Get(ctx context.Context, itemID string) (*CachedItem, error) {
	vals, err := c.client.Client().HGetAll(ctx, c.key(itemID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	if len(vals) == 0 {
		return nil, redis.Nil // key not found
	}

	lat, err := strconv.ParseFloat(vals["latitude"], 64)
	if err != nil {
		return nil, fmt.Errorf("cache parse latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(vals["longitude"], 64)
	if err != nil {
		return nil, fmt.Errorf("cache parse longitude: %w", err)
	}

	return &CachedItem{
		ItemID:         vals["item_id"],
		Name:           vals["name"],
		Details:        vals["details"],
		Category:       vals["category"],
		Subcategory:    vals["subcategory"],
		CreatedBy:      vals["created_by"],
		DateOfCreation: vals["date_of_creation"],
		Latitude:       lat,
		Longitude:      lng,
	}, nil
}

// Set writes a cached item as a Redis hash with the cache TTL.
// Uses a pipeline to set all fields and the TTL atomically.
func (c *ItemCache) Set(ctx context.Context, item *CachedItem) error {
	key := c.key(item.ItemID)
	pipe := c.client.Client().Pipeline()
	pipe.HSet(ctx, key,
		"item_id", item.ItemID,
		"name", item.Name,
		"details", item.Details,
		"category", item.Category,
		"subcategory", item.Subcategory,
		"created_by", item.CreatedBy,
		"date_of_creation", item.DateOfCreation,
		"latitude", strconv.FormatFloat(item.Latitude, 'f', -1, 64),
		"longitude", strconv.FormatFloat(item.Longitude, 'f', -1, 64),
	)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes a cached item.
func (c *ItemCache) Delete(ctx context.Context, itemID string) error {
	if err := c.client.Client().Del(ctx, c.key(itemID)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// key builds the Redis key: "item:{itemID}"
func (c *ItemCache) key(itemID string) string {
	return fmt.Sprintf("%s:%s", itemCacheKeyPrefix, itemID)
}
