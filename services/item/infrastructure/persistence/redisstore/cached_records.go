package redisstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/ghuser/lostfound/pkg/cache"
	"github.com/ghuser/lostfound/pkg/logger"
	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
)

// CachedRecordStore is a read-through cache in front of a RecordStore.
// Cache failures are logged and fall back to the store.
type CachedRecordStore struct {
	next  repositories.RecordStore
	cache *cache.ItemCache
	log   logger.Logger
}

// NewCachedRecordStore wraps next with c.
func NewCachedRecordStore(next repositories.RecordStore, c *cache.ItemCache, log logger.Logger) *CachedRecordStore {
	return &CachedRecordStore{next: next, cache: c, log: log}
}

func (s *CachedRecordStore) ReadOnce(ctx context.Context, itemID string) (*models.Record, error) {
	cached, err := s.cache.Get(ctx, itemID)
	if err == nil {
		return toRecord(cached), nil
	}
	if !errors.Is(err, redis.Nil) {
		s.log.WarnContext(ctx, "record cache read failed", "item_id", itemID, "error", err)
	}

	rec, err := s.next.ReadOnce(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, toCached(rec)); err != nil {
		s.log.WarnContext(ctx, "record cache fill failed", "item_id", itemID, "error", err)
	}
	return rec, nil
}

func (s *CachedRecordStore) Write(ctx context.Context, rec *models.Record) error {
	if err := s.next.Write(ctx, rec); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, toCached(rec)); err != nil {
		s.log.WarnContext(ctx, "record cache fill failed", "item_id", rec.ItemID, "error", err)
	}
	return nil
}

func (s *CachedRecordStore) ReadChildIndex(ctx context.Context, ownerID string) ([]string, error) {
	return s.next.ReadChildIndex(ctx, ownerID)
}

func toCached(r *models.Record) *cache.CachedItem {
	return &cache.CachedItem{
		ItemID:         r.ItemID,
		Name:           r.Name,
		Details:        r.Details,
		Category:       r.Category,
		Subcategory:    r.Subcategory,
		CreatedBy:      r.CreatedBy,
		DateOfCreation: r.DateOfCreation,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
	}
}

func toRecord(c *cache.CachedItem) *models.Record {
	return &models.Record{
		ItemID:         c.ItemID,
		Name:           c.Name,
		Details:        c.Details,
		Category:       c.Category,
		Subcategory:    c.Subcategory,
		CreatedBy:      c.CreatedBy,
		DateOfCreation: c.DateOfCreation,
		Latitude:       c.Latitude,
		Longitude:      c.Longitude,
	}
}
