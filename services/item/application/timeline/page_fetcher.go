package timeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
)

// RecordReader is the read half of repositories.RecordStore.
type RecordReader interface {
	ReadOnce(ctx context.Context, itemID string) (*models.Record, error)
}

// recordCache memoizes records for the lifetime of one radius context, so a
// filter change does not re-read every key of its base set.
type recordCache struct {
	store RecordReader

	mu   sync.RWMutex
	recs map[string]*models.Record
}

func newRecordCache(store RecordReader) *recordCache {
	return &recordCache{store: store, recs: make(map[string]*models.Record)}
}

func (c *recordCache) ReadOnce(ctx context.Context, itemID string) (*models.Record, error) {
	c.mu.RLock()
	rec, ok := c.recs[itemID]
	c.mu.RUnlock()
	if ok {
		return rec, nil
	}

	rec, err := c.store.ReadOnce(ctx, itemID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.recs[itemID] = rec
	c.mu.Unlock()
	return rec, nil
}

func (c *recordCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.recs)
}

// PageFetcher resolves a window of item IDs into Items.
type PageFetcher struct {
	records RecordReader
	geo     repositories.GeoIndex
	runner  *BatchRunner
}

// NewPageFetcher returns a PageFetcher reading through records and geo.
func NewPageFetcher(records RecordReader, geo repositories.GeoIndex, runner *BatchRunner) *PageFetcher {
	return &PageFetcher{records: records, geo: geo, runner: runner}
}

// Fetch reads the record and position of every ID concurrently and returns the
// decodable items in the order of ids. Missing records, missing positions and
// malformed records are skipped. On timeout the items resolved so far are
// returned with the error.
func (f *PageFetcher) Fetch(ctx context.Context, ids []string) ([]*models.Item, error) {
	return gather(ctx, f.runner, "page", ids, func(ctx context.Context, id string) (*models.Item, bool, error) {
		rec, err := f.records.ReadOnce(ctx, id)
		if err != nil {
			return nil, false, fmt.Errorf("read record: %w", err)
		}
		loc, err := f.geo.Location(ctx, id)
		if err != nil {
			return nil, false, fmt.Errorf("read location: %w", err)
		}
		item, err := rec.Decode(loc)
		if err != nil {
			return nil, false, err
		}
		return item, true, nil
	})
}
