package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sethvargo/go-retry"

	"github.com/ghuser/lostfound/pkg/logger"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	domainevents "github.com/ghuser/lostfound/services/item/domain/events"
	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
)

const (
	indexRetryBase  = 100 * time.Millisecond
	indexMaxRetries = 4
)

// IndexRequest is the position of one item to (re)index.
type IndexRequest struct {
	ItemID    string  `json:"item_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Indexer makes a stored item discoverable: its position goes into the geo
// index and its record is read once through the cache so the first timeline
// page that shows it is served from Redis. Indexing is idempotent.
type Indexer struct {
	geo     repositories.GeoIndex
	records repositories.RecordStore
	log     logger.Logger
	backoff func() retry.Backoff
}

// NewIndexer returns an Indexer. records may be nil to skip cache warming.
func NewIndexer(geo repositories.GeoIndex, records repositories.RecordStore, log logger.Logger) *Indexer {
	return &Indexer{
		geo:     geo,
		records: records,
		log:     log,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(indexMaxRetries, retry.NewExponential(indexRetryBase))
		},
	}
}

// Index writes the item position, retrying transient geo index failures with
// exponential backoff.
func (ix *Indexer) Index(ctx context.Context, req IndexRequest) error {
	coord, err := models.NewCoordinate(req.Latitude, req.Longitude)
	if err != nil {
		return fmt.Errorf("%w: %w", itemdomain.ErrInvalidItem, err)
	}

	attempt := 0
	err = retry.Do(ctx, ix.backoff(), func(ctx context.Context) error {
		attempt++
		if err := ix.geo.SetLocation(ctx, req.ItemID, coord); err != nil {
			ix.log.WarnContext(ctx, "geo index write failed", "item_id", req.ItemID, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("index item %s: %w", req.ItemID, err)
	}
	return nil
}

// Warm reads the record once so a read-through store caches it. A missing
// record is not an error: the event may be replayed after a cleanup.
func (ix *Indexer) Warm(ctx context.Context, itemID string) error {
	if ix.records == nil {
		return nil
	}
	if _, err := ix.records.ReadOnce(ctx, itemID); err != nil {
		if errors.Is(err, itemdomain.ErrItemNotFound) {
			ix.log.WarnContext(ctx, "warm skipped, record missing", "item_id", itemID)
			return nil
		}
		return fmt.Errorf("warm item %s: %w", itemID, err)
	}
	return nil
}

// HandleItemCreated is the item.created subscriber: it re-indexes the item's
// position and warms its record. Handlers must be idempotent since the bus
// redelivers on failure.
func (ix *Indexer) HandleItemCreated(ctx context.Context, msg *message.Message) error {
	var evt domainevents.ItemCreatedEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		// A malformed payload will never succeed; ack it.
		ix.log.ErrorContext(ctx, "dropping malformed item.created", "message_id", msg.UUID, "error", err)
		return nil
	}

	if err := ix.Index(ctx, IndexRequest{ItemID: evt.ItemID, Latitude: evt.Latitude, Longitude: evt.Longitude}); err != nil {
		if errors.Is(err, itemdomain.ErrInvalidItem) {
			ix.log.ErrorContext(ctx, "dropping item.created with bad position", "item_id", evt.ItemID, "error", err)
			return nil
		}
		return err
	}
	if err := ix.Warm(ctx, evt.ItemID); err != nil {
		// Cache warming is best-effort; log but do not fail the handler.
		ix.log.WarnContext(ctx, "cache warm failed for item.created", "item_id", evt.ItemID, "error", err)
	}

	ix.log.InfoContext(ctx, "item indexed", "item_id", evt.ItemID, "owner_id", evt.OwnerID)
	return nil
}
