package events

import (
	"time"

	"github.com/google/uuid"
)

// TopicItemCreated is the Watermill topic published when an Item is created.
const TopicItemCreated = "item.created"

// ItemCreatedEvent is published in the same transaction that writes the item record.
// Consumers subscribe via EventBus.Subscribe(ctx, events.TopicItemCreated).
// It carries the position so a consumer can rebuild the geo index without a read.
type ItemCreatedEvent struct {
	EventID    uuid.UUID `json:"event_id"` // Unique publish-time identifier for deduplication
	Version    int       `json:"version"`  // Schema version; increment on breaking changes
	ItemID     string    `json:"item_id"`
	OwnerID    string    `json:"owner_id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	OccurredAt time.Time `json:"occurred_at"`
}
