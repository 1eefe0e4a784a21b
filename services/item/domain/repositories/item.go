package repositories

import (
	"context"
	"net/url"

	"github.com/ghuser/lostfound/services/item/domain/models"
)

// RecordStore is the persistence interface for item records.
// The domain layer owns this interface; infrastructure implements it.
type RecordStore interface {
	// ReadOnce returns the record for itemID or ErrItemNotFound.
	ReadOnce(ctx context.Context, itemID string) (*models.Record, error)

	// Write persists a new record together with its owner's child-index entry.
	// Returns ErrItemAlreadyExists when the ID is taken.
	Write(ctx context.Context, rec *models.Record) error

	// ReadChildIndex lists the item IDs created by ownerID, newest first.
	ReadChildIndex(ctx context.Context, ownerID string) ([]string, error)
}

// GeoHit is one key reported by a radius query.
type GeoHit struct {
	Key            string
	DistanceMeters float64
}

// GeoIndex stores item positions and answers radius queries.
type GeoIndex interface {
	// Query calls onKey for every key within radiusKm of center, in no
	// particular order, and returns once the listing is complete.
	Query(ctx context.Context, center models.Coordinate, radiusKm float64, onKey func(GeoHit)) error

	SetLocation(ctx context.Context, key string, c models.Coordinate) error

	// Location returns the stored position or ErrLocationNotFound.
	Location(ctx context.Context, key string) (models.Coordinate, error)
}

// BlobStore holds item images and thumbnails.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error

	// DownloadURL returns a fetchable URL for path or ErrBlobNotFound.
	DownloadURL(ctx context.Context, path string) (*url.URL, error)

	// ListChildren returns the object paths directly under prefix.
	ListChildren(ctx context.Context, prefix string) ([]string, error)
}
