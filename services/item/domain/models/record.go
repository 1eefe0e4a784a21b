package models

import (
	"fmt"
	"time"
)

// Record is the persisted form of an Item as the record store holds it.
// Category and subcategory stay raw strings so that decoding, not storage,
// decides what an unknown value means.
type Record struct {
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

// RecordFromItem flattens an Item for storage.
func RecordFromItem(i *Item) *Record {
	return &Record{
		ItemID:         i.ID,
		Name:           i.Name,
		Details:        i.Details,
		Category:       i.Category.String(),
		Subcategory:    i.Subcategory.String(),
		CreatedBy:      i.CreatedBy,
		DateOfCreation: i.CreatedAt,
		Latitude:       i.Location.Latitude,
		Longitude:      i.Location.Longitude,
	}
}

// Decode builds an Item from the record, positioned at loc.
// Unknown categories and empty text fields fail; unknown subcategories map to others.
func (r *Record) Decode(loc Coordinate) (*Item, error) {
	category, err := ParseCategory(r.Category)
	if err != nil {
		return nil, fmt.Errorf("decode record %s: %w", r.ItemID, err)
	}
	item, err := NewItem(ItemParams{
		ID:          r.ItemID,
		Name:        r.Name,
		Details:     r.Details,
		Category:    category,
		Subcategory: ParseSubcategory(r.Subcategory),
		Location:    loc,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.DateOfCreation,
	})
	if err != nil {
		return nil, fmt.Errorf("decode record %s: %w", r.ItemID, err)
	}
	return item, nil
}

const (
	// CreatedAtLayout formats Item.CreatedAt as HH-mm-dd-MM-yyyy.
	CreatedAtLayout = "15-04-02-01-2006"

	itemIDTimeLayout = "20060102150405"
	thumbnailExt     = ".jpeg"
)

// NewItemID derives an item ID from its owner and creation time.
// IDs sort by creation second within one owner.
func NewItemID(ownerID string, t time.Time) string {
	return ownerID + t.UTC().Format(itemIDTimeLayout)
}

// FormatCreatedAt renders t with CreatedAtLayout.
func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format(CreatedAtLayout)
}

// ThumbnailPath is the blob path of an item's thumbnail: items/<id>/<id>.jpeg.
func ThumbnailPath(itemID string) string {
	return "items/" + itemID + "/" + itemID + thumbnailExt
}

// ImagesPrefix is the blob folder holding an item's full-size images.
func ImagesPrefix(itemID string) string {
	return "items/" + itemID + "/images/"
}

// ImagePath is the blob path of the n-th image: items/<id>/images/<id>_<n>.
func ImagePath(itemID string, n int) string {
	return fmt.Sprintf("%s%s_%d", ImagesPrefix(itemID), itemID, n)
}

