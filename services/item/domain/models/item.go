package models

import (
	"fmt"
	"net/url"
	"strings"

	itemdomain "github.com/ghuser/lostfound/services/item/domain"
)

// Item is the core aggregate for this bounded context.
// Identity, position, owner and creation date never change after construction;
// only the thumbnail is filled in later, once.
type Item struct {
	ID          string
	Name        string
	Details     string
	Category    Category
	Subcategory Subcategory
	Location    Coordinate
	CreatedBy   string
	CreatedAt   string // CreatedAtLayout
	Thumbnail   *url.URL
}

// ItemParams carries the constructor inputs for NewItem.
type ItemParams struct {
	ID          string
	Name        string
	Details     string
	Category    Category
	Subcategory Subcategory
	Location    Coordinate
	CreatedBy   string
	CreatedAt   string
}

// NewItem constructs an Item. Name and details must contain non-whitespace text.
func NewItem(p ItemParams) (*Item, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: name is empty", itemdomain.ErrInvalidItem)
	}
	if strings.TrimSpace(p.Details) == "" {
		return nil, fmt.Errorf("%w: details are empty", itemdomain.ErrInvalidItem)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: id is empty", itemdomain.ErrInvalidItem)
	}
	return &Item{
		ID:          p.ID,
		Name:        p.Name,
		Details:     p.Details,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		Location:    p.Location,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
	}, nil
}

// SetThumbnail attaches u if the item has no thumbnail yet and reports
// whether it did. A second delivery of a thumbnail is ignored.
func (i *Item) SetThumbnail(u *url.URL) bool {
	if i.Thumbnail != nil || u == nil {
		return false
	}
	i.Thumbnail = u
	return true
}
