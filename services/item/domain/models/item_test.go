package models

import (
	"errors"
	"net/url"
	"testing"
	"time"

	itemdomain "github.com/ghuser/lostfound/services/item/domain"
)

func validParams() ItemParams {
	return ItemParams{
		ID:          "user1" + "20250115120000",
		Name:        "Black wallet",
		Details:     "Lost near the station",
		Category:    CategoryLost,
		Subcategory: SubcategoryAccessories,
		Location:    Coordinate{Latitude: 41.38, Longitude: 2.17},
		CreatedBy:   "user1",
		CreatedAt:   "12-00-15-01-2025",
	}
}

func TestNewItem(t *testing.T) {
	t.Run("valid params", func(t *testing.T) {
		item, err := NewItem(validParams())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item.Name != "Black wallet" {
			t.Fatalf("expected name %q, got %q", "Black wallet", item.Name)
		}
		if item.Thumbnail != nil {
			t.Fatal("expected no thumbnail on a new item")
		}
	})

	tests := []struct {
		name   string
		mutate func(*ItemParams)
	}{
		{"empty name", func(p *ItemParams) { p.Name = "" }},
		{"whitespace name", func(p *ItemParams) { p.Name = "   " }},
		{"empty details", func(p *ItemParams) { p.Details = "" }},
		{"whitespace details", func(p *ItemParams) { p.Details = "\n\t" }},
		{"empty id", func(p *ItemParams) { p.ID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			_, err := NewItem(p)
			if !errors.Is(err, itemdomain.ErrInvalidItem) {
				t.Fatalf("expected ErrInvalidItem, got %v", err)
			}
		})
	}
}

func TestItem_SetThumbnail(t *testing.T) {
	item, _ := NewItem(validParams())
	first, _ := url.Parse("https://blob.example/items/a/a.jpeg?sig=1")
	second, _ := url.Parse("https://blob.example/items/a/a.jpeg?sig=2")

	if item.SetThumbnail(nil) {
		t.Fatal("nil URL must not be attached")
	}
	if !item.SetThumbnail(first) {
		t.Fatal("expected first thumbnail to attach")
	}
	if item.SetThumbnail(second) {
		t.Fatal("expected second thumbnail to be ignored")
	}
	if item.Thumbnail.String() != first.String() {
		t.Fatalf("expected %s, got %s", first, item.Thumbnail)
	}
}

func TestRecord_Decode(t *testing.T) {
	loc := Coordinate{Latitude: 1, Longitude: 2}
	base := Record{
		ItemID:         "u20250101000000",
		Name:           "Keys",
		Details:        "Three keys on a ring",
		Category:       "found",
		Subcategory:    "keysObject",
		CreatedBy:      "u",
		DateOfCreation: "00-00-01-01-2025",
	}

	t.Run("round trip through RecordFromItem", func(t *testing.T) {
		rec := base
		item, err := rec.Decode(loc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item.Location != loc {
			t.Fatalf("expected location %v, got %v", loc, item.Location)
		}
		back := RecordFromItem(item)
		if back.Category != rec.Category || back.Subcategory != rec.Subcategory || back.ItemID != rec.ItemID {
			t.Fatalf("unexpected record: %+v", back)
		}
	})

	t.Run("unknown subcategory maps to others", func(t *testing.T) {
		rec := base
		rec.Subcategory = "spaceships"
		item, err := rec.Decode(loc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item.Subcategory != SubcategoryOthers {
			t.Fatalf("expected others, got %q", item.Subcategory)
		}
	})

	t.Run("unknown category fails", func(t *testing.T) {
		rec := base
		rec.Category = "stolen"
		_, err := rec.Decode(loc)
		if !errors.Is(err, itemdomain.ErrInvalidCategory) {
			t.Fatalf("expected ErrInvalidCategory, got %v", err)
		}
	})

	t.Run("empty name fails", func(t *testing.T) {
		rec := base
		rec.Name = ""
		_, err := rec.Decode(loc)
		if !errors.Is(err, itemdomain.ErrInvalidItem) {
			t.Fatalf("expected ErrInvalidItem, got %v", err)
		}
	})
}

func TestNewItemID(t *testing.T) {
	ts := time.Date(2025, 3, 7, 9, 5, 1, 0, time.UTC)
	if got := NewItemID("abc", ts); got != "abc20250307090501" {
		t.Fatalf("unexpected id %q", got)
	}
	if got := FormatCreatedAt(ts); got != "09-05-07-03-2025" {
		t.Fatalf("unexpected created_at %q", got)
	}
}

func TestBlobPaths(t *testing.T) {
	if got := ThumbnailPath("x1"); got != "items/x1/x1.jpeg" {
		t.Errorf("ThumbnailPath: got %q", got)
	}
	if got := ImagePath("x1", 2); got != "items/x1/images/x1_2" {
		t.Errorf("ImagePath: got %q", got)
	}
}
