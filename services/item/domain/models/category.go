package models

import (
	"fmt"

	itemdomain "github.com/ghuser/lostfound/services/item/domain"
)

// Category is the top-level classification of a posted item.
type Category string

const (
	CategoryLost     Category = "lost"
	CategoryFound    Category = "found"
	CategoryAdoption Category = "adoption"
)

// ParseCategory returns the Category for s or ErrInvalidCategory.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryLost, CategoryFound, CategoryAdoption:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", itemdomain.ErrInvalidCategory, s)
	}
}

// String returns the wire value.
func (c Category) String() string { return string(c) }

// Subcategory narrows a Category.
type Subcategory string

const (
	SubcategoryAccessories   Subcategory = "accessories"
	SubcategoryClothing      Subcategory = "clothing"
	SubcategoryPhones        Subcategory = "phones"
	SubcategoryComputers     Subcategory = "computers"
	SubcategoryKeysObject    Subcategory = "keysObject"
	SubcategoryVehicles      Subcategory = "vehicles"
	SubcategorySoundAudio    Subcategory = "soundAudio"
	SubcategoryDocumentation Subcategory = "documentation"
	SubcategoryPets          Subcategory = "pets"
	SubcategoryPeople        Subcategory = "people"
	SubcategoryOthers        Subcategory = "others"
)

var subcategories = map[Subcategory]struct{}{
	SubcategoryAccessories:   {},
	SubcategoryClothing:      {},
	SubcategoryPhones:        {},
	SubcategoryComputers:     {},
	SubcategoryKeysObject:    {},
	SubcategoryVehicles:      {},
	SubcategorySoundAudio:    {},
	SubcategoryDocumentation: {},
	SubcategoryPets:          {},
	SubcategoryPeople:        {},
	SubcategoryOthers:        {},
}

// ParseSubcategory never fails: stored records may carry values this build
// does not know, and those are shown under "others".
func ParseSubcategory(s string) Subcategory {
	if _, ok := subcategories[Subcategory(s)]; ok {
		return Subcategory(s)
	}
	return SubcategoryOthers
}

// IsKnownSubcategory reports whether s is one of the defined subcategories.
func IsKnownSubcategory(s string) bool {
	_, ok := subcategories[Subcategory(s)]
	return ok
}

// String returns the wire value.
func (s Subcategory) String() string { return string(s) }
