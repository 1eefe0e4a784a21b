// Package services contains stateless domain services for the item bounded context.
// Domain services enforce business rules that operate purely on domain types
// and have zero external dependencies beyond stdlib and the domain layer.
package services

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ghuser/lostfound/services/item/domain/models"
)

const (
	maxNameLength    = 120
	maxDetailsLength = 2000
)

// ValidateName enforces business rules for item names beyond the non-empty
// check done by models.NewItem.
//
// Business rules:
//   - No leading or trailing whitespace
//   - No control characters (Unicode category Cc)
//   - At most 120 characters
func ValidateName(name string) error {
	if name != strings.TrimSpace(name) {
		return fmt.Errorf("item name must not have leading or trailing whitespace")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("item name must not contain control characters")
		}
	}

	if n := len([]rune(name)); n > maxNameLength {
		return fmt.Errorf("item name must not exceed %d characters (got %d)", maxNameLength, n)
	}

	return nil
}

// ValidateDetails allows newlines in details but caps their length.
func ValidateDetails(details string) error {
	if n := len([]rune(details)); n > maxDetailsLength {
		return fmt.Errorf("item details must not exceed %d characters (got %d)", maxDetailsLength, n)
	}
	return nil
}

// ValidateItemForCreation performs cross-field validation on a fully-constructed
// Item before it is persisted. Records that are already stored are not re-checked
// when they are decoded for display.
func ValidateItemForCreation(item *models.Item) error {
	if item == nil {
		return fmt.Errorf("item cannot be nil")
	}

	if err := ValidateName(item.Name); err != nil {
		return fmt.Errorf("invalid name: %w", err)
	}

	if err := ValidateDetails(item.Details); err != nil {
		return fmt.Errorf("invalid details: %w", err)
	}

	if item.CreatedBy == "" {
		return fmt.Errorf("created_by must be set")
	}

	if item.Category == models.CategoryAdoption && item.Subcategory != models.SubcategoryPets {
		return fmt.Errorf("adoption items must use the pets subcategory, got %q", item.Subcategory)
	}

	if _, err := models.NewCoordinate(item.Location.Latitude, item.Location.Longitude); err != nil {
		return fmt.Errorf("invalid location: %w", err)
	}

	return nil
}
