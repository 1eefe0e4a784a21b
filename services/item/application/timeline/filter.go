package timeline

import (
	"context"
	"fmt"
	"strings"

	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/domain/models"
)

// FilterKind names one predicate a timeline can be narrowed by.
type FilterKind string

const (
	FilterCategory    FilterKind = "category"
	FilterSubcategory FilterKind = "subcategory"
	FilterSearch      FilterKind = "search"
	FilterOwner       FilterKind = "owner"
)

// ParseFilterKind returns the FilterKind for s or ErrInvalidFilter.
func ParseFilterKind(s string) (FilterKind, error) {
	switch k := FilterKind(s); k {
	case FilterCategory, FilterSubcategory, FilterSearch, FilterOwner:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", itemdomain.ErrInvalidFilter, s)
	}
}

// Predicate is a conjunction of record constraints. Zero fields are unconstrained.
type Predicate struct {
	Text        string
	Category    models.Category
	Subcategory models.Subcategory
	Owner       string
}

// IsZero reports whether p matches everything.
func (p Predicate) IsZero() bool {
	return p == Predicate{}
}

func (p Predicate) has(kind FilterKind) bool {
	switch kind {
	case FilterCategory:
		return p.Category != ""
	case FilterSubcategory:
		return p.Subcategory != ""
	case FilterSearch:
		return p.Text != ""
	case FilterOwner:
		return p.Owner != ""
	}
	return false
}

// with returns p with kind constrained to value. The value is validated.
func (p Predicate) with(kind FilterKind, value string) (Predicate, error) {
	switch kind {
	case FilterCategory:
		c, err := models.ParseCategory(value)
		if err != nil {
			return p, fmt.Errorf("%w: %w", itemdomain.ErrInvalidFilter, err)
		}
		p.Category = c
	case FilterSubcategory:
		if !models.IsKnownSubcategory(value) {
			return p, fmt.Errorf("%w: unknown subcategory %q", itemdomain.ErrInvalidFilter, value)
		}
		p.Subcategory = models.Subcategory(value)
	case FilterSearch:
		text := strings.TrimSpace(value)
		if text == "" {
			return p, fmt.Errorf("%w: empty search text", itemdomain.ErrInvalidFilter)
		}
		p.Text = text
	case FilterOwner:
		owner := strings.TrimSpace(value)
		if owner == "" {
			return p, fmt.Errorf("%w: empty owner", itemdomain.ErrInvalidFilter)
		}
		p.Owner = owner
	default:
		return p, fmt.Errorf("%w: unknown kind %q", itemdomain.ErrInvalidFilter, kind)
	}
	return p, nil
}

func (p Predicate) without(kind FilterKind) Predicate {
	switch kind {
	case FilterCategory:
		p.Category = ""
	case FilterSubcategory:
		p.Subcategory = ""
	case FilterSearch:
		p.Text = ""
	case FilterOwner:
		p.Owner = ""
	}
	return p
}

// narrows reports whether every record matching p also matches q, judged
// from the constraints alone. A key set computed for q is then a valid
// base for p.
func (p Predicate) narrows(q Predicate) bool {
	if q.Category != "" && p.Category != q.Category {
		return false
	}
	if q.Subcategory != "" && p.Subcategory != q.Subcategory {
		return false
	}
	if q.Owner != "" && p.Owner != q.Owner {
		return false
	}
	if q.Text != "" && !strings.Contains(strings.ToLower(p.Text), strings.ToLower(q.Text)) {
		return false
	}
	return true
}

// Match evaluates p against a stored record. Text matches a case-insensitive
// substring of the name or the details.
func (p Predicate) Match(rec *models.Record) bool {
	if p.Category != "" && rec.Category != p.Category.String() {
		return false
	}
	if p.Subcategory != "" && models.ParseSubcategory(rec.Subcategory) != p.Subcategory {
		return false
	}
	if p.Owner != "" && rec.CreatedBy != p.Owner {
		return false
	}
	if p.Text != "" {
		needle := strings.ToLower(p.Text)
		if !strings.Contains(strings.ToLower(rec.Name), needle) &&
			!strings.Contains(strings.ToLower(rec.Details), needle) {
			return false
		}
	}
	return true
}

// FilterEngine narrows a key set by reading every record once.
type FilterEngine struct {
	records RecordReader
	runner  *BatchRunner
}

// NewFilterEngine returns a FilterEngine reading through records.
func NewFilterEngine(records RecordReader, runner *BatchRunner) *FilterEngine {
	return &FilterEngine{records: records, runner: runner}
}

// Filter returns the keys of base whose record matches p, in base order.
// Keys that cannot be read are treated as non-matching.
func (e *FilterEngine) Filter(ctx context.Context, base []string, p Predicate) ([]string, error) {
	if p.IsZero() {
		return append([]string(nil), base...), nil
	}
	return gather(ctx, e.runner, "filter", base, func(ctx context.Context, key string) (string, bool, error) {
		rec, err := e.records.ReadOnce(ctx, key)
		if err != nil {
			return "", false, err
		}
		return key, p.Match(rec), nil
	})
}
