package timeline

import "strings"

// Names of the key sets a filter can be evaluated against.
const (
	BaseRadius   = "radius"
	BaseCategory = "category"
	BaseSearch   = "search"
	BaseOwner    = "owner"
)

// retained is the last complete result of a filter, kept so that the next
// filter can compose against it instead of the whole radius set.
type retained struct {
	keys []string
	pred Predicate
}

func (r retained) usableFor(p Predicate) bool {
	return len(r.keys) > 0 && p.narrows(r.pred)
}

// FilterState tracks the active predicate and the two retained key sets.
type FilterState struct {
	active   Predicate
	category retained
	search   retained
}

// baseFor picks the key set a filter of kind composes against:
//
//	category            search set, else radius set
//	subcategory, owner  search set, else category set, else radius set
//	search              category set, else radius set
//
// A retained set is skipped when the active predicate no longer narrows the
// predicate it was computed for.
func (s *FilterState) baseFor(kind FilterKind, radius []string) ([]string, string) {
	var order []string
	switch kind {
	case FilterCategory:
		order = []string{BaseSearch}
	case FilterSearch:
		order = []string{BaseCategory}
	default:
		order = []string{BaseSearch, BaseCategory}
	}
	for _, name := range order {
		r := s.category
		if name == BaseSearch {
			r = s.search
		}
		if r.usableFor(s.active) {
			return r.keys, name
		}
	}
	return radius, BaseRadius
}

// retain stores a complete filter result. Search results go to the search
// set; every other kind goes to the category set.
func (s *FilterState) retain(kind FilterKind, keys []string) {
	r := retained{keys: keys, pred: s.active}
	if kind == FilterSearch {
		s.search = r
		return
	}
	s.category = r
}

// clear removes kind from the active predicate and drops retained sets that
// were computed with it.
func (s *FilterState) clear(kind FilterKind) {
	s.active = s.active.without(kind)
	if !s.active.narrows(s.category.pred) {
		s.category = retained{}
	}
	if !s.active.narrows(s.search.pred) {
		s.search = retained{}
	}
}

func (s *FilterState) reset() {
	*s = FilterState{}
}

// FilterSnapshot is a read-only view of a timeline's filters.
type FilterSnapshot struct {
	Mode         string
	Text         string
	Category     string
	Subcategory  string
	Owner        string
	CategoryKeys int
	SearchKeys   int
}

func (s *FilterState) snapshot() FilterSnapshot {
	var parts []string
	for _, k := range []FilterKind{FilterCategory, FilterSubcategory, FilterSearch, FilterOwner} {
		if s.active.has(k) {
			parts = append(parts, string(k))
		}
	}
	mode := "unfiltered"
	if len(parts) > 0 {
		mode = strings.Join(parts, "+")
	}
	return FilterSnapshot{
		Mode:         mode,
		Text:         s.active.Text,
		Category:     s.active.Category.String(),
		Subcategory:  s.active.Subcategory.String(),
		Owner:        s.active.Owner,
		CategoryKeys: len(s.category.keys),
		SearchKeys:   len(s.search.keys),
	}
}
