package timeline

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/ghuser/lostfound/services/item/domain/models"
)

func TestPredicateMatch(t *testing.T) {
	rec := &models.Record{
		Name:        "Black Leather Wallet",
		Details:     "Lost near the station",
		Category:    "lost",
		Subcategory: "accessories",
		CreatedBy:   "u1",
	}
	tests := []struct {
		name string
		p    Predicate
		want bool
	}{
		{"zero matches everything", Predicate{}, true},
		{"text in name ignores case", Predicate{Text: "leather"}, true},
		{"text in details", Predicate{Text: "STATION"}, true},
		{"text absent", Predicate{Text: "phone"}, false},
		{"category", Predicate{Category: models.CategoryLost}, true},
		{"other category", Predicate{Category: models.CategoryFound}, false},
		{"subcategory", Predicate{Subcategory: models.SubcategoryAccessories}, true},
		{"owner", Predicate{Owner: "u2"}, false},
		{"all constraints", Predicate{Text: "wallet", Category: models.CategoryLost, Subcategory: models.SubcategoryAccessories, Owner: "u1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Match(rec); got != tt.want {
				t.Fatalf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPredicateMatch_UnknownSubcategoryIsOthers(t *testing.T) {
	rec := &models.Record{Name: "x", Details: "y", Category: "found", Subcategory: "drones"}
	if !(Predicate{Subcategory: models.SubcategoryOthers}).Match(rec) {
		t.Fatal("unknown subcategory should match others")
	}
}

func TestPredicateNarrows(t *testing.T) {
	tests := []struct {
		name string
		p, q Predicate
		want bool
	}{
		{"anything narrows zero", Predicate{Category: "lost"}, Predicate{}, true},
		{"same category", Predicate{Category: "lost", Subcategory: "pets"}, Predicate{Category: "lost"}, true},
		{"dropped category", Predicate{Subcategory: "pets"}, Predicate{Category: "lost"}, false},
		{"longer text", Predicate{Text: "Black phone"}, Predicate{Text: "phone"}, true},
		{"unrelated text", Predicate{Text: "wallet"}, Predicate{Text: "phone"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.narrows(tt.q); got != tt.want {
				t.Fatalf("narrows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterStateBaseFor(t *testing.T) {
	radius := []string{"r1", "r2", "r3"}
	catSet := retained{keys: []string{"r1", "r2"}, pred: Predicate{Category: "lost"}}
	searchSet := retained{keys: []string{"r2"}, pred: Predicate{Text: "phone"}}

	tests := []struct {
		name  string
		state FilterState
		kind  FilterKind
		want  string
	}{
		{"category without search", FilterState{active: Predicate{Category: "lost"}}, FilterCategory, BaseRadius},
		{"category after search", FilterState{active: Predicate{Category: "lost", Text: "phone"}, search: searchSet}, FilterCategory, BaseSearch},
		{"subcategory after category", FilterState{active: Predicate{Category: "lost", Subcategory: "pets"}, category: catSet}, FilterSubcategory, BaseCategory},
		{"subcategory prefers search", FilterState{active: Predicate{Category: "lost", Text: "phone", Subcategory: "phones"}, category: catSet, search: searchSet}, FilterSubcategory, BaseSearch},
		{"search after category", FilterState{active: Predicate{Category: "lost", Text: "phone"}, category: catSet}, FilterSearch, BaseCategory},
		{"search ignores its own old set", FilterState{active: Predicate{Text: "wallet"}, search: searchSet}, FilterSearch, BaseRadius},
		{"stale category set is skipped", FilterState{active: Predicate{Category: "found", Subcategory: "pets"}, category: catSet}, FilterSubcategory, BaseRadius},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := tt.state.baseFor(tt.kind, radius)
			if got != tt.want {
				t.Fatalf("baseFor() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFilterStateClearDropsDependentSets(t *testing.T) {
	s := FilterState{active: Predicate{Category: "lost"}}
	s.retain(FilterCategory, []string{"a"})
	s.active.Text = "phone"
	s.retain(FilterSearch, []string{"a"})

	s.clear(FilterCategory)
	if len(s.category.keys) != 0 || len(s.search.keys) != 0 {
		t.Fatal("sets computed with the cleared category must be dropped")
	}
	if snap := s.snapshot(); snap.Mode != "search" || snap.Text != "phone" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestFilterEngine_PreservesBaseOrder(t *testing.T) {
	store := newFakeStore()
	base := []string{"k5", "k1", "k4", "k2", "k3", "gone"}
	for _, k := range base[:5] {
		store.records[k] = &models.Record{ItemID: k, Name: "item " + k, Details: "d", Category: "lost"}
	}
	store.records["k4"].Category = "found"

	engine := NewFilterEngine(store, newTestRunner(time.Second))
	got, err := engine.Filter(context.Background(), base, Predicate{Category: models.CategoryLost})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"k5", "k1", "k2", "k3"}; !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseFilterKind(t *testing.T) {
	for _, s := range []string{"category", "subcategory", "search", "owner"} {
		if _, err := ParseFilterKind(s); err != nil {
			t.Errorf("ParseFilterKind(%q): %v", s, err)
		}
	}
	if _, err := ParseFilterKind("distance"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
