package timeline

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
)

// SearchArea is the center and radius of a timeline's radius set.
type SearchArea struct {
	Center   models.Coordinate
	RadiusKm float64
}

// SortByDistance orders hits by ascending distance and returns their keys.
// Equal distances keep their delivery order. A key reported twice keeps
// its nearest position.
func SortByDistance(hits []repositories.GeoHit) []string {
	sorted := slices.Clone(hits)
	slices.SortStableFunc(sorted, func(a, b repositories.GeoHit) int {
		return cmp.Compare(a.DistanceMeters, b.DistanceMeters)
	})

	keys := make([]string, 0, len(sorted))
	seen := make(map[string]struct{}, len(sorted))
	for _, h := range sorted {
		if _, dup := seen[h.Key]; dup {
			continue
		}
		seen[h.Key] = struct{}{}
		keys = append(keys, h.Key)
	}
	return keys
}

// queryRadius buffers every hit until the index signals ready, then sorts.
func queryRadius(ctx context.Context, geo repositories.GeoIndex, r *BatchRunner, area SearchArea) ([]string, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, r.timeout, itemdomain.ErrBatchTimeout)
	defer cancel()

	var (
		mu   sync.Mutex
		hits []repositories.GeoHit
	)
	err := geo.Query(ctx, area.Center, area.RadiusKm, func(h repositories.GeoHit) {
		mu.Lock()
		hits = append(hits, h)
		mu.Unlock()
	})
	if err != nil {
		if cause := context.Cause(ctx); cause != nil {
			err = fmt.Errorf("%w: %w", cause, err)
		}
		return nil, fmt.Errorf("radius query: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return SortByDistance(hits), nil
}
