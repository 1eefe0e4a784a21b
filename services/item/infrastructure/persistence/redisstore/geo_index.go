// Package redisstore keeps item positions in a Redis geo set and fronts the
// record store with a Redis read-through cache.
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ghuser/lostfound/pkg/cache"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
)

// GeoIndex implements repositories.GeoIndex on a single Redis geo set.
type GeoIndex struct {
	client *cache.RedisClient
	key    string
}

// NewGeoIndex returns a GeoIndex storing every position under key.
func NewGeoIndex(rc *cache.RedisClient, key string) *GeoIndex {
	return &GeoIndex{client: rc, key: key}
}

// Query runs GEOSEARCH around center and reports each member with its
// distance in meters. The whole listing arrives in one reply, so onKey is
// called synchronously before Query returns.
func (g *GeoIndex) Query(ctx context.Context, center models.Coordinate, radiusKm float64, onKey func(repositories.GeoHit)) error {
	locs, err := g.client.Client().GeoSearchLocation(ctx, g.key, searchQuery(center, radiusKm)).Result()
	if err != nil {
		return fmt.Errorf("geo search: %w", err)
	}
	for _, l := range locs {
		onKey(hitFromLocation(l))
	}
	return nil
}

// SetLocation adds or moves key.
func (g *GeoIndex) SetLocation(ctx context.Context, key string, c models.Coordinate) error {
	err := g.client.Client().GeoAdd(ctx, g.key, &redis.GeoLocation{
		Name:      key,
		Longitude: c.Longitude,
		Latitude:  c.Latitude,
	}).Err()
	if err != nil {
		return fmt.Errorf("geo add %s: %w", key, err)
	}
	return nil
}

// Location returns the stored position of key or ErrLocationNotFound.
func (g *GeoIndex) Location(ctx context.Context, key string) (models.Coordinate, error) {
	pos, err := g.client.Client().GeoPos(ctx, g.key, key).Result()
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("geo pos %s: %w", key, err)
	}
	if len(pos) == 0 || pos[0] == nil {
		return models.Coordinate{}, fmt.Errorf("%w: %s", itemdomain.ErrLocationNotFound, key)
	}
	return models.Coordinate{Latitude: pos[0].Latitude, Longitude: pos[0].Longitude}, nil
}

func searchQuery(center models.Coordinate, radiusKm float64) *redis.GeoSearchLocationQuery {
	return &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Longitude,
			Latitude:   center.Latitude,
			Radius:     radiusKm,
			RadiusUnit: "km",
		},
		WithDist: true,
	}
}

// hitFromLocation converts a GEOSEARCH reply; Dist is in the query unit (km).
func hitFromLocation(l redis.GeoLocation) repositories.GeoHit {
	return repositories.GeoHit{Key: l.Name, DistanceMeters: l.Dist * 1000}
}
