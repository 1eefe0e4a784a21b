package services

import (
	"github.com/ghuser/lostfound/pkg/app"
	"github.com/ghuser/lostfound/pkg/cache"
	"github.com/ghuser/lostfound/pkg/logger"
	"github.com/ghuser/lostfound/services/item/application/timeline"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
	"github.com/ghuser/lostfound/services/item/infrastructure/persistence/postgres"
	"github.com/ghuser/lostfound/services/item/infrastructure/persistence/redisstore"
)

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Items     *ItemManager
	Indexer   *Indexer
	Timelines *TimelineRegistry
}

// stores builds the record store (PostgreSQL behind the Redis cache) and the geo index.
func stores(a *app.Application, log logger.Logger) (repositories.RecordStore, repositories.GeoIndex) {
	repo := postgres.NewRecordRepository(a.Db, a.EventBus)
	itemCache := cache.NewItemCache(a.Redis, a.Config.RecordCacheTTL)
	return redisstore.NewCachedRecordStore(repo, itemCache, log),
		redisstore.NewGeoIndex(a.Redis, a.Config.GeoIndexKey)
}

// NewIndexerFromApp wires only the Indexer. The worker uses it; it needs no blob store.
func NewIndexerFromApp(a *app.Application) *Indexer {
	log := a.Logger.With("service", "item")
	records, geo := stores(a, log)
	return NewIndexer(geo, records, log)
}

// New wires all item application services with infrastructure from the Application container.
// One BatchRunner is shared by every timeline so the read throttle is process-wide.
func New(a *app.Application) *Services {
	cfg := a.Config
	log := a.Logger.With("service", "item")

	records, geo := stores(a, log)
	indexer := NewIndexer(geo, records, log)

	runner := timeline.NewBatchRunner(timeline.BatchOptions{
		Concurrency:    cfg.FanoutConcurrency,
		ReadsPerSecond: cfg.FanoutReadsPerSecond,
		Timeout:        cfg.BatchTimeout,
	}, log)

	factory := func() *timeline.Controller {
		return timeline.New(timeline.Config{
			ItemPageSize:      cfg.ItemPageSize,
			ThumbnailPageSize: cfg.ThumbnailPageSize,
			DefaultRadiusKm:   cfg.DefaultSearchRadiusKm,
		}, timeline.Deps{
			Records: records,
			Geo:     geo,
			Blobs:   a.Blob,
			Runner:  runner,
			Log:     log,
		})
	}

	return &Services{
		Items:     NewItemManager(records, geo, a.Blob, indexer, log),
		Indexer:   indexer,
		Timelines: NewTimelineRegistry(factory, cfg.TimelineSessionTTL, log),
	}
}
