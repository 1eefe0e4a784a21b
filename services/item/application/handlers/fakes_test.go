package handlers

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/ghuser/lostfound/pkg/auth"
	"github.com/ghuser/lostfound/pkg/config"
	"github.com/ghuser/lostfound/pkg/logger"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
	"github.com/ghuser/lostfound/services/item/application/timeline"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type memRecords struct {
	mu   sync.Mutex
	recs map[string]*models.Record
}

func (s *memRecords) ReadOnce(_ context.Context, id string) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[id]
	if !ok {
		return nil, itemdomain.ErrItemNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memRecords) Write(_ context.Context, r *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[r.ItemID]; ok {
		return itemdomain.ErrItemAlreadyExists
	}
	cp := *r
	s.recs[r.ItemID] = &cp
	return nil
}

func (s *memRecords) ReadChildIndex(_ context.Context, owner string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, r := range s.recs {
		if r.CreatedBy == owner {
			ids = append(ids, id)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// memGeo answers every radius query with all known keys; the distance is
// the plain latitude difference, which is enough to order them.
type memGeo struct {
	mu   sync.Mutex
	locs map[string]models.Coordinate
}

func (g *memGeo) Query(_ context.Context, center models.Coordinate, _ float64, onKey func(repositories.GeoHit)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, c := range g.locs {
		d := c.Latitude - center.Latitude
		if d < 0 {
			d = -d
		}
		onKey(repositories.GeoHit{Key: k, DistanceMeters: d * 111_000})
	}
	return nil
}

func (g *memGeo) SetLocation(_ context.Context, key string, c models.Coordinate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.locs[key] = c
	return nil
}

func (g *memGeo) Location(_ context.Context, key string) (models.Coordinate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.locs[key]
	if !ok {
		return models.Coordinate{}, itemdomain.ErrLocationNotFound
	}
	return c, nil
}

type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (b *memBlobs) Upload(_ context.Context, path string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[path] = data
	return nil
}

func (b *memBlobs) DownloadURL(_ context.Context, path string) (*url.URL, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.blobs[path]; !ok {
		return nil, itemdomain.ErrBlobNotFound
	}
	return &url.URL{Scheme: "https", Host: "blobs.test", Path: "/" + path}, nil
}

func (b *memBlobs) ListChildren(_ context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	var out []string
	for p := range b.blobs {
		if rest, ok := strings.CutPrefix(p, prefix); ok && !strings.Contains(rest, "/") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

type testEnv struct {
	records *memRecords
	geo     *memGeo
	blobs   *memBlobs
	svcs    *appsvcs.Services
	router  http.Handler
}

func newTestLogger() logger.Logger {
	return logger.New(&config.Config{LogLevel: "error"})
}

func newTestEnv() *testEnv {
	log := newTestLogger()
	env := &testEnv{
		records: &memRecords{recs: make(map[string]*models.Record)},
		geo:     &memGeo{locs: make(map[string]models.Coordinate)},
		blobs:   &memBlobs{blobs: make(map[string][]byte)},
	}
	runner := timeline.NewBatchRunner(timeline.BatchOptions{Concurrency: 4, Timeout: 2 * time.Second}, log)
	factory := func() *timeline.Controller {
		return timeline.New(timeline.Config{
			ItemPageSize:      2,
			ThumbnailPageSize: 2,
			DefaultRadiusKm:   20,
		}, timeline.Deps{
			Records: env.records,
			Geo:     env.geo,
			Blobs:   env.blobs,
			Runner:  runner,
			Log:     log,
		})
	}
	indexer := appsvcs.NewIndexer(env.geo, env.records, log)
	env.svcs = &appsvcs.Services{
		Items:     appsvcs.NewItemManager(env.records, env.geo, env.blobs, indexer, log),
		Indexer:   indexer,
		Timelines: appsvcs.NewTimelineRegistry(factory, time.Hour, log),
	}

	store := sessions.NewCookieStore(
		[]byte("test-auth-key-must-be-32-bytes!!"),
		[]byte("test-enc-key-must-be-32-bytes!!!"),
	)
	env.router = newTestRouter(env.svcs, store, log)
	return env
}

// newTestRouter mounts the handlers the way the API does.
func newTestRouter(svcs *appsvcs.Services, store sessions.Store, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	sh := NewSessionHandler(store, svcs.Timelines, log)
	r.Post("/session", sh.SignIn)
	r.Delete("/session", sh.SignOut)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(store, log))
		ih := NewItemHandler(svcs)
		r.Post("/items", ih.Create)
		r.Get("/items/{id}", ih.Get)
		r.Get("/items/{id}/images", ih.Images)

		th := NewTimelineHandler(svcs, store, log)
		r.Put("/timeline/area", th.SetArea)
		r.Post("/timeline/pages", th.NextPage)
		r.Post("/timeline/thumbnails", th.NextThumbnails)
		r.Get("/timeline/items", th.ListItems)
		r.Get("/timeline/filters", th.Filters)
		r.Put("/timeline/filters/{kind}", th.ApplyFilter)
		r.Delete("/timeline/filters/{kind}", th.ClearFilter)
		r.Post("/timeline/reset", th.Reset)
		r.Post("/timeline/mine", th.Mine)
		r.Get("/timeline/changes", th.Changes)
	})
	return r
}

// seed stores an item record with its position and a thumbnail.
func (e *testEnv) seed(id, owner, name, category, subcategory string, lat float64) {
	e.records.recs[id] = &models.Record{
		ItemID:         id,
		Name:           name,
		Details:        name + " details",
		Category:       category,
		Subcategory:    subcategory,
		CreatedBy:      owner,
		DateOfCreation: "10-30-01-02-2024",
		Latitude:       lat,
		Longitude:      -3.7,
	}
	e.geo.locs[id] = models.Coordinate{Latitude: lat, Longitude: -3.7}
	e.blobs.blobs[models.ThumbnailPath(id)] = pngBytes
}
