package timeline

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghuser/lostfound/pkg/config"
	"github.com/ghuser/lostfound/pkg/logger"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
)

func newTestLogger() logger.Logger {
	return logger.New(&config.Config{LogLevel: "error"})
}

func newTestRunner(timeout time.Duration) *BatchRunner {
	return NewBatchRunner(BatchOptions{Concurrency: 8, Timeout: timeout}, newTestLogger())
}

// fakeStore is an in-memory RecordStore. Reads of keys in hang block until
// their context ends; reads of keys in gate wait for the gate to close.
type fakeStore struct {
	mu       sync.Mutex
	records  map[string]*models.Record
	children map[string][]string
	hang     map[string]bool
	gate     chan struct{}
	reads    atomic.Int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  make(map[string]*models.Record),
		children: make(map[string][]string),
		hang:     make(map[string]bool),
	}
}

func (s *fakeStore) ReadOnce(ctx context.Context, itemID string) (*models.Record, error) {
	s.reads.Add(1)
	s.mu.Lock()
	rec, ok := s.records[itemID]
	hang := s.hang[itemID]
	gate := s.gate
	s.mu.Unlock()

	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, itemdomain.ErrItemNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) Write(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ItemID]; ok {
		return itemdomain.ErrItemAlreadyExists
	}
	s.records[rec.ItemID] = rec
	s.children[rec.CreatedBy] = append([]string{rec.ItemID}, s.children[rec.CreatedBy]...)
	return nil
}

func (s *fakeStore) ReadChildIndex(_ context.Context, ownerID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.children[ownerID]...), nil
}

// fakeGeo answers every radius query with the same hits.
type fakeGeo struct {
	mu      sync.Mutex
	hits    []repositories.GeoHit
	locs    map[string]models.Coordinate
	queries atomic.Int64
}

func newFakeGeo() *fakeGeo {
	return &fakeGeo{locs: make(map[string]models.Coordinate)}
}

func (g *fakeGeo) Query(ctx context.Context, _ models.Coordinate, _ float64, onKey func(repositories.GeoHit)) error {
	g.queries.Add(1)
	g.mu.Lock()
	hits := append([]repositories.GeoHit(nil), g.hits...)
	g.mu.Unlock()
	for _, h := range hits {
		if err := ctx.Err(); err != nil {
			return err
		}
		onKey(h)
	}
	return nil
}

func (g *fakeGeo) SetLocation(_ context.Context, key string, c models.Coordinate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.locs[key] = c
	return nil
}

func (g *fakeGeo) Location(_ context.Context, key string) (models.Coordinate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.locs[key]
	if !ok {
		return models.Coordinate{}, itemdomain.ErrLocationNotFound
	}
	return c, nil
}

// fakeBlobs serves a URL for every path in urls.
type fakeBlobs struct {
	mu   sync.Mutex
	urls map[string]*url.URL
}

func (b *fakeBlobs) Upload(_ context.Context, path string, _ []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.urls[path] = &url.URL{Scheme: "https", Host: "blobs.test", Path: "/" + path}
	return nil
}

func (b *fakeBlobs) DownloadURL(_ context.Context, path string) (*url.URL, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.urls[path]
	if !ok {
		return nil, itemdomain.ErrBlobNotFound
	}
	return u, nil
}

func (b *fakeBlobs) ListChildren(context.Context, string) ([]string, error) { return nil, nil }

type fixture struct {
	store *fakeStore
	geo   *fakeGeo
	blobs *fakeBlobs
	ctrl  *Controller
}

// seedItem stores one item at distance meters from the center.
func (f *fixture) seedItem(id, name string, cat models.Category, sub models.Subcategory, meters float64) {
	f.store.records[id] = &models.Record{
		ItemID:         id,
		Name:           name,
		Details:        "details of " + name,
		Category:       cat.String(),
		Subcategory:    sub.String(),
		CreatedBy:      "owner-" + id[:1],
		DateOfCreation: "10-30-01-02-2024",
	}
	f.geo.hits = append(f.geo.hits, repositories.GeoHit{Key: id, DistanceMeters: meters})
	f.geo.locs[id] = models.Coordinate{Latitude: 40.4, Longitude: -3.7}
}

func newFixture(timeout time.Duration) *fixture {
	f := &fixture{
		store: newFakeStore(),
		geo:   newFakeGeo(),
		blobs: &fakeBlobs{urls: make(map[string]*url.URL)},
	}
	f.ctrl = New(Config{ItemPageSize: 25, ThumbnailPageSize: 10, DefaultRadiusKm: 20}, Deps{
		Records: f.store,
		Geo:     f.geo,
		Blobs:   f.blobs,
		Runner:  newTestRunner(timeout),
		Log:     newTestLogger(),
	})
	return f
}

// seedMany stores n items i000..i<n-1>, each farther than the previous.
func (f *fixture) seedMany(n int) []string {
	ids := make([]string, n)
	for i := range n {
		ids[i] = fmt.Sprintf("i%03d", i)
		f.seedItem(ids[i], "item "+ids[i], models.CategoryLost, models.SubcategoryPhones, float64(i*10))
	}
	return ids
}

func (f *fixture) setArea() {
	err := f.ctrl.SetSearchArea(SearchArea{Center: models.Coordinate{Latitude: 40.4, Longitude: -3.7}})
	if err != nil {
		panic(err)
	}
}

// recorder is an Observer that keeps every change it receives.
type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) ItemsChanged(rng *IndexRange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, Change{Track: TrackItems, Range: rng})
}

func (r *recorder) ThumbnailsChanged(rng *IndexRange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, Change{Track: TrackThumbnails, Range: rng})
}

func (r *recorder) last() Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		return Change{}
	}
	return r.changes[len(r.changes)-1]
}
