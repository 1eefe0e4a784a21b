package services

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/ghuser/lostfound/pkg/config"
	"github.com/ghuser/lostfound/pkg/logger"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

func newTestLogger() logger.Logger {
	return logger.New(&config.Config{LogLevel: "error"})
}

type memRecords struct {
	mu       sync.Mutex
	recs     map[string]*models.Record
	reads    int
	writeErr error
}

func newMemRecords() *memRecords {
	return &memRecords{recs: make(map[string]*models.Record)}
}

func (s *memRecords) ReadOnce(_ context.Context, id string) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
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
	if s.writeErr != nil {
		return s.writeErr
	}
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

type memGeo struct {
	mu       sync.Mutex
	locs     map[string]models.Coordinate
	failures int // SetLocation fails this many times before succeeding
	sets     int
}

func newMemGeo() *memGeo {
	return &memGeo{locs: make(map[string]models.Coordinate)}
}

func (g *memGeo) Query(context.Context, models.Coordinate, float64, func(repositories.GeoHit)) error {
	return nil
}

func (g *memGeo) SetLocation(_ context.Context, key string, c models.Coordinate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sets++
	if g.failures > 0 {
		g.failures--
		return errors.New("geo unavailable")
	}
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
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failOn  string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (b *memBlobs) Upload(_ context.Context, p string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failOn != "" && strings.Contains(p, b.failOn) {
		return errors.New("upload failed")
	}
	b.objects[p] = data
	b.types[p] = contentType
	return nil
}

func (b *memBlobs) DownloadURL(_ context.Context, p string) (*url.URL, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[p]; !ok {
		return nil, itemdomain.ErrBlobNotFound
	}
	return &url.URL{Scheme: "https", Host: "blobs.test", Path: "/" + p}, nil
}

func (b *memBlobs) ListChildren(_ context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for p := range b.objects {
		if strings.HasPrefix(p, prefix) && !strings.Contains(strings.TrimPrefix(p, prefix), "/") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}
