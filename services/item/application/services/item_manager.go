package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/ghuser/lostfound/pkg/logger"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
	domainsvcs "github.com/ghuser/lostfound/services/item/domain/services"
)

const (
	maxImages         = 8
	uploadConcurrency = 4
)

// CreateItemInput carries a new item as the client submits it.
// Images[0], when present, doubles as the thumbnail.
type CreateItemInput struct {
	Name        string
	Details     string
	Category    string
	Subcategory string
	Latitude    float64
	Longitude   float64
	Images      [][]byte
}

// ItemManager creates items and serves single-item reads.
// Creation order is images, then the record (with its outbox event), then the
// geo position, so an item never shows up in a radius query before its record exists.
type ItemManager struct {
	records repositories.RecordStore
	geo     repositories.GeoIndex
	blobs   repositories.BlobStore
	indexer *Indexer
	log     logger.Logger
	now     func() time.Time
}

// NewItemManager wires an ItemManager.
func NewItemManager(records repositories.RecordStore, geo repositories.GeoIndex, blobs repositories.BlobStore, indexer *Indexer, log logger.Logger) *ItemManager {
	return &ItemManager{
		records: records,
		geo:     geo,
		blobs:   blobs,
		indexer: indexer,
		log:     log,
		now:     time.Now,
	}
}

// Create validates and stores a new item owned by ownerID.
func (m *ItemManager) Create(ctx context.Context, ownerID string, in CreateItemInput) (*models.Item, error) {
	item, err := m.build(ownerID, in)
	if err != nil {
		return nil, err
	}

	contentTypes, err := detectImages(in.Images)
	if err != nil {
		return nil, err
	}

	// IDs have one-second resolution; refuse before the uploads can clobber
	// the images of an item created in the same second.
	switch _, err := m.records.ReadOnce(ctx, item.ID); {
	case err == nil:
		return nil, itemdomain.ErrItemAlreadyExists
	case !errors.Is(err, itemdomain.ErrItemNotFound):
		return nil, fmt.Errorf("check item: %w", err)
	}

	if err := m.uploadImages(ctx, item.ID, in.Images, contentTypes); err != nil {
		return nil, err
	}

	if err := m.records.Write(ctx, models.RecordFromItem(item)); err != nil {
		return nil, fmt.Errorf("write item: %w", err)
	}

	if err := m.indexer.Index(ctx, IndexRequest{
		ItemID:    item.ID,
		Latitude:  item.Location.Latitude,
		Longitude: item.Location.Longitude,
	}); err != nil {
		// The item.created subscriber indexes it again; the write stands.
		m.log.ErrorContext(ctx, "inline geo indexing failed", "item_id", item.ID, "error", err)
	}

	if len(in.Images) > 0 {
		if u, err := m.blobs.DownloadURL(ctx, models.ThumbnailPath(item.ID)); err == nil {
			item.SetThumbnail(u)
		}
	}

	m.log.InfoContext(ctx, "item created", "item_id", item.ID, "owner_id", ownerID, "images", len(in.Images))
	return item, nil
}

func (m *ItemManager) build(ownerID string, in CreateItemInput) (*models.Item, error) {
	category, err := models.ParseCategory(in.Category)
	if err != nil {
		return nil, err
	}
	if !models.IsKnownSubcategory(in.Subcategory) {
		return nil, fmt.Errorf("%w: unknown subcategory %q", itemdomain.ErrInvalidItem, in.Subcategory)
	}
	loc, err := models.NewCoordinate(in.Latitude, in.Longitude)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", itemdomain.ErrInvalidItem, err)
	}

	now := m.now()
	item, err := models.NewItem(models.ItemParams{
		ID:          models.NewItemID(ownerID, now),
		Name:        in.Name,
		Details:     in.Details,
		Category:    category,
		Subcategory: models.ParseSubcategory(in.Subcategory),
		Location:    loc,
		CreatedBy:   ownerID,
		CreatedAt:   models.FormatCreatedAt(now),
	})
	if err != nil {
		return nil, err
	}
	if err := domainsvcs.ValidateItemForCreation(item); err != nil {
		return nil, fmt.Errorf("%w: %w", itemdomain.ErrInvalidItem, err)
	}
	return item, nil
}

// detectImages sniffs every payload and rejects anything that is not an image.
func detectImages(images [][]byte) ([]string, error) {
	if len(images) > maxImages {
		return nil, fmt.Errorf("%w: at most %d images, got %d", itemdomain.ErrInvalidItem, maxImages, len(images))
	}
	types := make([]string, len(images))
	for i, data := range images {
		mt := mimetype.Detect(data)
		if !strings.HasPrefix(mt.String(), "image/") {
			return nil, fmt.Errorf("%w: image %d is %s", itemdomain.ErrInvalidItem, i, mt.String())
		}
		types[i] = mt.String()
	}
	return types, nil
}

func (m *ItemManager) uploadImages(ctx context.Context, itemID string, images [][]byte, contentTypes []string) error {
	if len(images) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	g.Go(func() error {
		return m.blobs.Upload(gctx, models.ThumbnailPath(itemID), images[0], contentTypes[0])
	})
	for i, data := range images {
		g.Go(func() error {
			return m.blobs.Upload(gctx, models.ImagePath(itemID, i), data, contentTypes[i])
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("upload images: %w", err)
	}
	return nil
}

// Get returns one item with its thumbnail link when it has one. The indexed
// position wins over the stored one.
func (m *ItemManager) Get(ctx context.Context, itemID string) (*models.Item, error) {
	rec, err := m.records.ReadOnce(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	loc, err := m.geo.Location(ctx, itemID)
	switch {
	case errors.Is(err, itemdomain.ErrLocationNotFound):
		loc = models.Coordinate{Latitude: rec.Latitude, Longitude: rec.Longitude}
	case err != nil:
		return nil, fmt.Errorf("get item location: %w", err)
	}

	item, err := rec.Decode(loc)
	if err != nil {
		return nil, err
	}

	u, err := m.blobs.DownloadURL(ctx, models.ThumbnailPath(itemID))
	switch {
	case err == nil:
		item.SetThumbnail(u)
	case !errors.Is(err, itemdomain.ErrBlobNotFound):
		m.log.WarnContext(ctx, "thumbnail lookup failed", "item_id", itemID, "error", err)
	}
	return item, nil
}

// Images lists download links for the item's full-size images in upload order.
func (m *ItemManager) Images(ctx context.Context, itemID string) ([]*url.URL, error) {
	if _, err := m.records.ReadOnce(ctx, itemID); err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	paths, err := m.blobs.ListChildren(ctx, models.ImagesPrefix(itemID))
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	sortImagePaths(paths)

	links := make([]*url.URL, 0, len(paths))
	for _, p := range paths {
		u, err := m.blobs.DownloadURL(ctx, p)
		if err != nil {
			if errors.Is(err, itemdomain.ErrBlobNotFound) {
				continue
			}
			return nil, fmt.Errorf("image link: %w", err)
		}
		links = append(links, u)
	}
	return links, nil
}

// sortImagePaths orders paths by their trailing _<n> upload index.
func sortImagePaths(paths []string) {
	slices.SortStableFunc(paths, func(a, b string) int {
		return cmp.Compare(imageIndex(a), imageIndex(b))
	})
}

func imageIndex(p string) int {
	i := strings.LastIndexByte(p, '_')
	if i < 0 {
		return math.MaxInt
	}
	n, err := strconv.Atoi(p[i+1:])
	if err != nil {
		return math.MaxInt
	}
	return n
}
