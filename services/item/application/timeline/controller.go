// Package timeline pages a geo-sorted list of nearby items in two tracks:
// item records and their thumbnails. It owns the filter state, the paging
// cursors and the single-flight guards, and tells observers which index
// range changed after each page.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghuser/lostfound/pkg/logger"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
)

// errSuperseded marks work whose generation was replaced while it ran.
var errSuperseded = errors.New("timeline generation superseded")

// Status is the outcome of one paging or filtering operation.
type Status string

const (
	// StatusLoaded means a page was fetched and merged, possibly partially.
	StatusLoaded Status = "loaded"
	// StatusEmpty means the effective key set has no keys at all.
	StatusEmpty Status = "empty"
	// StatusSkipped means a fetch on the same track was already running,
	// or there was nothing new to fetch on the thumbnail track.
	StatusSkipped Status = "skipped"
	// StatusExhausted means every key of the effective set is loaded.
	StatusExhausted Status = "exhausted"
	// StatusSuperseded means a reset or filter change replaced the work
	// while it ran; its results were discarded.
	StatusSuperseded Status = "superseded"
)

// Result describes one operation on a Controller.
type Result struct {
	Status Status
	// Range is the changed index range; nil asks for a full reload.
	Range *IndexRange
	// Loaded counts items (or thumbnails) merged by this call.
	Loaded int
	// Missing counts keys of the window that yielded nothing.
	Missing int
	// Total is the size of the effective key set.
	Total int
	// Base and Evaluated are set by filter operations: the key set the
	// predicate ran against and its size.
	Base      string
	Evaluated int
}

// Config sets page sizes and the fallback radius.
type Config struct {
	ItemPageSize      int
	ThumbnailPageSize int
	DefaultRadiusKm   float64
}

// Deps are the collaborators a Controller reads through.
type Deps struct {
	Records repositories.RecordStore
	Geo     repositories.GeoIndex
	Blobs   repositories.BlobStore
	Runner  *BatchRunner
	Log     logger.Logger
}

// Controller is one user's timeline. All methods are safe for concurrent use;
// the item and thumbnail tracks each admit one fetch at a time.
type Controller struct {
	cfg     Config
	records repositories.RecordStore
	geo     repositories.GeoIndex
	blobs   repositories.BlobStore
	runner  *BatchRunner
	log     logger.Logger

	mu        sync.Mutex
	area      *SearchArea
	gen       uint64
	genCtx    context.Context
	genCancel context.CancelFunc
	cache     *recordCache

	radiusKeys     []string
	radiusReady    bool
	paginatedKeys  []string
	paginatedReady bool
	filters        FilterState
	ownerView      string

	items         []*models.Item
	index         map[string]int
	itemCursor    int
	thumbCursor   int
	thumbCount    int
	itemFetching  bool
	thumbFetching bool

	observers    map[int]Observer
	nextObserver int
}

// New returns an empty Controller. SetSearchArea must be called before the
// first page unless the owner view is used.
func New(cfg Config, deps Deps) *Controller {
	if cfg.ItemPageSize <= 0 {
		cfg.ItemPageSize = 25
	}
	if cfg.ThumbnailPageSize <= 0 {
		cfg.ThumbnailPageSize = 10
	}
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = 20
	}
	genCtx, genCancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:       cfg,
		records:   deps.Records,
		geo:       deps.Geo,
		blobs:     deps.Blobs,
		runner:    deps.Runner,
		log:       deps.Log,
		genCtx:    genCtx,
		genCancel: genCancel,
		cache:     newRecordCache(deps.Records),
		index:     make(map[string]int),
		observers: make(map[int]Observer),
	}
}

// Subscribe registers o for change notifications and returns a function
// that removes it.
func (c *Controller) Subscribe(o Observer) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = o
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Close cancels in-flight work. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	c.genCancel()
	c.mu.Unlock()
}

// SetSearchArea replaces the search area and fully invalidates the timeline.
// A zero radius selects the configured default.
func (c *Controller) SetSearchArea(area SearchArea) error {
	if area.RadiusKm < 0 {
		return fmt.Errorf("%w: negative radius", itemdomain.ErrInvalidFilter)
	}
	if area.RadiusKm == 0 {
		area.RadiusKm = c.cfg.DefaultRadiusKm
	}
	if _, err := models.NewCoordinate(area.Center.Latitude, area.Center.Longitude); err != nil {
		return err
	}

	c.mu.Lock()
	c.area = &area
	c.resetLocked(true)
	c.mu.Unlock()

	c.notify(Change{Track: TrackItems})
	return nil
}

// Reset drops every loaded item and both cursors. A full reset also drops
// the radius set, the filters and the record cache, so the next page
// re-queries the geo index.
func (c *Controller) Reset(full bool) {
	c.mu.Lock()
	c.resetLocked(full)
	c.mu.Unlock()

	c.notify(Change{Track: TrackItems})
}

func (c *Controller) resetLocked(full bool) {
	c.bumpLocked()
	if !full {
		return
	}
	c.radiusKeys = nil
	c.radiusReady = false
	c.paginatedKeys = nil
	c.paginatedReady = false
	c.filters.reset()
	c.ownerView = ""
	c.cache = newRecordCache(c.records)
}

// bumpLocked starts a new generation: in-flight work of the old one is
// cancelled and its results will be discarded. Loaded items, cursors and
// guards are cleared; key sets are left to the caller.
func (c *Controller) bumpLocked() {
	c.genCancel()
	c.gen++
	c.genCtx, c.genCancel = context.WithCancel(context.Background())

	c.items = nil
	c.index = make(map[string]int)
	c.itemCursor = 0
	c.thumbCursor = 0
	c.thumbCount = 0
	c.itemFetching = false
	c.thumbFetching = false
}

// scoped derives a context that ends with either ctx or the generation.
func scoped(ctx, gen context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(ctx)
	stop := context.AfterFunc(gen, func() { cancel(errSuperseded) })
	return ctx, func() {
		stop()
		cancel(nil)
	}
}

// ensureRadius resolves the radius set once per radius context and seeds
// the paginated set with it when nothing else has.
func (c *Controller) ensureRadius(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	if c.radiusReady {
		if !c.paginatedReady {
			c.paginatedKeys = c.radiusKeys
			c.paginatedReady = true
		}
		c.mu.Unlock()
		return nil
	}
	if c.area == nil {
		c.mu.Unlock()
		return itemdomain.ErrNoSearchArea
	}
	area := *c.area
	c.mu.Unlock()

	keys, err := queryRadius(ctx, c.geo, c.runner, area)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return errSuperseded
	}
	if err != nil {
		return err
	}
	c.radiusKeys = keys
	c.radiusReady = true
	if !c.paginatedReady {
		c.paginatedKeys = keys
		c.paginatedReady = true
	}
	return nil
}

// FetchNextItemPage loads the next ItemPageSize keys of the effective set.
//
// The first page of a fresh radius context resolves the radius set first.
// The first page signals a full reload (nil range); later pages signal the
// appended tail. On a batch timeout the partial page is merged, the cursor
// still moves past the whole window, and the error is returned with the result.
// When the caller's context ends first nothing is merged and the cursor stays,
// so the next call reads the same window again.
func (c *Controller) FetchNextItemPage(ctx context.Context) (Result, error) {
	ctx, span := tracer.Start(ctx, "timeline.FetchNextItemPage")
	defer span.End()

	c.mu.Lock()
	if c.itemFetching {
		c.mu.Unlock()
		return c.pageDone(ctx, span, TrackItems, Result{Status: StatusSkipped}, nil)
	}
	c.itemFetching = true
	gen, genCtx := c.gen, c.genCtx
	ready := c.paginatedReady
	c.mu.Unlock()

	ctx, stop := scoped(ctx, genCtx)
	defer stop()

	if !ready {
		if err := c.ensureRadius(ctx, gen); err != nil {
			if errors.Is(err, errSuperseded) {
				return c.pageDone(ctx, span, TrackItems, Result{Status: StatusSuperseded}, nil)
			}
			c.releaseItems(gen)
			return c.pageDone(ctx, span, TrackItems, Result{}, err)
		}
	}
	return c.loadItemWindow(ctx, span, gen)
}

// loadItemWindow runs with the item guard held by generation gen.
func (c *Controller) loadItemWindow(ctx context.Context, span trace.Span, gen uint64) (Result, error) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return c.pageDone(ctx, span, TrackItems, Result{Status: StatusSuperseded}, nil)
	}
	total := len(c.paginatedKeys)
	start := c.itemCursor
	switch {
	case total == 0:
		c.itemFetching = false
		c.mu.Unlock()
		c.notify(Change{Track: TrackItems})
		return c.pageDone(ctx, span, TrackItems, Result{Status: StatusEmpty}, nil)
	case start >= total:
		c.itemFetching = false
		c.mu.Unlock()
		return c.pageDone(ctx, span, TrackItems, Result{Status: StatusExhausted, Total: total}, nil)
	}
	end := min(start+c.cfg.ItemPageSize, total)
	window := slices.Clone(c.paginatedKeys[start:end])
	fetcher := NewPageFetcher(c.cache, c.geo, c.runner)
	c.mu.Unlock()

	span.SetAttributes(attribute.Int("timeline.window.start", start), attribute.Int("timeline.window.len", len(window)))
	items, fetchErr := fetcher.Fetch(ctx, window)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return c.pageDone(ctx, span, TrackItems, Result{Status: StatusSuperseded}, nil)
	}
	if callerEnded(fetchErr) {
		// The caller gave up: keep the cursor so the window is read again.
		c.itemFetching = false
		c.mu.Unlock()
		return c.pageDone(ctx, span, TrackItems, Result{Total: total}, fetchErr)
	}
	oldCount := len(c.items)
	for _, it := range items {
		if _, dup := c.index[it.ID]; dup {
			continue
		}
		c.index[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}
	newCount := len(c.items)
	c.itemCursor = end
	c.itemFetching = false
	c.mu.Unlock()

	var rng *IndexRange
	if start > 0 {
		rng = &IndexRange{Start: oldCount, End: newCount}
	}
	c.notify(Change{Track: TrackItems, Range: rng})

	res := Result{
		Status:  StatusLoaded,
		Range:   rng,
		Loaded:  newCount - oldCount,
		Missing: len(window) - (newCount - oldCount),
		Total:   total,
	}
	return c.pageDone(ctx, span, TrackItems, res, fetchErr)
}

// callerEnded reports whether a batch stopped because the caller's context
// ended rather than on its own deadline. Only the latter yields a page.
func callerEnded(err error) bool {
	return err != nil && !errors.Is(err, itemdomain.ErrBatchTimeout)
}

func (c *Controller) releaseItems(gen uint64) {
	c.mu.Lock()
	if c.gen == gen {
		c.itemFetching = false
	}
	c.mu.Unlock()
}

type thumbnail struct {
	itemID string
	link   *url.URL
}

// FetchNextThumbnailPage resolves thumbnails for the next ThumbnailPageSize
// loaded items. It never runs ahead of the item track: with no loaded item
// left to cover it reports StatusSkipped. The signalled range covers the
// item positions of the window.
func (c *Controller) FetchNextThumbnailPage(ctx context.Context) (Result, error) {
	ctx, span := tracer.Start(ctx, "timeline.FetchNextThumbnailPage")
	defer span.End()

	c.mu.Lock()
	start := c.thumbCursor
	end := min(start+c.cfg.ThumbnailPageSize, len(c.items))
	if c.thumbFetching || start >= end {
		c.mu.Unlock()
		return c.pageDone(ctx, span, TrackThumbnails, Result{Status: StatusSkipped}, nil)
	}
	ids := make([]string, 0, end-start)
	for _, it := range c.items[start:end] {
		ids = append(ids, it.ID)
	}
	c.thumbFetching = true
	gen, genCtx := c.gen, c.genCtx
	c.mu.Unlock()

	ctx, stop := scoped(ctx, genCtx)
	defer stop()

	thumbs, fetchErr := gather(ctx, c.runner, "thumbnail", ids, func(ctx context.Context, id string) (thumbnail, bool, error) {
		u, err := c.blobs.DownloadURL(ctx, models.ThumbnailPath(id))
		if errors.Is(err, itemdomain.ErrBlobNotFound) {
			return thumbnail{}, false, nil
		}
		if err != nil {
			return thumbnail{}, false, err
		}
		return thumbnail{itemID: id, link: u}, true, nil
	})

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return c.pageDone(ctx, span, TrackThumbnails, Result{Status: StatusSuperseded}, nil)
	}
	if callerEnded(fetchErr) {
		c.thumbFetching = false
		total := len(c.items)
		c.mu.Unlock()
		return c.pageDone(ctx, span, TrackThumbnails, Result{Total: total}, fetchErr)
	}
	added := 0
	for _, t := range thumbs {
		if i, ok := c.index[t.itemID]; ok && c.items[i].SetThumbnail(t.link) {
			added++
		}
	}
	c.thumbCount += added
	c.thumbCursor = end
	c.thumbFetching = false
	total := len(c.items)
	c.mu.Unlock()

	// Item positions, not thumbnail counts: rows without a thumbnail are
	// still part of the window the cursor moved past.
	rng := &IndexRange{Start: start, End: end}
	c.notify(Change{Track: TrackThumbnails, Range: rng})

	res := Result{
		Status:  StatusLoaded,
		Range:   rng,
		Loaded:  added,
		Missing: len(ids) - len(thumbs),
		Total:   total,
	}
	return c.pageDone(ctx, span, TrackThumbnails, res, fetchErr)
}

// ApplyFilter constrains kind to value, evaluates the combined predicate
// against the base chosen by the filter precedence, and loads the first page
// of the result. An empty search text clears every filter instead.
func (c *Controller) ApplyFilter(ctx context.Context, kind FilterKind, value string) (Result, error) {
	if kind == FilterSearch && strings.TrimSpace(value) == "" {
		return c.ClearAll(ctx)
	}

	c.mu.Lock()
	next, err := c.filters.active.with(kind, value)
	if err != nil {
		c.mu.Unlock()
		return Result{}, err
	}
	c.filters.active = next
	c.ownerView = ""
	c.bumpLocked()
	c.mu.Unlock()

	return c.runFilter(ctx, "timeline.ApplyFilter", kind, kind, func(radius []string) ([]string, string) {
		return c.filters.baseFor(kind, radius)
	})
}

// ClearFilter removes kind. The remaining predicate, if any, is re-run
// against the radius set; otherwise the radius set is paged as is.
//
// Turning the category off also drops the search text. A chosen subcategory
// is then re-run against the radius set; without one the radius set is
// reloaded as is.
func (c *Controller) ClearFilter(ctx context.Context, kind FilterKind) (Result, error) {
	c.mu.Lock()
	if !c.filters.active.has(kind) {
		c.mu.Unlock()
		return Result{Status: StatusSkipped}, nil
	}
	c.filters.clear(kind)
	if kind == FilterCategory {
		c.filters.clear(FilterSearch)
	}
	remaining := c.filters.active
	if remaining.IsZero() {
		c.mu.Unlock()
		return c.ClearAll(ctx)
	}
	c.ownerView = ""
	c.bumpLocked()
	c.mu.Unlock()

	slot := FilterCategory
	if remaining.Category == "" && remaining.Subcategory == "" && remaining.Owner == "" {
		slot = FilterSearch
	}
	return c.runFilter(ctx, "timeline.ClearFilter", kind, slot, func(radius []string) ([]string, string) {
		return radius, BaseRadius
	})
}

// ClearAll drops every filter and pages the radius set from the start
// without querying the geo index again.
func (c *Controller) ClearAll(ctx context.Context) (Result, error) {
	c.mu.Lock()
	c.filters.reset()
	c.ownerView = ""
	c.bumpLocked()
	c.paginatedKeys = c.radiusKeys
	c.paginatedReady = c.radiusReady
	c.mu.Unlock()

	res, err := c.FetchNextItemPage(ctx)
	res.Base = BaseRadius
	res.Evaluated = res.Total
	return res, err
}

// runFilter evaluates the active predicate for the current generation and
// makes its result the paginated set. The item guard is held while the
// predicate runs so that no page of the previous set slips in.
func (c *Controller) runFilter(ctx context.Context, spanName string, kind, slot FilterKind,
	pickBase func(radius []string) ([]string, string),
) (Result, error) {
	ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(attribute.String("timeline.filter.kind", string(kind))))
	defer span.End()

	c.mu.Lock()
	c.itemFetching = true
	gen, genCtx := c.gen, c.genCtx
	c.mu.Unlock()

	fctx, stop := scoped(ctx, genCtx)
	defer stop()

	if err := c.ensureRadius(fctx, gen); err != nil {
		if errors.Is(err, errSuperseded) {
			return Result{Status: StatusSuperseded}, nil
		}
		c.releaseItems(gen)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return Result{Status: StatusSuperseded}, nil
	}
	base, baseName := pickBase(c.radiusKeys)
	pred := c.filters.active
	cache := c.cache
	c.mu.Unlock()

	span.SetAttributes(attribute.String("timeline.filter.base", baseName), attribute.Int("timeline.filter.evaluated", len(base)))
	keys, filterErr := NewFilterEngine(cache, c.runner).Filter(fctx, base, pred)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return Result{Status: StatusSuperseded}, nil
	}
	// A partial result is paged but never composed against.
	if filterErr == nil {
		c.filters.retain(slot, keys)
	}
	c.paginatedKeys = keys
	c.paginatedReady = true
	c.mu.Unlock()

	c.runner.inst.recordFilter(ctx, kind, baseName)

	res, err := c.loadItemWindow(fctx, span, gen)
	res.Base = baseName
	res.Evaluated = len(base)
	return res, errors.Join(filterErr, err)
}

// ShowOwnerItems pages the items created by owner, read from the owner's
// child index instead of the radius set. Filters are dropped.
func (c *Controller) ShowOwnerItems(ctx context.Context, owner string) (Result, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return Result{}, fmt.Errorf("%w: empty owner", itemdomain.ErrInvalidFilter)
	}
	ctx, span := tracer.Start(ctx, "timeline.ShowOwnerItems")
	defer span.End()

	c.mu.Lock()
	c.filters.reset()
	c.ownerView = owner
	c.bumpLocked()
	c.itemFetching = true
	gen, genCtx := c.gen, c.genCtx
	c.mu.Unlock()

	octx, stop := scoped(ctx, genCtx)
	defer stop()

	keys, err := c.records.ReadChildIndex(octx, owner)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return Result{Status: StatusSuperseded}, nil
	}
	if err != nil {
		c.itemFetching = false
		c.mu.Unlock()
		return Result{}, fmt.Errorf("read owner index: %w", err)
	}
	c.paginatedKeys = keys
	c.paginatedReady = true
	c.mu.Unlock()

	res, err := c.loadItemWindow(octx, span, gen)
	res.Base = BaseOwner
	res.Evaluated = len(keys)
	return res, err
}

func (c *Controller) pageDone(ctx context.Context, span trace.Span, track Track, res Result, err error) (Result, error) {
	span.SetAttributes(attribute.String("timeline.track", string(track)), attribute.String("timeline.status", string(res.Status)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if res.Status != "" {
		c.runner.inst.recordPage(ctx, track, res.Status)
	}
	return res, err
}

func (c *Controller) notify(ch Change) {
	c.mu.Lock()
	obs := make([]Observer, 0, len(c.observers))
	for _, o := range c.observers {
		obs = append(obs, o)
	}
	c.mu.Unlock()

	for _, o := range obs {
		switch ch.Track {
		case TrackThumbnails:
			o.ThumbnailsChanged(ch.Range)
		default:
			o.ItemsChanged(ch.Range)
		}
	}
}

// ItemsCount is the number of loaded items.
func (c *Controller) ItemsCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// ThumbnailsCount is the number of loaded items with a thumbnail attached.
func (c *Controller) ThumbnailsCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thumbCount
}

// TotalCount is the size of the effective key set, or 0 before it is known.
func (c *Controller) TotalCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paginatedKeys)
}

// Item returns a copy of the i-th loaded item.
func (c *Controller) Item(i int) (models.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.items) {
		return models.Item{}, false
	}
	return *c.items[i], true
}

// Items returns copies of up to limit loaded items starting at offset.
func (c *Controller) Items(offset, limit int) []models.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	if offset < 0 || offset >= len(c.items) || limit <= 0 {
		return nil
	}
	end := min(offset+limit, len(c.items))
	out := make([]models.Item, 0, end-offset)
	for _, it := range c.items[offset:end] {
		out = append(out, *it)
	}
	return out
}

// Filters returns the active filters.
func (c *Controller) Filters() FilterSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.filters.snapshot()
	if c.ownerView != "" {
		snap.Mode = "owner-view"
		snap.Owner = c.ownerView
	}
	return snap
}

// Area returns the search area, if one is set.
func (c *Controller) Area() (SearchArea, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.area == nil {
		return SearchArea{}, false
	}
	return *c.area, true
}

// RadiusKeys returns a copy of the radius set.
func (c *Controller) RadiusKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.radiusKeys)
}

// PaginatedKeys returns a copy of the effective key set.
func (c *Controller) PaginatedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.paginatedKeys)
}

// CachedRecords reports how many records the current radius context holds.
func (c *Controller) CachedRecords() int {
	c.mu.Lock()
	cache := c.cache
	c.mu.Unlock()
	return cache.len()
}
