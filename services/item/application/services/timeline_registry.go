package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/lostfound/pkg/logger"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/application/timeline"
)

// DefaultTimelineTTL is used when NewTimelineRegistry is given a zero TTL.
const DefaultTimelineTTL = 30 * time.Minute

// pendingWindow is how long a timeline nobody has fetched by id yet is handed
// to further Acquire calls from the same owner and stale id.
const pendingWindow = 5 * time.Second

type timelineEntry struct {
	ctrl     *timeline.Controller
	owner    string
	lastSeen time.Time
	// origin is the owner and stale id the entry was created for; cleared
	// once the new id is used.
	origin  string
	created time.Time
}

// TimelineRegistry keeps one timeline Controller per browser session.
// Controllers live in memory; an entry idle for longer than the TTL is
// closed by Sweep and the session starts over with a fresh timeline.
type TimelineRegistry struct {
	newController func() *timeline.Controller
	ttl           time.Duration
	log           logger.Logger
	now           func() time.Time

	mu      sync.Mutex
	entries map[string]*timelineEntry
	pending map[string]string // origin -> id
}

// NewTimelineRegistry returns an empty registry building controllers with factory.
func NewTimelineRegistry(factory func() *timeline.Controller, ttl time.Duration, log logger.Logger) *TimelineRegistry {
	if ttl <= 0 {
		ttl = DefaultTimelineTTL
	}
	return &TimelineRegistry{
		newController: factory,
		ttl:           ttl,
		log:           log,
		now:           time.Now,
		entries:       make(map[string]*timelineEntry),
		pending:       make(map[string]string),
	}
}

// Get returns the live timeline id belonging to owner.
// Returns ErrTimelineNotFound when it expired, never existed or belongs to someone else.
func (r *TimelineRegistry) Get(id, owner string) (*timeline.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.owner != owner {
		return nil, itemdomain.ErrTimelineNotFound
	}
	e.lastSeen = r.now()
	r.unpendLocked(e)
	return e.ctrl, nil
}

// Acquire returns the timeline id belonging to owner, creating a new one
// under a fresh id when it is missing. created reports whether the caller
// must bind the returned id to the session.
//
// Concurrent first requests of one session arrive with the same stale id
// before any of them has bound a new one. They all receive the timeline the
// first of them created, as long as its id has not been used yet.
func (r *TimelineRegistry) Acquire(id, owner string) (ctrl *timeline.Controller, newID string, created bool) {
	if id != "" {
		if ctrl, err := r.Get(id, owner); err == nil {
			return ctrl, id, false
		}
	}
	origin := owner + "\x00" + id

	r.mu.Lock()
	if e, pid := r.pendingLocked(origin); e != nil {
		r.mu.Unlock()
		return e.ctrl, pid, true
	}
	r.mu.Unlock()

	fresh := r.newController()

	r.mu.Lock()
	if e, pid := r.pendingLocked(origin); e != nil {
		r.mu.Unlock()
		fresh.Close()
		return e.ctrl, pid, true
	}
	now := r.now()
	newID = uuid.NewString()
	r.entries[newID] = &timelineEntry{ctrl: fresh, owner: owner, lastSeen: now, origin: origin, created: now}
	r.pending[origin] = newID
	r.mu.Unlock()
	return fresh, newID, true
}

// pendingLocked returns the unused timeline created for origin within the
// pending window.
func (r *TimelineRegistry) pendingLocked(origin string) (*timelineEntry, string) {
	pid, ok := r.pending[origin]
	if !ok {
		return nil, ""
	}
	e, ok := r.entries[pid]
	if !ok || r.now().Sub(e.created) > pendingWindow {
		delete(r.pending, origin)
		if ok {
			e.origin = ""
		}
		return nil, ""
	}
	return e, pid
}

func (r *TimelineRegistry) unpendLocked(e *timelineEntry) {
	if e.origin != "" {
		delete(r.pending, e.origin)
		e.origin = ""
	}
}

// Drop closes and forgets a timeline. Unknown ids are ignored.
func (r *TimelineRegistry) Drop(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
		r.unpendLocked(e)
	}
	r.mu.Unlock()
	if ok {
		e.ctrl.Close()
	}
}

// Sweep closes every timeline idle for longer than the TTL and returns how
// many it removed.
func (r *TimelineRegistry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*timeline.Controller
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.ctrl)
			delete(r.entries, id)
			r.unpendLocked(e)
		}
	}
	r.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}
	return len(expired)
}

// Len reports the number of live timelines.
func (r *TimelineRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Run sweeps every interval until ctx is cancelled, then closes all timelines.
func (r *TimelineRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			r.log.Info("timeline registry stopped")
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.Info("expired timelines swept", "count", n, "live", r.Len())
			}
		}
	}
}

func (r *TimelineRegistry) closeAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*timelineEntry)
	r.pending = make(map[string]string)
	r.mu.Unlock()

	for _, e := range entries {
		e.ctrl.Close()
	}
}
