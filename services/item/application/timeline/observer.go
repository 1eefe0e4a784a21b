package timeline

import (
	"sync/atomic"
)

// IndexRange is the half-open interval [Start, End) of positions in the
// loaded item list.
type IndexRange struct {
	Start int
	End   int
}

// Len returns End - Start.
func (r IndexRange) Len() int { return r.End - r.Start }

// Track names one of the two independent paging tracks.
type Track string

const (
	TrackItems      Track = "items"
	TrackThumbnails Track = "thumbnails"
)

// Observer is told which part of the loaded list changed.
// A nil range means the whole list must be reloaded.
type Observer interface {
	ItemsChanged(r *IndexRange)
	ThumbnailsChanged(r *IndexRange)
}

// Change is one notification delivered by a ChannelObserver.
type Change struct {
	Track Track
	Range *IndexRange
}

// ChannelObserver forwards notifications to a buffered channel. Sends never
// block; when the buffer is full the change is counted and dropped.
type ChannelObserver struct {
	ch      chan Change
	dropped atomic.Int64
}

// NewChannelObserver returns an observer whose channel holds up to buffer changes.
func NewChannelObserver(buffer int) *ChannelObserver {
	return &ChannelObserver{ch: make(chan Change, max(buffer, 1))}
}

// C returns the receive side of the channel.
func (o *ChannelObserver) C() <-chan Change { return o.ch }

// Dropped returns how many changes did not fit the buffer.
func (o *ChannelObserver) Dropped() int64 { return o.dropped.Load() }

func (o *ChannelObserver) ItemsChanged(r *IndexRange) { o.send(Change{Track: TrackItems, Range: r}) }

func (o *ChannelObserver) ThumbnailsChanged(r *IndexRange) {
	o.send(Change{Track: TrackThumbnails, Range: r})
}

func (o *ChannelObserver) send(c Change) {
	select {
	case o.ch <- c:
	default:
		o.dropped.Add(1)
	}
}
