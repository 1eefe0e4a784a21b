package domain

import "errors"

// Sentinel errors for the item domain. Use errors.Is() to check these.
var (
	// ErrItemNotFound indicates the requested item record does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrItemAlreadyExists indicates an item with the same ID was already written.
	ErrItemAlreadyExists = errors.New("item already exists")

	// ErrInvalidItem indicates the item violates a construction or business rule.
	ErrInvalidItem = errors.New("invalid item")

	// ErrInvalidCategory indicates a category value outside lost/found/adoption.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrLocationNotFound indicates the geo index holds no position for a key.
	ErrLocationNotFound = errors.New("location not found")

	// ErrBlobNotFound indicates no object exists at the requested storage path.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrNoSearchArea indicates a timeline was paged before a search area was set.
	ErrNoSearchArea = errors.New("search area not set")

	// ErrBatchTimeout indicates a fan-out batch hit its deadline before every read resolved.
	ErrBatchTimeout = errors.New("batch timed out")

	// ErrTimelineNotFound indicates the session has no live timeline.
	ErrTimelineNotFound = errors.New("timeline not found")

	// ErrInvalidFilter indicates an unknown filter kind or an unusable filter value.
	ErrInvalidFilter = errors.New("invalid filter")
)
