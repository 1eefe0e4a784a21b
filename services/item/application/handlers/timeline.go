package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/ghuser/lostfound/pkg/auth"
	"github.com/ghuser/lostfound/pkg/errhttp"
	"github.com/ghuser/lostfound/pkg/httpx"
	"github.com/ghuser/lostfound/pkg/logger"
	pkgvalidator "github.com/ghuser/lostfound/pkg/validator"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
	"github.com/ghuser/lostfound/services/item/application/timeline"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/domain/models"
)

const (
	defaultItemsLimit = 25
	maxItemsLimit     = 100

	changesBuffer    = 64
	changesKeepAlive = 10 * time.Second
)

// SetAreaRequest is the request body for PUT /timeline/area.
type SetAreaRequest struct {
	Latitude  *float64 `json:"latitude"  validate:"required,gte=-90,lte=90"   example:"40.4168"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180" example:"-3.7038"`
	RadiusKm  float64  `json:"radius_km" validate:"gte=0,lte=500"             example:"20"`
} // @name SetAreaRequest

// FilterRequest is the request body for PUT /timeline/filters/{kind}.
// An empty search value clears every filter.
type FilterRequest struct {
	Value string `json:"value" validate:"max=200" example:"wallet"`
} // @name FilterRequest

// ResetRequest is the optional request body for POST /timeline/reset.
type ResetRequest struct {
	Full bool `json:"full" example:"true"`
} // @name ResetRequest

// TimelineHandler serves the /timeline endpoints. Each session owns one
// timeline; the first request without one creates it and binds its id to
// the session cookie.
type TimelineHandler struct {
	svc      *appsvcs.Services
	sessions sessions.Store
	log      logger.Logger
}

// NewTimelineHandler returns a TimelineHandler.
func NewTimelineHandler(svc *appsvcs.Services, store sessions.Store, log logger.Logger) *TimelineHandler {
	return &TimelineHandler{svc: svc, sessions: store, log: log}
}

// controller resolves the session's timeline, creating one when needed.
// On failure it has already written the response.
func (h *TimelineHandler) controller(w http.ResponseWriter, r *http.Request) (*timeline.Controller, bool) {
	userID, err := auth.UserIDFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}

	ctrl, id, created := h.svc.Timelines.Acquire(auth.TimelineIDFromCtx(r.Context()), userID)
	if created {
		if err := auth.BindTimeline(h.sessions, w, r, id); err != nil {
			h.log.ErrorContext(r.Context(), "bind timeline to session", "timeline_id", id, "error", err)
			h.svc.Timelines.Drop(id)
			httpx.JSONError(w, http.StatusInternalServerError, "session unavailable")
			return nil, false
		}
		h.log.InfoContext(r.Context(), "timeline created", "timeline_id", id, "user_id", userID)
	}
	return ctrl, true
}

// writePage renders a Result. A batch timeout that still loaded something
// is a partial success, not an error.
func (h *TimelineHandler) writePage(w http.ResponseWriter, r *http.Request, ctrl *timeline.Controller, res timeline.Result, err error) {
	partial := false
	if err != nil {
		if !errors.Is(err, itemdomain.ErrBatchTimeout) || res.Status != timeline.StatusLoaded {
			errhttp.WriteError(w, r, err)
			return
		}
		h.log.WarnContext(r.Context(), "timeline page partially loaded", "missing", res.Missing, "error", err)
		partial = true
	}

	httpx.JSON(w, http.StatusOK, PageResponse{
		Status:          string(res.Status),
		Range:           toRange(res.Range),
		Loaded:          res.Loaded,
		Missing:         res.Missing,
		Total:           res.Total,
		Base:            res.Base,
		Evaluated:       res.Evaluated,
		Partial:         partial,
		ItemsCount:      ctrl.ItemsCount(),
		ThumbnailsCount: ctrl.ThumbnailsCount(),
	})
}

// SetArea sets the search center and radius, resetting the timeline.
//
//	@Summary		Set search area
//	@Description	Replaces the search center and radius; a zero radius selects the default. Resets all paging and filters.
//	@Tags			timeline
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SetAreaRequest	true	"Search area"
//	@Success		200		{object}	AreaResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/timeline/area [put]
func (h *TimelineHandler) SetArea(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[SetAreaRequest](w, r)
	if !ok {
		return
	}
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	err := ctrl.SetSearchArea(timeline.SearchArea{
		Center:   models.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude},
		RadiusKm: req.RadiusKm,
	})
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}

	area, _ := ctrl.Area()
	httpx.JSON(w, http.StatusOK, AreaResponse{
		Latitude:  area.Center.Latitude,
		Longitude: area.Center.Longitude,
		RadiusKm:  area.RadiusKm,
	})
}

// NextPage loads the next page of items.
//
//	@Summary		Load next item page
//	@Tags			timeline
//	@Produce		json
//	@Success		200	{object}	PageResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		504	{object}	ErrorResponse
//	@Router			/timeline/pages [post]
func (h *TimelineHandler) NextPage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	res, err := ctrl.FetchNextItemPage(r.Context())
	h.writePage(w, r, ctrl, res, err)
}

// NextThumbnails attaches thumbnails to the next page of loaded items.
//
//	@Summary		Load next thumbnail page
//	@Tags			timeline
//	@Produce		json
//	@Success		200	{object}	PageResponse
//	@Failure		504	{object}	ErrorResponse
//	@Router			/timeline/thumbnails [post]
func (h *TimelineHandler) NextThumbnails(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	res, err := ctrl.FetchNextThumbnailPage(r.Context())
	h.writePage(w, r, ctrl, res, err)
}

// ListItems returns a window of the loaded items.
//
//	@Summary		List loaded items
//	@Tags			timeline
//	@Produce		json
//	@Param			offset	query		int	false	"First index"	default(0)
//	@Param			limit	query		int	false	"Window size"	default(25)	maximum(100)
//	@Success		200		{object}	ItemsResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/timeline/items [get]
func (h *TimelineHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		httpx.JSONError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := queryInt(r, "limit", defaultItemsLimit)
	if err != nil || limit < 1 || limit > maxItemsLimit {
		httpx.JSONError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	items := ctrl.Items(offset, limit)
	out := make([]ItemResponse, len(items))
	for i := range items {
		out[i] = toItemResponse(&items[i])
	}
	httpx.JSON(w, http.StatusOK, ItemsResponse{
		Items:      out,
		Offset:     offset,
		ItemsCount: ctrl.ItemsCount(),
		Total:      ctrl.TotalCount(),
	})
}

// Filters returns the active filters.
//
//	@Summary		Show active filters
//	@Tags			timeline
//	@Produce		json
//	@Success		200	{object}	FiltersResponse
//	@Router			/timeline/filters [get]
func (h *TimelineHandler) Filters(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, toFiltersResponse(ctrl.Filters()))
}

// ApplyFilter constrains one filter kind and loads the first filtered page.
//
//	@Summary		Apply filter
//	@Description	kind is one of category, subcategory, search, owner. Filters compose.
//	@Tags			timeline
//	@Accept			json
//	@Produce		json
//	@Param			kind	path		string			true	"Filter kind"
//	@Param			request	body		FilterRequest	true	"Filter value"
//	@Success		200		{object}	PageResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		504		{object}	ErrorResponse
//	@Router			/timeline/filters/{kind} [put]
func (h *TimelineHandler) ApplyFilter(w http.ResponseWriter, r *http.Request) {
	kind, err := timeline.ParseFilterKind(chi.URLParam(r, "kind"))
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}
	req, ok := pkgvalidator.ValidateRequest[FilterRequest](w, r)
	if !ok {
		return
	}
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	res, err := ctrl.ApplyFilter(r.Context(), kind, req.Value)
	h.writePage(w, r, ctrl, res, err)
}

// ClearFilter removes one filter kind and reloads.
//
//	@Summary		Clear filter
//	@Tags			timeline
//	@Produce		json
//	@Param			kind	path		string	true	"Filter kind"
//	@Success		200		{object}	PageResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/timeline/filters/{kind} [delete]
func (h *TimelineHandler) ClearFilter(w http.ResponseWriter, r *http.Request) {
	kind, err := timeline.ParseFilterKind(chi.URLParam(r, "kind"))
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	res, err := ctrl.ClearFilter(r.Context(), kind)
	h.writePage(w, r, ctrl, res, err)
}

// Reset drops loaded items; a full reset also drops the radius set and filters.
//
//	@Summary		Reset timeline
//	@Tags			timeline
//	@Accept			json
//	@Param			request	body	ResetRequest	false	"Reset mode"
//	@Success		204
//	@Router			/timeline/reset [post]
func (h *TimelineHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if r.ContentLength != 0 {
		parsed, ok := pkgvalidator.ValidateRequest[ResetRequest](w, r)
		if !ok {
			return
		}
		req = *parsed
	}
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	ctrl.Reset(req.Full)
	w.WriteHeader(http.StatusNoContent)
}

// Mine switches the timeline to the session user's own items, newest first.
//
//	@Summary		Show my items
//	@Tags			timeline
//	@Produce		json
//	@Success		200	{object}	PageResponse
//	@Router			/timeline/mine [post]
func (h *TimelineHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	res, err := ctrl.ShowOwnerItems(r.Context(), userID)
	h.writePage(w, r, ctrl, res, err)
}

// ChangeEvent is one server-sent change notification.
type ChangeEvent struct {
	Track string         `json:"track"`
	Range *RangeResponse `json:"range"`
} // @name ChangeEvent

// Changes streams index-range change notifications as server-sent events
// until the client disconnects or the request times out.
//
//	@Summary		Stream timeline changes
//	@Description	Each event carries the track (items or thumbnails) and the changed range; a null range means reload everything.
//	@Tags			timeline
//	@Produce		text/event-stream
//	@Success		200	{object}	ChangeEvent
//	@Router			/timeline/changes [get]
func (h *TimelineHandler) Changes(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	obs := timeline.NewChannelObserver(changesBuffer)
	unsubscribe := ctrl.Subscribe(obs)
	defer unsubscribe()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.log.WarnContext(r.Context(), "streaming unsupported", "error", err)
		return
	}

	ticker := time.NewTicker(changesKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case ch := <-obs.C():
			payload, err := json.Marshal(ChangeEvent{Track: string(ch.Track), Range: toRange(ch.Range)})
			if err != nil {
				h.log.ErrorContext(r.Context(), "encode change", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", payload); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
