package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/lostfound/pkg/auth"
	"github.com/ghuser/lostfound/pkg/errhttp"
	"github.com/ghuser/lostfound/pkg/httpx"
	pkgvalidator "github.com/ghuser/lostfound/pkg/validator"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
)

// CreateItemRequest is the request body for POST /items.
// Images are base64-encoded; the first one becomes the thumbnail.
type CreateItemRequest struct {
	Name        string   `json:"name"        validate:"required,max=120"                          example:"Brown wallet"`
	Details     string   `json:"details"     validate:"required,max=2000"                         example:"Leather, found near the fountain"`
	Category    string   `json:"category"    validate:"required,oneof=lost found adoption"        example:"found"`
	Subcategory string   `json:"subcategory" validate:"required"                                  example:"accessories"`
	Latitude    *float64 `json:"latitude"    validate:"required,gte=-90,lte=90"                   example:"40.4168"`
	Longitude   *float64 `json:"longitude"   validate:"required,gte=-180,lte=180"                 example:"-3.7038"`
	Images      []string `json:"images"      validate:"max=8,dive,required,base64"`
} // @name CreateItemRequest

// ItemHandler serves the /items endpoints.
type ItemHandler struct {
	svc *appsvcs.Services
}

// NewItemHandler returns an ItemHandler backed by the given services.
func NewItemHandler(svc *appsvcs.Services) *ItemHandler {
	return &ItemHandler{svc: svc}
}

// Create stores a new item owned by the session user.
//
//	@Summary		Create item
//	@Description	Creates a lost, found or adoption item with its images
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateItemRequest	true	"Item creation request"
//	@Success		201		{object}	ItemResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/items [post]
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	req, ok := pkgvalidator.ValidateRequest[CreateItemRequest](w, r)
	if !ok {
		return
	}

	images := make([][]byte, 0, len(req.Images))
	for _, enc := range req.Images {
		data, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "images must be base64 encoded")
			return
		}
		images = append(images, data)
	}

	item, err := h.svc.Items.Create(r.Context(), userID, appsvcs.CreateItemInput{
		Name:        req.Name,
		Details:     req.Details,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		Images:      images,
	})
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, toItemResponse(item))
}

// Get returns one item.
//
//	@Summary		Get item
//	@Tags			items
//	@Produce		json
//	@Param			id	path		string	true	"Item ID"
//	@Success		200	{object}	ItemResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/items/{id} [get]
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Items.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(item))
}

// Images lists presigned links to the item's full-size images.
//
//	@Summary		List item images
//	@Tags			items
//	@Produce		json
//	@Param			id	path		string	true	"Item ID"
//	@Success		200	{object}	ImagesResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/items/{id}/images [get]
func (h *ItemHandler) Images(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	links, err := h.svc.Items.Images(r.Context(), id)
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}
	urls := make([]string, len(links))
	for i, u := range links {
		urls[i] = u.String()
	}
	httpx.JSON(w, http.StatusOK, ImagesResponse{ItemID: id, URLs: urls})
}
