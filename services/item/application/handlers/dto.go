package handlers

import (
	"github.com/ghuser/lostfound/services/item/application/timeline"
	"github.com/ghuser/lostfound/services/item/domain/models"
)

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error" example:"item not found"`
} // @name ErrorResponse

// ItemResponse is one item as the API renders it.
type ItemResponse struct {
	ID           string  `json:"id"            example:"alice20240201103005"`
	Name         string  `json:"name"          example:"Brown wallet"`
	Details      string  `json:"details"       example:"Leather, found near the fountain"`
	Category     string  `json:"category"      example:"found"`
	Subcategory  string  `json:"subcategory"   example:"accessories"`
	Latitude     float64 `json:"latitude"      example:"40.4168"`
	Longitude    float64 `json:"longitude"     example:"-3.7038"`
	CreatedBy    string  `json:"created_by"    example:"alice"`
	CreatedAt    string  `json:"created_at"    example:"10-30-01-02-2024"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
} // @name ItemResponse

func toItemResponse(it *models.Item) ItemResponse {
	resp := ItemResponse{
		ID:          it.ID,
		Name:        it.Name,
		Details:     it.Details,
		Category:    it.Category.String(),
		Subcategory: it.Subcategory.String(),
		Latitude:    it.Location.Latitude,
		Longitude:   it.Location.Longitude,
		CreatedBy:   it.CreatedBy,
		CreatedAt:   it.CreatedAt,
	}
	if it.Thumbnail != nil {
		resp.ThumbnailURL = it.Thumbnail.String()
	}
	return resp
}

// RangeResponse is a half-open index range [start, end).
type RangeResponse struct {
	Start int `json:"start" example:"25"`
	End   int `json:"end"   example:"50"`
} // @name RangeResponse

func toRange(r *timeline.IndexRange) *RangeResponse {
	if r == nil {
		return nil
	}
	return &RangeResponse{Start: r.Start, End: r.End}
}

// PageResponse reports one paging or filtering step. A null range asks the
// client to reload everything.
type PageResponse struct {
	Status          string         `json:"status"           example:"loaded"`
	Range           *RangeResponse `json:"range"`
	Loaded          int            `json:"loaded"           example:"25"`
	Missing         int            `json:"missing"          example:"0"`
	Total           int            `json:"total"            example:"132"`
	Base            string         `json:"base,omitempty"   example:"radius"`
	Evaluated       int            `json:"evaluated,omitempty"`
	Partial         bool           `json:"partial"`
	ItemsCount      int            `json:"items_count"      example:"50"`
	ThumbnailsCount int            `json:"thumbnails_count" example:"20"`
} // @name PageResponse

// ItemsResponse is a window of the loaded timeline items.
type ItemsResponse struct {
	Items      []ItemResponse `json:"items"`
	Offset     int            `json:"offset"`
	ItemsCount int            `json:"items_count"`
	Total      int            `json:"total"`
} // @name ItemsResponse

// FiltersResponse describes the active filters.
type FiltersResponse struct {
	Mode        string `json:"mode"                  example:"category+search"`
	Text        string `json:"text,omitempty"        example:"wallet"`
	Category    string `json:"category,omitempty"    example:"found"`
	Subcategory string `json:"subcategory,omitempty" example:"accessories"`
	Owner       string `json:"owner,omitempty"`
} // @name FiltersResponse

func toFiltersResponse(s timeline.FilterSnapshot) FiltersResponse {
	return FiltersResponse{
		Mode:        s.Mode,
		Text:        s.Text,
		Category:    s.Category,
		Subcategory: s.Subcategory,
		Owner:       s.Owner,
	}
}

// AreaResponse echoes the effective search area.
type AreaResponse struct {
	Latitude  float64 `json:"latitude"  example:"40.4168"`
	Longitude float64 `json:"longitude" example:"-3.7038"`
	RadiusKm  float64 `json:"radius_km" example:"20"`
} // @name AreaResponse

// ImagesResponse lists download links for an item's images.
type ImagesResponse struct {
	ItemID string   `json:"item_id" example:"alice20240201103005"`
	URLs   []string `json:"urls"`
} // @name ImagesResponse
