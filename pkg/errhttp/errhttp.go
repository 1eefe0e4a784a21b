// Package errhttp maps domain sentinel errors to HTTP status codes.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"context"
	"errors"
	"net/http"

	"github.com/ghuser/lostfound/pkg/httpx"
	"github.com/ghuser/lostfound/pkg/telemetry"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
)

// WriteError maps err to an HTTP status code and writes a JSON error response.
// Uses errors.Is() so wrapped sentinel errors are matched correctly.
// Unrecognized errors become a 500 with a generic body and are reported to
// Sentry with the route that produced them.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToStatus(err)
	if status != http.StatusInternalServerError {
		httpx.JSONError(w, status, err.Error())
		return
	}
	telemetry.CaptureError(r.Context(), err, map[string]string{"route": r.Method + " " + r.URL.Path})
	httpx.JSONError(w, status, http.StatusText(status))
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, itemdomain.ErrItemNotFound),
		errors.Is(err, itemdomain.ErrBlobNotFound),
		errors.Is(err, itemdomain.ErrLocationNotFound),
		errors.Is(err, itemdomain.ErrTimelineNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, itemdomain.ErrItemAlreadyExists):
		return http.StatusConflict // 409
	case errors.Is(err, itemdomain.ErrInvalidItem),
		errors.Is(err, itemdomain.ErrInvalidCategory):
		return http.StatusUnprocessableEntity // 422
	case errors.Is(err, itemdomain.ErrInvalidFilter),
		errors.Is(err, itemdomain.ErrNoSearchArea):
		return http.StatusBadRequest // 400
	case errors.Is(err, itemdomain.ErrBatchTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
