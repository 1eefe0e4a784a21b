package handlers

import (
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/ghuser/lostfound/pkg/auth"
	"github.com/ghuser/lostfound/pkg/httpx"
	"github.com/ghuser/lostfound/pkg/logger"
	pkgvalidator "github.com/ghuser/lostfound/pkg/validator"
)

// SignInRequest is the request body for POST /session.
type SignInRequest struct {
	UserID string `json:"user_id" validate:"required,max=128" example:"alice"`
} // @name SignInRequest

// SessionResponse reports the signed-in user.
type SessionResponse struct {
	UserID string `json:"user_id" example:"alice"`
} // @name SessionResponse

// TimelineReleaser frees the timeline a session no longer points at.
type TimelineReleaser interface {
	Drop(id string)
}

// SessionHandler serves /session. Identity comes from the caller as-is; it is
// only mounted outside production.
type SessionHandler struct {
	sessions  sessions.Store
	timelines TimelineReleaser
	log       logger.Logger
}

// NewSessionHandler returns a SessionHandler.
func NewSessionHandler(store sessions.Store, timelines TimelineReleaser, log logger.Logger) *SessionHandler {
	return &SessionHandler{sessions: store, timelines: timelines, log: log}
}

func (h *SessionHandler) release(timelineID string) {
	if timelineID != "" {
		h.timelines.Drop(timelineID)
	}
}

// SignIn binds a user id to the session cookie.
//
//	@Summary		Sign in
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SignInRequest	true	"User"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/session [post]
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[SignInRequest](w, r)
	if !ok {
		return
	}
	if !auth.ValidUserID(req.UserID) {
		httpx.JSONError(w, http.StatusBadRequest, "user_id may only contain letters, digits, '-' and '_'")
		return
	}
	previous, err := auth.SignIn(h.sessions, w, r, req.UserID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "sign in", "user_id", req.UserID, "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	h.release(previous)
	httpx.JSON(w, http.StatusOK, SessionResponse{UserID: req.UserID})
}

// SignOut ends the session.
//
//	@Summary	Sign out
//	@Tags		session
//	@Success	204
//	@Router		/session [delete]
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	timelineID, err := auth.SignOut(h.sessions, w, r)
	if err != nil {
		h.log.WarnContext(r.Context(), "sign out", "error", err)
	}
	h.release(timelineID)
	w.WriteHeader(http.StatusNoContent)
}
