package auth

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/gorilla/sessions"

	"github.com/ghuser/lostfound/pkg/httpx"
	"github.com/ghuser/lostfound/pkg/logger"
)

const (
	sessionName          = "lostfound_session"
	sessionUserIDKey     = "user_id"
	sessionTimelineIDKey = "timeline_id"

	maxUserIDLength = 128
)

// RequireAuth is a chi middleware that enforces authentication via session cookies.
// It reads the session cookie, extracts the user ID and the optional timeline ID,
// and injects them into the request context.
// Returns 401 Unauthorized if the session is missing, invalid, or lacks a valid user_id.
//
// After this middleware, handlers can safely call auth.UserIDFromCtx(r.Context()).
func RequireAuth(store sessions.Store, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Get(r, sessionName)
			if err != nil {
				log.WarnContext(r.Context(), "invalid session cookie", "error", err)
				httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			userID, ok := session.Values[sessionUserIDKey].(string)
			if !ok || userID == "" {
				log.WarnContext(r.Context(), "session missing user_id")
				httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			if !ValidUserID(userID) {
				log.WarnContext(r.Context(), "invalid user_id in session", "user_id", userID)
				httpx.JSONError(w, http.StatusUnauthorized, "invalid session data")
				return
			}

			ctx := WithUserID(r.Context(), userID)
			if tl, ok := session.Values[sessionTimelineIDKey].(string); ok && tl != "" {
				ctx = WithTimelineID(ctx, tl)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SignIn binds userID to the session cookie, replacing any previous user.
// It unbinds the old session's timeline and returns its id ("" when none) so
// the caller can release it.
func SignIn(store sessions.Store, w http.ResponseWriter, r *http.Request, userID string) (string, error) {
	session, err := store.Get(r, sessionName)
	if err != nil {
		return "", err
	}
	previous, _ := session.Values[sessionTimelineIDKey].(string)
	session.Values[sessionUserIDKey] = userID
	delete(session.Values, sessionTimelineIDKey)
	return previous, session.Save(r, w)
}

// BindTimeline stores the timeline ID in the session cookie so later requests
// reach the same timeline.
func BindTimeline(store sessions.Store, w http.ResponseWriter, r *http.Request, timelineID string) error {
	session, err := store.Get(r, sessionName)
	if err != nil {
		return err
	}
	session.Values[sessionTimelineIDKey] = timelineID
	return session.Save(r, w)
}

// ValidUserID reports whether id is usable as an owner key: non-empty, at
// most 128 characters, letters, digits, '-' and '_' only.
func ValidUserID(id string) bool {
	if id == "" || len(id) > maxUserIDLength {
		return false
	}
	return strings.IndexFunc(id, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
	}) < 0
}

// SignOut expires the session cookie and deletes the server-side session.
// Like SignIn it returns the timeline id the session was bound to.
func SignOut(store sessions.Store, w http.ResponseWriter, r *http.Request) (string, error) {
	session, err := store.Get(r, sessionName)
	if err != nil {
		return "", err
	}
	timelineID, _ := session.Values[sessionTimelineIDKey].(string)
	session.Options.MaxAge = -1
	return timelineID, session.Save(r, w)
}
