package auth

import (
	"context"
	"errors"
)

// contextKey is an unexported type to prevent key collisions in context.
type contextKey string

const (
	userIDKey     contextKey = "user_id"
	timelineIDKey contextKey = "timeline_id"
)

// ErrUserIDNotFound is returned when no user ID exists in the request context.
// Handlers should return 401 when this error occurs.
var ErrUserIDNotFound = errors.New("user_id not found in context")

// UserIDFromCtx extracts the authenticated user ID from the request context.
// Returns "" and ErrUserIDNotFound if no user is set (unauthenticated request).
func UserIDFromCtx(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", ErrUserIDNotFound
	}
	return userID, nil
}

// WithUserID returns a new context with the given user ID attached.
// Used by authentication middleware after validating the session.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// TimelineIDFromCtx returns the timeline bound to the session, or "" when the
// session has none yet.
func TimelineIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(timelineIDKey).(string)
	return id
}

// WithTimelineID attaches the session's timeline ID to ctx.
func WithTimelineID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, timelineIDKey, id)
}
