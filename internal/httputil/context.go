package httputil

import (
	"context"
	"net/http"
)

// contextKey is unexported so nothing outside this package can collide
// with values stashed on request contexts.
type contextKey string

const userIDKey contextKey = "userID"

// WithUserID returns a copy of the request whose context carries the
// authenticated user's ID. Set once by the auth middleware.
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
}

// GetUserID returns the authenticated user ID, or "" for a request that
// never went through the auth middleware.
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}
