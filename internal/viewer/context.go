package viewer

import (
	"context"
	"net/http"
)

// ContextKey is the type used for context keys.
type ContextKey string

// ContextKeyViewerID is the key for the viewer id in the request context.
const ContextKeyViewerID ContextKey = "viewerID"

// Anonymous is used when a request does not identify its viewer.
const Anonymous = "anonymous"

// WithID returns a copy of ctx carrying id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyViewerID, id)
}

// ID retrieves the viewer id from the request context.
func ID(r *http.Request) string {
	if id, ok := r.Context().Value(ContextKeyViewerID).(string); ok && id != "" {
		return id
	}
	return Anonymous
}
