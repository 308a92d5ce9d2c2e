package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"cinespot/internal/viewer"
)

const maxViewerIDLength = 128

// ViewerID is re-exported for handlers that only import api.
var ViewerID = viewer.ID

// ViewerMiddleware identifies the viewer of every request. The id comes from
// the X-Client-ID header, then the ?viewer= query param (websockets cannot
// set headers), and defaults to "anonymous".
func ViewerMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Always allow OPTIONS for CORS
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			id := extractViewerID(r)
			if !validViewerID(id) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid viewer id"})
				return
			}

			next.ServeHTTP(w, r.WithContext(viewer.WithID(r.Context(), id)))
		})
	}
}

// extractViewerID picks the viewer id from headers or query param.
// Priority: X-Client-ID header > ?viewer= query param > anonymous
func extractViewerID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Client-ID")); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.URL.Query().Get("viewer")); id != "" {
		return id
	}
	return viewer.Anonymous
}

func validViewerID(id string) bool {
	if id == "" || len(id) > maxViewerIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}
