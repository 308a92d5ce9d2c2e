package handlers

import (
	"net/http"
	"os"
	"strings"
	"sync"
)

// version may be injected with -ldflags "-X cinespot/handlers.version=...".
// Otherwise it is read once from version.txt.
var (
	version     string
	versionOnce sync.Once
)

type VersionHandler struct{}

type VersionResponse struct {
	Version string `json:"version"`
}

func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

// GetBackendVersion returns the build version, "unknown" when none is known.
func GetBackendVersion() string {
	versionOnce.Do(func() {
		if version != "" {
			return
		}
		for _, path := range []string{"version.txt", "/app/version.txt"} {
			data, err := os.ReadFile(path)
			if err == nil && strings.TrimSpace(string(data)) != "" {
				version = strings.TrimSpace(string(data))
				return
			}
		}
		version = "unknown"
	})
	return version
}

func (h *VersionHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: GetBackendVersion()})
}
