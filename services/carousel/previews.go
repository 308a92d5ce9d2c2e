package carousel

import (
	"sync"

	"cinespot/models"
)

type previewEntry struct {
	resolved bool
	key      string
}

// TrailerKeyMap caches preview keys per item for the lifetime of one carousel
// mount. An identifier is claimed once, resolved at most once, and never
// re-queried until the map is reset.
type TrailerKeyMap struct {
	mu      sync.RWMutex
	entries map[int64]previewEntry
}

func NewTrailerKeyMap() *TrailerKeyMap {
	return &TrailerKeyMap{entries: make(map[int64]previewEntry)}
}

// Lookup reports the key for id and whether it is pending, none or available.
func (m *TrailerKeyMap) Lookup(id int64) (string, models.PreviewStatus) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	switch {
	case !ok || !e.resolved:
		return "", models.PreviewPending
	case e.key == "":
		return "", models.PreviewNone
	default:
		return e.key, models.PreviewAvailable
	}
}

// Len returns the number of claimed identifiers.
func (m *TrailerKeyMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// claim marks id as requested. It returns false when id was already claimed.
func (m *TrailerKeyMap) claim(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; ok {
		return false
	}
	m.entries[id] = previewEntry{}
	return true
}

// resolve records the outcome for a claimed id. An empty key means no preview.
func (m *TrailerKeyMap) resolve(id int64, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.resolved {
		return false
	}
	m.entries[id] = previewEntry{resolved: true, key: key}
	return true
}

func (m *TrailerKeyMap) reset() {
	m.mu.Lock()
	m.entries = make(map[int64]previewEntry)
	m.mu.Unlock()
}
