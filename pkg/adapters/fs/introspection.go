package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// BackendState exposes internal state for observability.
type BackendState struct {
	Path          string     `json:"path"`
	File          string     `json:"file"`
	Format        string     `json:"format"`
	Versioning    bool       `json:"versioning"`
	ReadOnly      bool       `json:"read_only"`
	WatcherActive bool       `json:"watcher_active"`
	LastWrite     *time.Time `json:"last_write,omitempty"`
	LastReconcile *time.Time `json:"last_reconcile,omitempty"`
	CacheHits     uint64     `json:"cache_hits"`
	CacheMisses   uint64     `json:"cache_misses"`
}

// State implements introspection.Introspectable.
func (b *Backend) State() any {
	file := b.Filename()
	hits, misses := b.cache.Stats()

	b.mu.RLock()
	defer b.mu.RUnlock()

	return BackendState{
		Path:          b.Path,
		File:          file,
		Format:        b.config.Format,
		Versioning:    b.config.Versioning,
		ReadOnly:      b.config.ReadOnly,
		WatcherActive: b.watcherActive,
		LastWrite:     b.lastWrite,
		LastReconcile: b.lastReconcile,
		CacheHits:     hits,
		CacheMisses:   misses,
	}
}

// ComponentType implements introspection.Component.
func (b *Backend) ComponentType() string {
	return "fs"
}

var _ introspection.Introspectable = (*Backend)(nil)
var _ introspection.Component = (*Backend)(nil)

func (b *Backend) setWatcherActive(active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.watcherActive = active
}

// recordReconcile marks the time an external change was last reported.
func (b *Backend) recordReconcile() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	b.lastReconcile = &now
}
