package fs

import (
	"os"
	"slices"
	"sync"
	"time"
)

// cacheEntry is a parsed document together with the file stamp it was read at.
type cacheEntry struct {
	doc          *Document
	lastModified time.Time
	size         int64
}

// cache keeps the last parsed board document so reads of an unchanged file
// skip parsing. An entry is fresh only while the file's mtime and size match.
type cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry // key is the document name, e.g. "board.yaml"
	hits    uint64
	misses  uint64
}

func newCache() *cache {
	return &cache{entries: make(map[string]*cacheEntry)}
}

// Get returns a copy of the cached document when info still matches it.
func (c *cache) Get(name string, info os.FileInfo) (*Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[name]
	if !ok || !entry.lastModified.Equal(info.ModTime()) || entry.size != info.Size() {
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.doc.clone(), true
}

// Set stores a copy of doc for the file described by info.
func (c *cache) Set(name string, info os.FileInfo, doc *Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[name] = &cacheEntry{
		doc:          doc.clone(),
		lastModified: info.ModTime(),
		size:         info.Size(),
	}
}

// Delete drops the entry for name.
func (c *cache) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

// Stats returns the hit and miss counters.
func (c *cache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Len returns the number of entries in the cache.
func (c *cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (d *Document) clone() *Document {
	return &Document{
		Columns: slices.Clone(d.Columns),
		Notes:   slices.Clone(d.Notes),
	}
}
