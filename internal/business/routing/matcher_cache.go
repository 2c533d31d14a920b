package routing

import (
	"regexp"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RegexCache caches compiled regex patterns for reuse across engine
// rebuilds. Grounded on the teacher's hand-rolled regex cache, adapted to
// use github.com/hashicorp/golang-lru/v2 the way the rest of the pack
// caches compiled/derived values (internal/infrastructure/template.cache.go),
// rather than re-implementing LRU bookkeeping by hand.
//
// Thread Safety: golang-lru/v2's Cache is internally mutex-protected and
// safe for concurrent use.
type RegexCache struct {
	cache *lru.Cache[string, *regexp.Regexp]
	hits  atomic.Uint64
	misses atomic.Uint64
}

// CacheStats reports regex cache hit/miss/size counters.
type CacheStats struct {
	Hits   uint64
	Misses uint64
	Size   int
}

// NewRegexCache creates a regex cache bounded at maxSize entries (LRU
// eviction beyond that). maxSize <= 0 falls back to a sensible default.
func NewRegexCache(maxSize int) *RegexCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	c, _ := lru.New[string, *regexp.Regexp](maxSize)
	return &RegexCache{cache: c}
}

// Get retrieves a compiled regex by pattern, recording a hit or miss.
func (c *RegexCache) Get(pattern string) (*regexp.Regexp, bool) {
	re, ok := c.cache.Get(pattern)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return re, ok
}

// Put inserts a compiled regex, evicting the least recently used entry if
// the cache is full.
func (c *RegexCache) Put(pattern string, re *regexp.Regexp) {
	c.cache.Add(pattern, re)
}

// Preload bulk-inserts already-compiled patterns, e.g. from a freshly
// built Engine, so the cache starts warm instead of cold.
func (c *RegexCache) Preload(patterns map[string]*regexp.Regexp) {
	for pattern, re := range patterns {
		c.cache.Add(pattern, re)
	}
}

// Stats returns a snapshot of cache hit/miss/size counters.
func (c *RegexCache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.cache.Len(),
	}
}

// Clear empties the cache and resets counters. Used by tests.
func (c *RegexCache) Clear() {
	c.cache.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
}
