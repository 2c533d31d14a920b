package routing

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegexCache_HitsAndMisses(t *testing.T) {
	c := NewRegexCache(2)

	_, ok := c.Get("a.*")
	assert.False(t, ok)

	c.Put("a.*", regexp.MustCompile("a.*"))
	_, ok = c.Get("a.*")
	assert.True(t, ok)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestRegexCache_EvictsLRU(t *testing.T) {
	c := NewRegexCache(1)
	c.Put("a", regexp.MustCompile("a"))
	c.Put("b", regexp.MustCompile("b"))

	_, ok := c.Get("a")
	assert.False(t, ok, "a should have been evicted once the cache exceeded its bound")
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestRegexCache_Clear(t *testing.T) {
	c := NewRegexCache(4)
	c.Put("a", regexp.MustCompile("a"))
	c.Clear()

	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(0), stats.Misses)
}
