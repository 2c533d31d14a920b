package catalogue

import (
	"context"
	"sync"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

// MemoryCatalogue is an in-memory Catalogue backing tests and the CLI's
// --dev mode. It holds the full set of streams it was given and filters
// down to the enabled ones on each load, the same contract a database
// adapter provides.
type MemoryCatalogue struct {
	mu      sync.RWMutex
	streams map[string]domain.Stream
	order   []string
}

// NewMemoryCatalogue builds a MemoryCatalogue seeded with the given
// streams. Later Put/Delete calls mutate the set in place.
func NewMemoryCatalogue(seed []domain.Stream) *MemoryCatalogue {
	c := &MemoryCatalogue{streams: make(map[string]domain.Stream, len(seed))}
	for _, s := range seed {
		c.putLocked(s)
	}
	return c
}

// LoadEnabledStreams implements routing.Catalogue. It never returns an
// error; the in-memory adapter has no failure mode of its own.
func (c *MemoryCatalogue) LoadEnabledStreams(_ context.Context) ([]domain.Stream, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Stream, 0, len(c.order))
	for _, id := range c.order {
		if s, ok := c.streams[id]; ok && s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

// Put inserts or replaces a stream, preserving its original position in
// iteration order on update.
func (c *MemoryCatalogue) Put(s domain.Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(s)
}

func (c *MemoryCatalogue) putLocked(s domain.Stream) {
	if _, exists := c.streams[s.ID]; !exists {
		c.order = append(c.order, s.ID)
	}
	c.streams[s.ID] = s
}

// Delete removes a stream. It is a no-op if the id is unknown.
func (c *MemoryCatalogue) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.streams[id]; !ok {
		return
	}
	delete(c.streams, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Get returns a single stream regardless of its enabled/paused state, for
// admin-surface lookups.
func (c *MemoryCatalogue) Get(id string) (domain.Stream, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.streams[id]
	if !ok {
		return domain.Stream{}, ErrStreamNotFound
	}
	return s, nil
}

// All returns every stream the catalogue holds, enabled or not, in
// insertion order.
func (c *MemoryCatalogue) All() []domain.Stream {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Stream, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.streams[id])
	}
	return out
}
