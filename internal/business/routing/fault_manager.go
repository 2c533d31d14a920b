package routing

import (
	"sync"
	"sync/atomic"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

// DefaultMaxFaultCount is spec.md §4.5's default quarantine threshold.
const DefaultMaxFaultCount = 3

// FaultManager implements spec.md §4.5: for each stream id, an atomic
// fault counter. Crossing maxFaultCount quarantines the stream so the
// next Engine Updater rebuild omits it; the manager never removes a
// stream mid-evaluation, preserving §4.3's atomic-swap guarantee.
// Grounded on the teacher's resilience.RetryPolicy (retry.go) for the
// "count failures, trip past a threshold" shape, adapted from a
// single-call retry loop to a long-lived per-key counter.
type FaultManager struct {
	maxFaultCount int64

	mu       sync.RWMutex
	counters map[string]*atomic.Int64
	quarantined map[string]bool
}

// NewFaultManager creates a manager with the given quarantine threshold.
// maxFaultCount <= 0 falls back to DefaultMaxFaultCount.
func NewFaultManager(maxFaultCount int) *FaultManager {
	if maxFaultCount <= 0 {
		maxFaultCount = DefaultMaxFaultCount
	}
	return &FaultManager{
		maxFaultCount: int64(maxFaultCount),
		counters:      make(map[string]*atomic.Int64),
		quarantined:   make(map[string]bool),
	}
}

func (f *FaultManager) counterFor(streamID string) *atomic.Int64 {
	f.mu.RLock()
	c, ok := f.counters[streamID]
	f.mu.RUnlock()
	if ok {
		return c
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.counters[streamID]; ok {
		return c
	}
	c = &atomic.Int64{}
	f.counters[streamID] = c
	return c
}

// RegisterFailure records one evaluation fault (timeout, matcher panic,
// regex runtime error) for streamID. Once the counter crosses
// maxFaultCount, the stream is marked quarantined.
func (f *FaultManager) RegisterFailure(streamID string) {
	count := f.counterFor(streamID).Add(1)
	if count < f.maxFaultCount {
		return
	}
	f.mu.Lock()
	f.quarantined[streamID] = true
	f.mu.Unlock()
}

// IsQuarantined reports whether streamID is currently quarantined.
func (f *FaultManager) IsQuarantined(streamID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.quarantined[streamID]
}

// Quarantined returns every currently quarantined stream id.
func (f *FaultManager) Quarantined() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]string, 0, len(f.quarantined))
	for id := range f.quarantined {
		ids = append(ids, id)
	}
	return ids
}

// Clear administratively lifts streamID's quarantine and resets its
// fault counter, per spec.md §4.5 ("counters reset when the quarantine
// is cleared administratively").
func (f *FaultManager) Clear(streamID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.quarantined, streamID)
	if c, ok := f.counters[streamID]; ok {
		c.Store(0)
	}
}

// FilterEnabled returns streams minus any currently quarantined ones,
// for the Updater to exclude from the next engine build.
func (f *FaultManager) FilterEnabled(streams []domain.Stream) []domain.Stream {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.quarantined) == 0 {
		return streams
	}
	out := make([]domain.Stream, 0, len(streams))
	for _, s := range streams {
		if !f.quarantined[s.ID] {
			out = append(out, s)
		}
	}
	return out
}
