package routing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

type fakeCatalogue struct {
	mu      sync.Mutex
	streams []domain.Stream
	err     error
	calls   atomic.Int64
}

func (c *fakeCatalogue) LoadEnabledStreams(ctx context.Context) ([]domain.Stream, error) {
	c.calls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.streams, nil
}

func (c *fakeCatalogue) set(streams []domain.Stream, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streams = streams
	c.err = err
}

func emptyEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngineBuilder(BuildOptions{}).Build(nil)
	require.NoError(t, err)
	return e
}

func TestEngineManager_ReloadSkipsUnchangedFingerprint(t *testing.T) {
	builder := NewEngineBuilder(BuildOptions{})
	mgr, err := NewEngineManager(emptyEngine(t), builder)
	require.NoError(t, err)

	streams := []domain.Stream{
		{ID: "s1", Enabled: true, Rules: []domain.StreamRule{rule("r1", "s1", domain.RulePresence, "level", "", false)}},
	}

	swapped, err := mgr.Reload(streams)
	require.NoError(t, err)
	assert.True(t, swapped)

	swapped, err = mgr.Reload(streams)
	require.NoError(t, err)
	assert.False(t, swapped, "identical catalogue snapshot must not trigger a swap")
	assert.Equal(t, 1, mgr.Stats().SkippedCount)
}

func TestEngineManager_RollbackRestoresPrevious(t *testing.T) {
	builder := NewEngineBuilder(BuildOptions{})
	initial := emptyEngine(t)
	mgr, err := NewEngineManager(initial, builder)
	require.NoError(t, err)

	streams := []domain.Stream{
		{ID: "s1", Enabled: true, Rules: []domain.StreamRule{rule("r1", "s1", domain.RulePresence, "level", "", false)}},
	}
	_, err = mgr.Reload(streams)
	require.NoError(t, err)
	assert.NotEqual(t, initial.Fingerprint(), mgr.Current().Fingerprint())

	require.NoError(t, mgr.Rollback())
	assert.Equal(t, initial.Fingerprint(), mgr.Current().Fingerprint())
}

func TestEngineManager_ReloadPublishesFingerprint(t *testing.T) {
	builder := NewEngineBuilder(BuildOptions{})
	cache, _ := setupTestFingerprintCache(t)
	mgr, err := NewEngineManager(emptyEngine(t), builder)
	require.NoError(t, err)
	mgr.WithFingerprintCache(cache)

	streams := []domain.Stream{
		{ID: "s1", Enabled: true, Rules: []domain.StreamRule{rule("r1", "s1", domain.RulePresence, "level", "", false)}},
	}
	_, err = mgr.Reload(streams)
	require.NoError(t, err)

	published, ok, err := cache.Current(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mgr.Current().Fingerprint(), published)
}

func TestUpdater_SkipsCatalogueWhenFingerprintUnchanged(t *testing.T) {
	builder := NewEngineBuilder(BuildOptions{})
	cache, _ := setupTestFingerprintCache(t)
	mgr, err := NewEngineManager(emptyEngine(t), builder)
	require.NoError(t, err)
	mgr.WithFingerprintCache(cache)

	require.NoError(t, cache.Publish(context.Background(), emptyEngine(t).Fingerprint()))

	cat := &fakeCatalogue{}
	updater := NewUpdater(cat, mgr, 5*time.Millisecond, nil).WithFingerprintCache(cache)
	updater.Start(context.Background())
	defer updater.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int64(0), cat.calls.Load(), "tick should have short-circuited before touching the catalogue")
}

func TestUpdater_QuarantinedStreamExcludedFromNextRebuild(t *testing.T) {
	builder := NewEngineBuilder(BuildOptions{})
	mgr, err := NewEngineManager(emptyEngine(t), builder)
	require.NoError(t, err)

	cat := &fakeCatalogue{}
	cat.set([]domain.Stream{
		{ID: "s1", Enabled: true, Rules: []domain.StreamRule{rule("r1", "s1", domain.RulePresence, "level", "", false)}},
		{ID: "s2", Enabled: true, Rules: []domain.StreamRule{rule("r2", "s2", domain.RulePresence, "level", "", false)}},
	}, nil)

	faults := NewFaultManager(1)
	updater := NewUpdater(cat, mgr, 5*time.Millisecond, nil).WithFaultManager(faults)
	updater.Start(context.Background())
	defer updater.Stop()

	require.Eventually(t, func() bool {
		return mgr.Current().RuleCount() == 2
	}, time.Second, time.Millisecond, "updater should pick up both catalogue streams")

	// Quarantine s1 the way Router.Route would: register enough failures
	// to cross the threshold. Quarantine must not remove s1 from the
	// engine currently in flight...
	faults.RegisterFailure("s1")
	current := mgr.Current()
	assert.Equal(t, 2, current.RuleCount(), "quarantine must never mutate the already-built engine")

	// ...it only takes effect on the next rebuild.
	require.Eventually(t, func() bool {
		return mgr.Current().RuleCount() == 1
	}, time.Second, time.Millisecond, "next rebuild should exclude the quarantined stream")
}

func TestUpdater_RetainsEngineOnCatalogueError(t *testing.T) {
	builder := NewEngineBuilder(BuildOptions{})
	mgr, err := NewEngineManager(emptyEngine(t), builder)
	require.NoError(t, err)

	cat := &fakeCatalogue{}
	cat.set([]domain.Stream{
		{ID: "s1", Enabled: true, Rules: []domain.StreamRule{rule("r1", "s1", domain.RulePresence, "level", "", false)}},
	}, nil)

	updater := NewUpdater(cat, mgr, 5*time.Millisecond, nil)
	updater.Start(context.Background())
	defer updater.Stop()

	require.Eventually(t, func() bool {
		return mgr.Current().RuleCount() == 1
	}, time.Second, time.Millisecond, "updater should pick up the catalogue's stream")

	before := mgr.Current()
	cat.set(nil, errors.New("catalogue unavailable"))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, before.Fingerprint(), mgr.Current().Fingerprint(), "engine must be retained on catalogue error")
}
