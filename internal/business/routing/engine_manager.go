package routing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

// Catalogue is the read side the Engine Updater needs from stream
// storage: every enabled stream with its rules attached, in stable
// insertion order. Concrete adapters (in-memory, Postgres) live in
// internal/business/catalogue; this interface is defined here,
// consumer-side, so routing never imports a storage package.
type Catalogue interface {
	LoadEnabledStreams(ctx context.Context) ([]domain.Stream, error)
}

// EngineManager manages hot reload of Compiled Engines with zero
// downtime. Grounded on the teacher's RouteTreeManager (tree_manager.go):
// atomic.Value for lock-free reads, a mutex serializing writes, a
// backup-and-rollback pair, and reload statistics — generalized from
// config-driven route trees to catalogue-driven engines.
type EngineManager struct {
	current atomic.Value // *Engine

	mu     sync.Mutex
	backup *Engine
	stats  ManagerStats

	builder      *EngineBuilder
	fingerprints *FingerprintCache
}

// ManagerStats tracks EngineManager reload history.
type ManagerStats struct {
	ReloadCount       int
	SkippedCount      int // fingerprint unchanged, swap skipped
	RollbackCount     int
	FailedReloadCount int
	LastReloadError   string
}

// NewEngineManager creates a manager holding the given initial engine.
// The engine must not be nil; build an empty Engine via
// EngineBuilder.Build(nil) if no streams exist yet.
func NewEngineManager(initial *Engine, builder *EngineBuilder) (*EngineManager, error) {
	if initial == nil {
		return nil, fmt.Errorf("initial engine cannot be nil")
	}
	m := &EngineManager{builder: builder}
	m.current.Store(initial)
	slog.Info("engine manager initialized",
		"rules", initial.RuleCount(),
		"fingerprint", initial.Fingerprint())
	return m, nil
}

// WithFingerprintCache attaches a FingerprintCache that Reload publishes
// to after every swap (§4.3.2). Returns the receiver for chaining at
// construction time.
func (m *EngineManager) WithFingerprintCache(cache *FingerprintCache) *EngineManager {
	m.fingerprints = cache
	return m
}

// Current returns the active Engine. Lock-free (atomic.Value.Load), safe
// for unlimited concurrent callers — this is the Router's per-message
// read path.
func (m *EngineManager) Current() *Engine {
	return m.current.Load().(*Engine)
}

// Reload builds a new Engine from streams and, if its fingerprint
// differs from the current engine's, atomically swaps it in (spec.md
// §4.3's optimisation hook). Returns false, nil when the swap was
// skipped because nothing changed.
func (m *EngineManager) Reload(streams []domain.Stream) (swapped bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.Current()
	next, err := m.builder.Build(streams)
	if err != nil {
		m.stats.FailedReloadCount++
		m.stats.LastReloadError = err.Error()
		slog.Error("engine build failed", "error", err)
		return false, fmt.Errorf("build failed: %w", err)
	}

	if next.Fingerprint() == current.Fingerprint() {
		m.stats.SkippedCount++
		return false, nil
	}

	m.backup = current
	m.current.Store(next)
	m.stats.ReloadCount++
	m.stats.LastReloadError = ""

	slog.Info("engine reloaded",
		"rules", next.RuleCount(),
		"fingerprint", next.Fingerprint(),
		"reload_count", m.stats.ReloadCount)

	if m.fingerprints != nil {
		if err := m.fingerprints.Publish(context.Background(), next.Fingerprint()); err != nil {
			slog.Warn("failed to publish engine fingerprint", "error", err)
		}
	}
	return true, nil
}

// Rollback reverts to the backed-up engine from the last successful
// Reload.
func (m *EngineManager) Rollback() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backup == nil {
		return fmt.Errorf("no backup engine available for rollback")
	}
	m.current.Store(m.backup)
	m.stats.RollbackCount++
	slog.Warn("engine rolled back to backup", "rollback_count", m.stats.RollbackCount)
	return nil
}

// Stats returns a copy of current reload statistics.
func (m *EngineManager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Updater periodically reloads the Compiled Engine from a Catalogue on a
// fixed tick, tolerating catalogue errors by logging and retaining the
// current engine (spec.md §4.3). Grounded on the teacher's
// DefaultTimerManager (timer_manager_impl.go) for its ctx/cancel/
// WaitGroup background-loop shape, composed with EngineManager's
// RouteTreeManager-style atomic swap.
type Updater struct {
	catalogue    Catalogue
	manager      *EngineManager
	period       time.Duration
	logger       *slog.Logger
	fingerprints *FingerprintCache
	faults       *FaultManager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// DefaultEngineRebuildPeriod is spec.md §4.3's default rebuild period.
const DefaultEngineRebuildPeriod = time.Second

// NewUpdater creates an Updater. period <= 0 falls back to
// DefaultEngineRebuildPeriod.
func NewUpdater(catalogue Catalogue, manager *EngineManager, period time.Duration, logger *slog.Logger) *Updater {
	if period <= 0 {
		period = DefaultEngineRebuildPeriod
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{catalogue: catalogue, manager: manager, period: period, logger: logger}
}

// WithFingerprintCache attaches a FingerprintCache the Updater consults
// before each catalogue load: if the published fingerprint already
// matches the currently running engine's, the tick skips the catalogue
// round trip entirely (§4.3.2's cross-replica short-circuit).
func (u *Updater) WithFingerprintCache(cache *FingerprintCache) *Updater {
	u.fingerprints = cache
	return u
}

// WithFaultManager attaches the FaultManager whose quarantined streams
// are excluded from every catalogue snapshot before it is built into an
// Engine (spec.md §4.5/§8: quarantine takes effect only via the next
// engine rebuild, never by filtering an in-flight evaluation).
func (u *Updater) WithFaultManager(faults *FaultManager) *Updater {
	u.faults = faults
	return u
}

// Start launches the background rebuild loop. Safe to call once; a
// second call before Stop is a no-op.
func (u *Updater) Start(ctx context.Context) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.running {
		return
	}
	u.ctx, u.cancel = context.WithCancel(ctx)
	u.running = true

	u.wg.Add(1)
	go u.loop()
}

// Stop cancels the background loop and waits for it to exit.
func (u *Updater) Stop() {
	u.mu.Lock()
	if !u.running {
		u.mu.Unlock()
		return
	}
	u.running = false
	cancel := u.cancel
	u.mu.Unlock()

	cancel()
	u.wg.Wait()
}

func (u *Updater) loop() {
	defer u.wg.Done()
	ticker := time.NewTicker(u.period)
	defer ticker.Stop()

	for {
		select {
		case <-u.ctx.Done():
			return
		case <-ticker.C:
			u.tick()
		}
	}
}

func (u *Updater) tick() {
	if u.fingerprints != nil {
		published, ok, err := u.fingerprints.Current(u.ctx)
		if err != nil {
			u.logger.Warn("fingerprint cache read failed, falling back to catalogue load", "error", err)
		} else if ok && published == u.manager.Current().Fingerprint() {
			return
		}
	}

	streams, err := u.catalogue.LoadEnabledStreams(u.ctx)
	if err != nil {
		u.logger.Error("catalogue load failed, retaining current engine",
			"error", (&ErrCatalogueUnavailable{Err: err}).Error())
		return
	}

	if u.faults != nil {
		streams = u.faults.FilterEnabled(streams)
	}

	swapped, err := u.manager.Reload(streams)
	if err != nil {
		u.logger.Error("engine rebuild failed, retaining current engine", "error", err)
		return
	}
	if swapped {
		u.logger.Info("engine swapped in", "streams", len(streams))
	}
}
