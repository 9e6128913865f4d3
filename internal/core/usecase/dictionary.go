package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/storyforge/narrative-search/internal/core/domain"
	"github.com/storyforge/narrative-search/internal/core/ports"
)

// DictionaryMetrics receives dictionary lifecycle observations.
type DictionaryMetrics interface {
	RecordRebuild(status string, duration time.Duration)
	RecordPersistFailure()
	SetSnapshot(state domain.DictionaryState, termCount int, builtAt time.Time)
}

type DictionaryOptions struct {
	// TTL is the staleness threshold after which a snapshot is rebuilt.
	TTL time.Duration
	// RebuildTimeout bounds one corpus scan; an exceeded build is abandoned
	// and the previous snapshot keeps serving.
	RebuildTimeout time.Duration
	Metrics        DictionaryMetrics
	Logger         *slog.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

const (
	defaultDictionaryTTL  = 24 * time.Hour
	defaultRebuildTimeout = 5 * time.Minute
	rebuildStatusSuccess  = "success"
	rebuildStatusError    = "error"
)

// DictionaryCache owns the current term-rarity snapshot: it decides when the
// snapshot is rebuilt from the corpus versus loaded from the persisted
// mirror, and serves lock-free lookups while rebuilds run in the background.
// Exactly one snapshot is authoritative for reads at any instant; a rebuild
// constructs a fresh snapshot and publishes it with a single atomic swap.
type DictionaryCache struct {
	aggregator     *FrequencyAggregator
	store          ports.SnapshotStore
	log            *slog.Logger
	metrics        DictionaryMetrics
	ttl            time.Duration
	rebuildTimeout time.Duration
	now            func() time.Time

	current atomic.Pointer[domain.Snapshot]

	mu         sync.Mutex
	state      domain.DictionaryState
	rebuilding bool
	loadTried  bool

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewDictionaryCache(aggregator *FrequencyAggregator, store ports.SnapshotStore, opts DictionaryOptions) *DictionaryCache {
	if opts.TTL <= 0 {
		opts.TTL = defaultDictionaryTTL
	}
	if opts.RebuildTimeout <= 0 {
		opts.RebuildTimeout = defaultRebuildTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	return &DictionaryCache{
		aggregator:     aggregator,
		store:          store,
		log:            opts.Logger,
		metrics:        opts.Metrics,
		ttl:            opts.TTL,
		rebuildTimeout: opts.RebuildTimeout,
		now:            opts.Now,
		state:          domain.StateUninitialized,
		baseCtx:        baseCtx,
		cancel:         cancel,
	}
}

// GetWeightClass is total: unknown terms, missing snapshots and degraded
// states all resolve to D. Lookups never block on a rebuild.
func (c *DictionaryCache) GetWeightClass(term string) domain.WeightClass {
	snap := c.current.Load()
	if snap == nil {
		c.maybeInit()
		return domain.ClassD
	}
	if c.now().Sub(snap.BuiltAt) > c.ttl {
		// Serve from the stale snapshot while a replacement builds.
		c.ForceRefresh()
	}
	return snap.Class(domain.NormalizeTerm(term))
}

// Ready reports whether a usable snapshot is published.
func (c *DictionaryCache) Ready() bool {
	return c.current.Load() != nil
}

// Warm performs the load path once: a fresh persisted snapshot is served
// directly, anything else falls through to a background rebuild. Never fatal.
func (c *DictionaryCache) Warm(ctx context.Context) {
	c.mu.Lock()
	if c.loadTried || c.rebuilding {
		c.mu.Unlock()
		return
	}
	c.loadTried = true
	c.state = domain.StateLoading
	c.mu.Unlock()

	snap, err := c.store.Load(ctx)
	switch {
	case err != nil:
		c.log.Warn("snapshot_load_failed",
			"error", domain.WrapError(domain.ErrSnapshotLoad, "warm dictionary", err))
		c.ForceRefresh()
	case snap == nil:
		c.log.Info("no_persisted_snapshot")
		c.ForceRefresh()
	case c.now().Sub(snap.BuiltAt) > c.ttl:
		// Stale but structurally sound: keep serving it while rebuilding.
		c.commit(snap)
		c.log.Info("stale_snapshot_loaded", "built_at", snap.BuiltAt, "terms", snap.TermCount())
		c.ForceRefresh()
	default:
		c.commit(snap)
		c.log.Info("snapshot_loaded", "built_at", snap.BuiltAt, "terms", snap.TermCount())
	}
}

// ForceRefresh starts a background rebuild regardless of staleness. Returns
// false when a rebuild is already in flight; concurrent calls collapse.
func (c *DictionaryCache) ForceRefresh() bool {
	if !c.beginRebuild() {
		return false
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancelRebuild := context.WithTimeout(c.baseCtx, c.rebuildTimeout)
		defer cancelRebuild()
		if err := c.rebuild(ctx); err != nil {
			c.log.Error("dictionary_rebuild_failed", "error", err)
		}
	}()
	return true
}

// Refresh runs a full rebuild synchronously, collapsing with any in-flight
// rebuild. Used by the worker on corpus-change events.
func (c *DictionaryCache) Refresh(ctx context.Context) error {
	if !c.beginRebuild() {
		return nil
	}
	ctx, cancelRebuild := context.WithTimeout(ctx, c.rebuildTimeout)
	defer cancelRebuild()
	return c.rebuild(ctx)
}

// Age reports the duration since the serving snapshot was built; zero when
// no snapshot is published.
func (c *DictionaryCache) Age() time.Duration {
	snap := c.current.Load()
	if snap == nil {
		return 0
	}
	return c.now().Sub(snap.BuiltAt)
}

func (c *DictionaryCache) State() domain.DictionaryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *DictionaryCache) Stats() domain.DictionaryStats {
	stats := domain.DictionaryStats{State: c.State()}
	if snap := c.current.Load(); snap != nil {
		stats.BuiltAt = snap.BuiltAt
		stats.Age = c.now().Sub(snap.BuiltAt)
		stats.TermCount = snap.TermCount()
		stats.TotalDocuments = snap.TotalDocuments
	}
	return stats
}

// Shutdown cancels background rebuilds and waits for them to finish.
func (c *DictionaryCache) Shutdown() {
	c.cancel()
	c.wg.Wait()
}

func (c *DictionaryCache) maybeInit() {
	c.mu.Lock()
	pending := !c.loadTried && !c.rebuilding
	c.mu.Unlock()
	if !pending {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancelWarm := context.WithTimeout(c.baseCtx, c.rebuildTimeout)
		defer cancelWarm()
		c.Warm(ctx)
	}()
}

func (c *DictionaryCache) beginRebuild() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rebuilding {
		return false
	}
	c.rebuilding = true
	c.loadTried = true
	c.state = domain.StateRebuilding
	return true
}

func (c *DictionaryCache) rebuild(ctx context.Context) error {
	start := time.Now()

	snap, err := c.build(ctx)
	duration := time.Since(start)

	if err != nil {
		c.mu.Lock()
		c.rebuilding = false
		if c.current.Load() == nil {
			c.state = domain.StateDegraded
		} else {
			// The previous snapshot keeps serving.
			c.state = domain.StateReady
		}
		state := c.state
		c.mu.Unlock()
		c.recordRebuild(rebuildStatusError, duration)
		c.observe(state)
		return err
	}

	c.current.Store(snap)
	c.mu.Lock()
	c.rebuilding = false
	c.state = domain.StateReady
	c.mu.Unlock()
	c.recordRebuild(rebuildStatusSuccess, duration)
	c.observe(domain.StateReady)
	c.log.Info("dictionary_rebuilt",
		"terms", snap.TermCount(),
		"documents", snap.TotalDocuments,
		"duration_ms", float64(duration.Microseconds())/1000.0,
	)

	if err := c.store.Save(ctx, snap); err != nil {
		// The in-memory dictionary stays authoritative even when its disk
		// mirror cannot be written.
		c.recordPersistFailure()
		c.log.Error("snapshot_persist_failed",
			"error", domain.WrapError(domain.ErrSnapshotPersist, "persist snapshot", err))
	}
	return nil
}

func (c *DictionaryCache) build(ctx context.Context) (*domain.Snapshot, error) {
	counts, total, err := c.aggregator.Aggregate(ctx)
	if err != nil {
		return nil, err
	}
	idf, err := ComputeIDF(counts, total)
	if err != nil {
		return nil, err
	}
	return &domain.Snapshot{
		BuiltAt:        c.now().UTC(),
		TotalDocuments: total,
		IDF:            idf,
	}, nil
}

func (c *DictionaryCache) commit(snap *domain.Snapshot) {
	c.current.Store(snap)
	c.mu.Lock()
	c.state = domain.StateReady
	c.mu.Unlock()
	c.observe(domain.StateReady)
}

func (c *DictionaryCache) observe(state domain.DictionaryState) {
	if c.metrics == nil {
		return
	}
	snap := c.current.Load()
	if snap == nil {
		c.metrics.SetSnapshot(state, 0, time.Time{})
		return
	}
	c.metrics.SetSnapshot(state, snap.TermCount(), snap.BuiltAt)
}

func (c *DictionaryCache) recordRebuild(status string, duration time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordRebuild(status, duration)
	}
}

func (c *DictionaryCache) recordPersistFailure() {
	if c.metrics != nil {
		c.metrics.RecordPersistFailure()
	}
}
