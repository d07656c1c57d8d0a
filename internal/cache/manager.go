package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sumandas0/farmstore/internal/catalog"
	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/store"
	"golang.org/x/sync/singleflight"
)

// Snapshot is an immutable view of one collection at a store version. The
// query engine reads Records; Documents are kept for admin lookups.
type Snapshot struct {
	Collection string
	Version    int64
	Documents  []*models.Document
	Records    []catalog.Record
	LoadedAt   time.Time
}

const snapshotLoadTimeout = 30 * time.Second

// Manager provides thread-safe caching of collection snapshots
type Manager struct {
	snapshots sync.Map // collection -> *cacheEntry

	snapshotTTL time.Duration
	// verifyVersion makes every hit compare the cached version with the
	// store's, so writes from other processes are seen before the TTL ends.
	verifyVersion bool

	store  store.DocumentStore
	group  singleflight.Group
	onLoad func(collection string)

	// generations counts invalidations per collection. A load only
	// publishes its snapshot if no invalidation happened while it ran.
	generations map[string]uint64

	// Statistics
	hits   uint64
	misses uint64
	loads  uint64
	mu     sync.RWMutex
}

type Option func(*Manager)

func WithVersionCheck(enabled bool) Option {
	return func(m *Manager) {
		m.verifyVersion = enabled
	}
}

// WithLoadHook registers fn to run after every snapshot load from the store.
func WithLoadHook(fn func(collection string)) Option {
	return func(m *Manager) {
		m.onLoad = fn
	}
}

// NewManager creates a new cache manager
func NewManager(st store.DocumentStore, snapshotTTL time.Duration, opts ...Option) *Manager {
	if snapshotTTL <= 0 {
		snapshotTTL = 5 * time.Minute
	}

	m := &Manager{
		store:       st,
		snapshotTTL: snapshotTTL,
		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type cacheEntry struct {
	value      *Snapshot
	expiration time.Time
}

func (e *cacheEntry) isExpired() bool {
	return time.Now().After(e.expiration)
}

// GetSnapshot returns the cached snapshot of a collection, loading it from
// the store when absent, expired or outdated. Concurrent misses for the same
// collection share one load.
func (m *Manager) GetSnapshot(ctx context.Context, collection string) (*Snapshot, error) {
	if cached, ok := m.snapshots.Load(collection); ok {
		entry := cached.(*cacheEntry)
		if !entry.isExpired() && m.fresh(ctx, entry.value) {
			m.recordHit()
			return entry.value, nil
		}
		m.snapshots.CompareAndDelete(collection, cached)
	}

	m.recordMiss()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The shared load outlives any single caller: a cancelled request must
	// not fail the others waiting on the same collection.
	ch := m.group.DoChan(collection, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotLoadTimeout)
		defer cancel()

		gen := m.generation(collection)
		snap, err := m.load(loadCtx, collection)
		if err != nil {
			return nil, err
		}
		if m.generation(collection) == gen {
			m.SetSnapshot(snap)
		}
		return snap, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) fresh(ctx context.Context, snap *Snapshot) bool {
	if !m.verifyVersion {
		return true
	}
	v, err := m.store.CollectionVersion(ctx, snap.Collection)
	if err != nil {
		// Serve the cached copy; the load path reports store failures.
		return true
	}
	return v == snap.Version
}

func (m *Manager) load(ctx context.Context, collection string) (*Snapshot, error) {
	def, ok := models.LookupCollection(collection)
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}

	// Read the version first so a concurrent write can only make the
	// snapshot look older than it is, never newer.
	version, err := m.store.CollectionVersion(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection version: %w", err)
	}
	docs, err := m.store.ListDocuments(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", collection, err)
	}

	m.mu.Lock()
	m.loads++
	m.mu.Unlock()
	if m.onLoad != nil {
		m.onLoad(collection)
	}

	return &Snapshot{
		Collection: collection,
		Version:    version,
		Documents:  docs,
		Records:    def.Records(docs),
		LoadedAt:   time.Now(),
	}, nil
}

// SetSnapshot adds or replaces a snapshot in the cache
func (m *Manager) SetSnapshot(snap *Snapshot) {
	m.snapshots.Store(snap.Collection, &cacheEntry{
		value:      snap,
		expiration: time.Now().Add(m.snapshotTTL),
	})
}

// Invalidate removes a collection snapshot from the cache
func (m *Manager) Invalidate(collection string) {
	m.mu.Lock()
	m.generations[collection]++
	m.mu.Unlock()
	m.snapshots.Delete(collection)
	m.group.Forget(collection)
}

func (m *Manager) generation(collection string) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generations[collection]
}

// HasSnapshot reports whether an unexpired snapshot is cached
func (m *Manager) HasSnapshot(collection string) bool {
	if cached, ok := m.snapshots.Load(collection); ok {
		return !cached.(*cacheEntry).isExpired()
	}
	return false
}

// Preload loads every registered collection into the cache
func (m *Manager) Preload(ctx context.Context) error {
	for _, name := range models.CollectionNames() {
		snap, err := m.load(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to preload snapshots: %w", err)
		}
		m.SetSnapshot(snap)
	}
	return nil
}

// Clear removes all entries from the cache
func (m *Manager) Clear() {
	m.snapshots.Range(func(key, _ interface{}) bool {
		m.snapshots.Delete(key)
		return true
	})

	m.mu.Lock()
	m.hits = 0
	m.misses = 0
	m.loads = 0
	m.mu.Unlock()
}

// CleanupExpired removes all expired entries from the cache
func (m *Manager) CleanupExpired() {
	now := time.Now()
	m.snapshots.Range(func(key, value interface{}) bool {
		if now.After(value.(*cacheEntry).expiration) {
			m.snapshots.CompareAndDelete(key, value)
		}
		return true
	})
}

// StartCleanupRoutine starts a background routine to clean expired entries
func (m *Manager) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.CleanupExpired()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stats returns cache statistics
func (m *Manager) Stats() CacheStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	m.snapshots.Range(func(_, _ interface{}) bool {
		count++
		return true
	})

	total := m.hits + m.misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(m.hits) / float64(total)
	}

	return CacheStats{
		Hits:          m.hits,
		Misses:        m.misses,
		Loads:         m.loads,
		HitRate:       hitRate,
		SnapshotCount: count,
	}
}

type CacheStats struct {
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	Loads         uint64  `json:"loads"`
	HitRate       float64 `json:"hit_rate"`
	SnapshotCount int     `json:"snapshot_count"`
}

func (m *Manager) recordHit() {
	m.mu.Lock()
	m.hits++
	m.mu.Unlock()
}

func (m *Manager) recordMiss() {
	m.mu.Lock()
	m.misses++
	m.mu.Unlock()
}
