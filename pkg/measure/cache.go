package measure

import (
	"container/list"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"headcirc/internal/models"
)

// DefaultCacheEntries bounds the cache when no size is configured.
const DefaultCacheEntries = 128

// Stats is a snapshot of cache activity. Computes counts actual
// pipeline runs, so it stays at one however many callers share a key.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Computes  uint64
	Evictions uint64
	Len       int
}

// entry caches one measurement outcome. Failed computations are cached
// too: the pipeline is deterministic, so a slice that yields no contour
// keeps yielding none until the volume changes.
type entry struct {
	result *models.Measurement
	err    error
	elem   *list.Element
}

// Cache is an LRU measurement cache with single-flight computation:
// concurrent lookups of the same key run the pipeline once and share
// the outcome. InvalidateAll drops everything and marks a new epoch;
// computations that finish against an older epoch are discarded rather
// than stored.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List
	max     int

	flight singleflight.Group
	epoch  atomic.Uint64

	hits      atomic.Uint64
	misses    atomic.Uint64
	computes  atomic.Uint64
	evictions atomic.Uint64
}

// NewCache returns a cache holding at most maxEntries measurements.
// Non-positive sizes fall back to DefaultCacheEntries.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &Cache{
		entries: make(map[string]*entry),
		lru:     list.New(),
		max:     maxEntries,
	}
}

// GetOrCompute returns the cached outcome for key, running compute at
// most once however many goroutines ask concurrently.
func (c *Cache) GetOrCompute(key string, compute func() (*models.Measurement, error)) (*models.Measurement, error) {
	if m, err, ok := c.lookup(key); ok {
		return m, err
	}
	c.misses.Add(1)

	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		// A waiter may arrive after the winner stored the entry and
		// the flight key was forgotten.
		if m, err, ok := c.lookup(key); ok {
			return m, err
		}

		epoch := c.epoch.Load()
		m, err := compute()
		c.computes.Add(1)
		c.store(key, m, err, epoch)
		return m, err
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*models.Measurement), nil
}

// InvalidateAll empties the cache. In-flight computations that started
// before the call will not be stored.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch.Add(1)
	c.entries = make(map[string]*entry)
	c.lru.Init()
}

// Stats returns a point-in-time snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Computes:  c.computes.Load(),
		Evictions: c.evictions.Load(),
		Len:       n,
	}
}

func (c *Cache) lookup(key string) (*models.Measurement, error, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, nil, false
	}
	c.lru.MoveToFront(e.elem)
	c.hits.Add(1)
	return e.result, e.err, true
}

func (c *Cache) store(key string, m *models.Measurement, err error, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch.Load() {
		// The cache was invalidated while computing; the result may
		// describe a volume that is no longer current.
		return
	}
	if _, exists := c.entries[key]; exists {
		return
	}
	for len(c.entries) >= c.max {
		back := c.lru.Back()
		if back == nil {
			break
		}
		oldKey := back.Value.(string)
		c.lru.Remove(back)
		delete(c.entries, oldKey)
		c.evictions.Add(1)
	}

	e := &entry{result: m, err: err}
	e.elem = c.lru.PushFront(key)
	c.entries[key] = e
}
