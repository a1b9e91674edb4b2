package stats

import (
	"container/list"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vjranagit/latency/pkg/types"
)

// ResultCache is an LRU cache of per-region results keyed by region and
// threshold. A zero ttl means entries never expire.
type ResultCache struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]*cacheEntry
	lru   *list.List

	hits   atomic.Uint64
	misses atomic.Uint64
}

// cacheEntry represents a cached region result
type cacheEntry struct {
	key       string
	stats     types.RegionStats
	timestamp time.Time
	element   *list.Element
}

// NewResultCache creates a cache holding at most capacity results.
// A capacity below 1 returns nil, which Aggregator treats as no cache.
func NewResultCache(capacity int, ttl time.Duration) *ResultCache {
	if capacity < 1 {
		return nil
	}
	return &ResultCache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		cache:    make(map[string]*cacheEntry),
		lru:      list.New(),
	}
}

// Get retrieves a cached result
func (rc *ResultCache) Get(region string, thresholdMs int) (types.RegionStats, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	key := cacheKey(region, thresholdMs)
	entry, exists := rc.cache[key]
	if !exists {
		rc.misses.Add(1)
		return types.RegionStats{}, false
	}

	if rc.expired(entry) {
		rc.removeLocked(key)
		rc.misses.Add(1)
		return types.RegionStats{}, false
	}

	rc.lru.MoveToFront(entry.element)
	rc.hits.Add(1)
	return entry.stats, true
}

// Put stores a result, evicting the least recently used entry when full
func (rc *ResultCache) Put(region string, thresholdMs int, stats types.RegionStats) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	key := cacheKey(region, thresholdMs)

	if entry, exists := rc.cache[key]; exists {
		entry.stats = stats
		entry.timestamp = rc.now()
		rc.lru.MoveToFront(entry.element)
		return
	}

	entry := &cacheEntry{
		key:       key,
		stats:     stats,
		timestamp: rc.now(),
	}
	entry.element = rc.lru.PushFront(entry)
	rc.cache[key] = entry

	if rc.lru.Len() > rc.capacity {
		if oldest := rc.lru.Back(); oldest != nil {
			rc.removeLocked(oldest.Value.(*cacheEntry).key)
		}
	}
}

// removeLocked removes an entry from the cache (must hold lock)
func (rc *ResultCache) removeLocked(key string) {
	if entry, exists := rc.cache[key]; exists {
		rc.lru.Remove(entry.element)
		delete(rc.cache, key)
	}
}

func (rc *ResultCache) expired(entry *cacheEntry) bool {
	return rc.ttl > 0 && rc.now().Sub(entry.timestamp) > rc.ttl
}

// Size returns the current number of cached results
func (rc *ResultCache) Size() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.cache)
}

// Hits returns how many lookups were served from the cache
func (rc *ResultCache) Hits() uint64 {
	return rc.hits.Load()
}

// Misses returns how many lookups had to compute the result
func (rc *ResultCache) Misses() uint64 {
	return rc.misses.Load()
}

func cacheKey(region string, thresholdMs int) string {
	return strconv.Itoa(thresholdMs) + "|" + region
}
