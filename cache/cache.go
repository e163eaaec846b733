// Package cache implements the TransformationCache: a (tenantId,
// fingerprint) -> Projection cache with TTL expiry and an LRFU-ish
// (age/(hits+1)) eviction score layered on top of a hashicorp/golang-lru
// container used purely as the concurrent-safe backing store.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/barterlabs/loopengine/graph"
)

// DefaultTTL and DefaultMaxEntries match spec.md §4.7.
const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 100
)

type key struct {
	tenantID    string
	fingerprint uint64
}

type entry struct {
	value     *graph.Projection
	createdAt time.Time
	hits      int
}

// Cache is advisory: every lookup method returns (value, false) on a miss,
// and callers are expected to fall back to building the projection directly.
type Cache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	store      *lru.Cache[key, *entry]
}

func New(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	// The underlying lru.Cache is sized generously above maxEntries: its own
	// (pure-LRU) eviction is a backstop against unbounded growth, while the
	// score-based eviction below is what actually enforces maxEntries.
	store, _ := lru.New[key, *entry](maxEntries * 4)
	return &Cache{ttl: ttl, maxEntries: maxEntries, store: store}
}

// Get returns a defensive deep copy of the cached projection for
// (tenantID, fingerprint), or (nil, false) on a miss or expiry.
func (c *Cache) Get(tenantID string, fingerprint uint64) (*graph.Projection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{tenantID, fingerprint}
	e, ok := c.store.Get(k)
	if !ok {
		return nil, false
	}
	if time.Since(e.createdAt) > c.ttl {
		c.store.Remove(k)
		return nil, false
	}
	e.hits++
	return e.value.Clone(), true
}

// Put stores a fresh projection, evicting the minimum-score entry if the
// logical capacity (maxEntries) is exceeded.
func (c *Cache) Put(tenantID string, fingerprint uint64, value *graph.Projection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{tenantID, fingerprint}
	c.store.Add(k, &entry{value: value, createdAt: time.Now()})

	for c.store.Len() > c.maxEntries {
		c.evictMinScore()
	}
}

// evictMinScore removes the entry with the lowest age/(hits+1) score —
// callers must hold c.mu.
func (c *Cache) evictMinScore() {
	keys := c.store.Keys()
	if len(keys) == 0 {
		return
	}
	var worst key
	var worstScore float64
	found := false
	now := time.Now()
	for _, k := range keys {
		e, ok := c.store.Peek(k)
		if !ok {
			continue
		}
		age := now.Sub(e.createdAt).Seconds()
		score := age / float64(e.hits+1)
		if !found || score < worstScore {
			worstScore = score
			worst = k
			found = true
		}
	}
	if found {
		c.store.Remove(worst)
	}
}

// InvalidateTenant drops every entry belonging to tenantID — called on every
// mutation, per spec.md §4.7.
func (c *Cache) InvalidateTenant(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range c.store.Keys() {
		if k.tenantID == tenantID {
			c.store.Remove(k)
		}
	}
}

// Len reports the current number of cached entries, across all tenants.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Len()
}
