package planner

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ccsync/ccsync/pkg/rules"
)

// fullCacheKey is the cache key used when no changedFiles set is supplied.
const fullCacheKey = "full"

// cacheKey computes a stable cache key for a planning call: "full" for
// unrestricted resolution, otherwise an MD5 of the sorted, joined change
// list.
func cacheKey(changedFiles map[string]bool) string {
	if len(changedFiles) == 0 {
		return fullCacheKey
	}

	paths := make([]string, 0, len(changedFiles))
	for path := range changedFiles {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	sum := md5.Sum([]byte(strings.Join(paths, "\x00")))
	return hex.EncodeToString(sum[:])
}

// entry pairs a cached plan with its insertion time, for TTL-based soft
// expiry.
type entry struct {
	plan      SyncPlan
	insertedAt time.Time
}

// Cache is a fingerprint-keyed SyncPlan cache with a TTL-based soft expiry
// and a companion glob cache that is invalidated in lockstep.
type Cache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]entry

	globCache *rules.GlobCache
}

// NewCache creates an empty plan cache with the given soft TTL. A TTL of
// zero disables time-based expiry (explicit invalidation is still
// authoritative either way).
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:       ttl,
		entries:   make(map[string]entry),
		globCache: rules.NewGlobCache(),
	}
}

// Get returns the cached plan for key, if present and not expired.
func (c *Cache) Get(key string) (SyncPlan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return SyncPlan{}, false
	}
	if c.ttl > 0 && time.Since(e.insertedAt) > c.ttl {
		delete(c.entries, key)
		return SyncPlan{}, false
	}
	return e.plan, true
}

// Put stores plan under key.
func (c *Cache) Put(key string, plan SyncPlan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{plan: plan, insertedAt: time.Now()}
}

// Invalidate clears every cached plan and the companion glob cache. This is
// the single authoritative invalidation signal for both.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	c.globCache.Invalidate()
}
