package github

import (
	"sync"
	"time"
)

// cacheKey uniquely identifies one issue across repositories.
type cacheKey struct {
	owner  string
	repo   string
	number int
}

// cacheEntry pairs a fetched payload with the time it was stored. Entries
// are owned by the cache and never handed out.
type cacheEntry struct {
	issue    *Issue
	storedAt time.Time
}

// issueCache is an unbounded in-memory TTL cache. An entry is valid while
// now - storedAt < ttl; expired entries are treated as absent and stay in the
// map until a fresh fetch of the same key overwrites them. A ttl of zero
// disables the cache entirely.
type issueCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

func newIssueCache(ttl time.Duration) *issueCache {
	return &issueCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// get returns the cached issue when a fresh entry exists for key.
func (c *issueCache) get(key cacheKey) (*Issue, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.issue, true
}

// set stores issue under key, superseding any previous entry. Concurrent
// fetches of the same key race benignly; the last write wins.
func (c *issueCache) set(key cacheKey, issue *Issue) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{issue: issue, storedAt: c.now()}
}

// size reports how many entries are physically present, fresh or expired.
func (c *issueCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
