package github

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func testIssue(n int) *Issue {
	return &Issue{
		Number: n,
		Title:  fmt.Sprintf("issue %d", n),
		State:  "open",
	}
}

func TestCache_SetAndGet(t *testing.T) {
	t.Parallel()

	c := newIssueCache(300 * time.Second)
	key := cacheKey{owner: "facebook", repo: "react", number: 1}

	if _, ok := c.get(key); ok {
		t.Fatal("expected miss on empty cache")
	}

	want := testIssue(1)
	c.set(key, want)

	got, ok := c.get(key)
	if !ok {
		t.Fatal("expected hit after set")
	}
	if got != want {
		t.Error("expected the stored pointer back")
	}
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	c := newIssueCache(300 * time.Second)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }

	key := cacheKey{owner: "o", repo: "r", number: 7}
	c.set(key, testIssue(7))

	// 10s later: fresh.
	now = base.Add(10 * time.Second)
	if _, ok := c.get(key); !ok {
		t.Error("expected hit 10s after store")
	}

	// 301s later: expired.
	now = base.Add(301 * time.Second)
	if _, ok := c.get(key); ok {
		t.Error("expected miss 301s after store")
	}
}

func TestCache_ExpiryBoundaryIsExclusive(t *testing.T) {
	t.Parallel()

	c := newIssueCache(300 * time.Second)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }

	key := cacheKey{owner: "o", repo: "r", number: 1}
	c.set(key, testIssue(1))

	// Validity is now-storedAt < ttl, so exactly ttl is already stale.
	now = base.Add(300 * time.Second)
	if _, ok := c.get(key); ok {
		t.Error("entry at exactly TTL age should be expired")
	}

	now = base.Add(300*time.Second - time.Nanosecond)
	if _, ok := c.get(key); !ok {
		t.Error("entry just under TTL age should be fresh")
	}
}

func TestCache_ZeroTTLDisablesCaching(t *testing.T) {
	t.Parallel()

	c := newIssueCache(0)
	key := cacheKey{owner: "o", repo: "r", number: 1}

	c.set(key, testIssue(1))
	if _, ok := c.get(key); ok {
		t.Error("zero TTL cache should never hit")
	}
	if c.size() != 0 {
		t.Errorf("zero TTL cache stored %d entries, want 0", c.size())
	}
}

func TestCache_SetRefreshesTimestamp(t *testing.T) {
	t.Parallel()

	c := newIssueCache(300 * time.Second)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }

	key := cacheKey{owner: "o", repo: "r", number: 2}
	c.set(key, testIssue(2))

	// Overwrite at +200s; entry should then survive until +500s.
	now = base.Add(200 * time.Second)
	fresh := testIssue(2)
	c.set(key, fresh)

	now = base.Add(400 * time.Second)
	got, ok := c.get(key)
	if !ok {
		t.Fatal("expected overwritten entry to be fresh at +400s")
	}
	if got != fresh {
		t.Error("expected the newer payload after overwrite")
	}
}

func TestCache_ExpiredEntryStaysUntilOverwritten(t *testing.T) {
	t.Parallel()

	c := newIssueCache(time.Second)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }

	key := cacheKey{owner: "o", repo: "r", number: 3}
	c.set(key, testIssue(3))

	now = base.Add(time.Hour)
	if _, ok := c.get(key); ok {
		t.Fatal("expected expired entry to be logically absent")
	}
	if c.size() != 1 {
		t.Errorf("size = %d, want 1 (expired entries are not evicted)", c.size())
	}
}

func TestCache_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	c := newIssueCache(300 * time.Second)
	c.set(cacheKey{owner: "a", repo: "r", number: 1}, testIssue(1))

	if _, ok := c.get(cacheKey{owner: "b", repo: "r", number: 1}); ok {
		t.Error("different owner should miss")
	}
	if _, ok := c.get(cacheKey{owner: "a", repo: "r2", number: 1}); ok {
		t.Error("different repo should miss")
	}
	if _, ok := c.get(cacheKey{owner: "a", repo: "r", number: 2}); ok {
		t.Error("different number should miss")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := newIssueCache(300 * time.Second)
	const n = 100

	var wg sync.WaitGroup
	wg.Add(n * 2)

	for i := range n {
		key := cacheKey{owner: "o", repo: "r", number: i}

		go func() {
			defer wg.Done()
			c.set(key, testIssue(key.number))
		}()

		go func() {
			defer wg.Done()
			c.get(key)
			c.size()
		}()
	}

	wg.Wait()

	if c.size() != n {
		t.Errorf("size = %d, want %d", c.size(), n)
	}
}
