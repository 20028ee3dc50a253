package source

import (
	"context"
	"sync"
	"time"

	"envdiff/core/snapshot"

	"golang.org/x/sync/singleflight"
)

// Cache holds fetched snapshots keyed by reference. Concurrent loads of the
// same reference share one fetch. Cached snapshots are shared between
// callers and must be treated as read-only.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]*cacheEntry
	sf      singleflight.Group
}

type cacheEntry struct {
	snapshot *snapshot.Snapshot
	built    time.Time
}

// NewCache creates a cache keeping snapshots for ttl. A zero ttl keeps
// nothing but still collapses concurrent loads.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
	}
}

func (c *Cache) fresh(key string) (*snapshot.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.ttl == 0 || c.now().Sub(entry.built) > c.ttl {
		return nil, false
	}
	return entry.snapshot, true
}

// GetOrLoad returns the cached snapshot for key or calls load to build it.
// A shared load runs detached from any single caller's cancellation; each
// caller still stops waiting once its own ctx is done.
func (c *Cache) GetOrLoad(ctx context.Context, key string, load func(context.Context) (*snapshot.Snapshot, error)) (*snapshot.Snapshot, error) {
	if s, ok := c.fresh(key); ok {
		return s, nil
	}

	ch := c.sf.DoChan(key, func() (any, error) {
		// Another caller may have stored it while we waited.
		if s, ok := c.fresh(key); ok {
			return s, nil
		}

		s, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		if c.ttl > 0 {
			c.mu.Lock()
			c.entries[key] = &cacheEntry{snapshot: s, built: c.now()}
			c.mu.Unlock()
		}
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*snapshot.Snapshot), nil
	}
}

// Invalidate drops the snapshot cached for key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of cached snapshots, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
