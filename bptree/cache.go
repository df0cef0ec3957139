package bptree

import (
	lru "github.com/hashicorp/golang-lru"
)

// nodeCache is the bounded LRU from spec.md §5 ("LRU bound: 32 entries
// by default"), keyed by file offset — offsets are monotonic across
// appends, so evicting a superseded offset on commit is enough to keep
// the cache coherent without versioning entries (spec.md §9).
type nodeCache struct {
	lru     *lru.Cache
	metrics *engineMetrics
}

func newNodeCache(size int, m *engineMetrics) (*nodeCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, newErr("cache", KindIoFailure, err)
	}
	return &nodeCache{lru: c, metrics: m}, nil
}

// lookup implements the hit/miss half of the has/lookup/hit/miss/evict
// contract spec.md §1 asks the cache collaborator for.
func (c *nodeCache) lookup(offset int64) (*Node, bool) {
	v, ok := c.lru.Get(offset)
	if !ok {
		c.metrics.cacheMiss()
		return nil, false
	}
	c.metrics.cacheHit()
	return v.(*Node), true
}

func (c *nodeCache) has(offset int64) bool {
	return c.lru.Contains(offset)
}

// insert adds a decoded node at its offset, evicting the LRU tail if
// the cache was already at capacity.
func (c *nodeCache) insert(offset int64, n *Node) {
	if evicted := c.lru.Add(offset, n); evicted {
		c.metrics.cacheEvict()
	}
}

// evict drops a (now-superseded) offset from the cache.
func (c *nodeCache) evict(offset int64) {
	if c.lru.Contains(offset) {
		c.lru.Remove(offset)
		c.metrics.cacheEvict()
	}
}
