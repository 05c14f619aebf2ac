package query

import (
	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/pkg/errors"
)

// CacheStats counts memo cache activity since the last Reset.
type CacheStats struct {
	Executions int // first evaluations, not cached
	Promotions int // second evaluations whose result was stored
	Hits       int // evaluations served from the cache
	Trees      int // proximity trees built
}

// MotiveCache memoises sequence results and proximity trees by signature.
// A sequence is evaluated directly the first time it is seen, evaluated and
// stored the second time, and served from the cache afterwards.
type MotiveCache struct {
	counts  map[string]int
	results map[string][]*motive.Motive
	trees   map[string]*motive.ProximityTree
	stats   CacheStats
}

// NewMotiveCache returns an empty cache.
func NewMotiveCache() *MotiveCache {
	return &MotiveCache{
		counts:  make(map[string]int),
		results: make(map[string][]*motive.Motive),
		trees:   make(map[string]*motive.ProximityTree),
	}
}

// Reset drops every entry and the statistics.
func (c *MotiveCache) Reset() {
	c.counts = make(map[string]int)
	c.results = make(map[string][]*motive.Motive)
	c.trees = make(map[string]*motive.ProximityTree)
	c.stats = CacheStats{}
}

// Stats returns the activity counters.
func (c *MotiveCache) Stats() CacheStats { return c.stats }

// Len returns the number of stored results.
func (c *MotiveCache) Len() int { return len(c.results) }

func (c *MotiveCache) bump(key string) int {
	n := c.counts[key] + 1
	c.counts[key] = n
	return n
}

func (c *MotiveCache) store(key string, ms []*motive.Motive) {
	c.results[key] = ms[:len(ms):len(ms)]
	c.stats.Promotions++
}

func (c *MotiveCache) lookup(key string) ([]*motive.Motive, error) {
	ms, ok := c.results[key]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeQueryCacheInvariant, "The cache entry for '%s' does not exist (but should).", key)
	}
	c.stats.Hits++
	return ms, nil
}

func (c *MotiveCache) tree(key string) (*motive.ProximityTree, bool) {
	t, ok := c.trees[key]
	return t, ok
}

func (c *MotiveCache) storeTree(key string, t *motive.ProximityTree) {
	c.trees[key] = t
	c.stats.Trees++
}
