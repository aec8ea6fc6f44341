package resources

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"oneclick_bridge/contract"
)

type cacheKey struct {
	bucket string
	name   string
}

// Cached memoizes hits of another lookup. Misses are not cached so resources
// added after startup are found.
type Cached struct {
	next  contract.ResourceLookup
	cache *lru.Cache[cacheKey, contract.ResourceID]
}

func NewCached(next contract.ResourceLookup, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, contract.ResourceID](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Lookup(name, bucket string) (contract.ResourceID, bool) {
	key := cacheKey{bucket: bucket, name: name}
	if id, ok := c.cache.Get(key); ok {
		return id, true
	}
	id, ok := c.next.Lookup(name, bucket)
	if ok {
		c.cache.Add(key, id)
	}
	return id, ok
}

// Purge drops every cached result.
func (c *Cached) Purge() {
	c.cache.Purge()
}
