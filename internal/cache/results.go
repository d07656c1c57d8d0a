package cache

import (
	"strconv"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sumandas0/farmstore/internal/catalog"
)

const DefaultResultCacheSize = 1024

// QueryCache memoizes result pages per collection version and query. A write
// bumps the version, so stale pages are never served even before Purge runs.
// A nil *QueryCache is valid and caches nothing.
type QueryCache struct {
	entries *lru.Cache[string, *catalog.ResultPage]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

func NewQueryCache(size int) (*QueryCache, error) {
	if size <= 0 {
		size = DefaultResultCacheSize
	}
	entries, err := lru.New[string, *catalog.ResultPage](size)
	if err != nil {
		return nil, err
	}
	return &QueryCache{entries: entries}, nil
}

func resultKey(collection string, version int64, spec catalog.QuerySpec) string {
	return collection + "|" + strconv.FormatInt(version, 10) + "|" + spec.Key()
}

// Get returns a cached page. Callers must treat it as read-only.
func (c *QueryCache) Get(collection string, version int64, spec catalog.QuerySpec) (*catalog.ResultPage, bool) {
	if c == nil {
		return nil, false
	}
	page, ok := c.entries.Get(resultKey(collection, version, spec))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return page, ok
}

func (c *QueryCache) Add(collection string, version int64, spec catalog.QuerySpec, page *catalog.ResultPage) {
	if c == nil {
		return
	}
	c.entries.Add(resultKey(collection, version, spec), page)
}

// Purge drops every cached page of one collection.
func (c *QueryCache) Purge(collection string) {
	if c == nil {
		return
	}
	prefix := collection + "|"
	for _, key := range c.entries.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.entries.Remove(key)
		}
	}
}

func (c *QueryCache) Clear() {
	if c == nil {
		return
	}
	c.entries.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
}

func (c *QueryCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

type ResultStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

func (c *QueryCache) Stats() ResultStats {
	if c == nil {
		return ResultStats{}
	}
	return ResultStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.entries.Len(),
	}
}
