package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumandas0/farmstore/internal/catalog"
)

func TestQueryCache(t *testing.T) {
	c, err := NewQueryCache(0)
	require.NoError(t, err)

	spec := catalog.NewQuery(12).WithTerm("토마토", "name").WithFilter("category", "채소")
	page := &catalog.ResultPage{TotalMatched: 1}

	_, ok := c.Get("products", 1, spec)
	assert.False(t, ok)

	c.Add("products", 1, spec, page)
	got, ok := c.Get("products", 1, spec)
	require.True(t, ok)
	assert.Same(t, page, got)

	t.Run("equal specs share an entry", func(t *testing.T) {
		same := catalog.NewQuery(12).WithFilter("category", "채소").WithTerm("토마토", "name")
		got, ok := c.Get("products", 1, same)
		require.True(t, ok)
		assert.Same(t, page, got)
	})

	t.Run("new version misses", func(t *testing.T) {
		_, ok := c.Get("products", 2, spec)
		assert.False(t, ok)
	})

	t.Run("purge is per collection", func(t *testing.T) {
		c.Add("orders", 1, spec, &catalog.ResultPage{})
		c.Purge("products")
		_, ok := c.Get("products", 1, spec)
		assert.False(t, ok)
		_, ok = c.Get("orders", 1, spec)
		assert.True(t, ok)
	})

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, uint64(3), stats.Hits)

	c.Clear()
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Stats().Hits)
}

func TestQueryCache_Eviction(t *testing.T) {
	c, err := NewQueryCache(2)
	require.NoError(t, err)

	for page := 1; page <= 3; page++ {
		c.Add("news", 1, catalog.NewQuery(9).WithPage(page), &catalog.ResultPage{Page: page})
	}
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("news", 1, catalog.NewQuery(9).WithPage(1))
	assert.False(t, ok)
}
