package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/store/memory"
)

func TestDefault(t *testing.T) {
	set, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"customers", "news", "orders", "products"}, set.Collections())
	assert.Len(t, set[models.CollectionProducts], 10)
	assert.Len(t, set[models.CollectionOrders], 4)
	assert.Len(t, set[models.CollectionCustomers], 5)
	assert.Len(t, set[models.CollectionNews], 6)
	assert.Equal(t, 25, set.Count())

	first := set[models.CollectionProducts][0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "신선한 토마토", first.Fields["name"])
}

func TestDefaultDecodesIntoModels(t *testing.T) {
	set, err := Default()
	require.NoError(t, err)

	for _, name := range set.Collections() {
		c, ok := models.LookupCollection(name)
		require.True(t, ok)
		for _, doc := range set[name] {
			m := c.NewModel()
			assert.NoError(t, doc.Decode(m), "%s/%s", name, doc.ID)
		}
	}

	var o models.Order
	require.NoError(t, set[models.CollectionOrders][1].Decode(&o))
	assert.Equal(t, int64(20600), o.TotalAmount)
	assert.Len(t, o.Items, 2)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		p := filepath.Join(dir, "extra.yaml")
		content := "collection: products\ndocuments:\n  - id: \"99\"\n    name: 햅쌀\n    category: 곡물\n"
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))

		set, err := LoadFile(p)
		require.NoError(t, err)
		require.Len(t, set[models.CollectionProducts], 1)
		assert.Equal(t, "99", set[models.CollectionProducts][0].ID)
	})

	t.Run("unknown collection", func(t *testing.T) {
		p := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(p, []byte("collection: tractors\ndocuments: []\n"), 0o600))

		_, err := LoadFile(p)
		assert.ErrorContains(t, err, "unknown collection")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	set, err := Default()
	require.NoError(t, err)

	st := memory.NewMemoryStore()
	n, err := Apply(ctx, st, set, false)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	docs, err := st.ListDocuments(ctx, models.CollectionProducts)
	require.NoError(t, err)
	require.Len(t, docs, 10)
	assert.Equal(t, "1", docs[0].ID)
	assert.Equal(t, "10", docs[9].ID)

	t.Run("duplicates abort without skip", func(t *testing.T) {
		_, err := Apply(ctx, st, set, false)
		assert.Error(t, err)
	})

	t.Run("duplicates are skipped", func(t *testing.T) {
		n, err := Apply(ctx, st, set, true)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
