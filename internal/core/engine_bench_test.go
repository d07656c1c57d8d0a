package core

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sumandas0/farmstore/internal/catalog"
	"github.com/sumandas0/farmstore/internal/models"
)

// setupLargeCatalog imports n generated products on top of the seed data.
func setupLargeCatalog(b *testing.B, n int) *testEnv {
	env := setupEngine(b, WithBatchSize(500))
	rng := rand.New(rand.NewSource(42))
	names := []string{"토마토", "사과", "감자", "현미", "호두", "배추", "딸기"}

	items := make([]map[string]interface{}, n)
	for i := range items {
		name := names[rng.Intn(len(names))]
		items[i] = map[string]interface{}{
			"name":     fmt.Sprintf("%s %d호", name, i),
			"price":    1000 + rng.Intn(50)*500,
			"rating":   float64(rng.Intn(51)) / 10,
			"category": models.ProductCategories[rng.Intn(len(models.ProductCategories))],
			"stock":    rng.Intn(300),
			"status":   "active",
			"tags":     []string{name, "산지직송"},
		}
	}
	_, err := env.Engine.ImportDocuments(context.Background(), models.CollectionProducts, items)
	require.NoError(b, err)
	return env
}

func benchmarkSpecs() []catalog.QuerySpec {
	base := catalog.NewQuery(12)
	return []catalog.QuerySpec{
		base,
		base.WithFilter("category", "과일").WithSort("price", catalog.SortAsc),
		base.WithTerm("토마", SearchFields...).WithPage(3),
		base.WithRange("price", 5000, 20000).WithSort("rating", catalog.SortDesc),
	}
}

func BenchmarkEngine_QueryCached(b *testing.B) {
	env := setupLargeCatalog(b, 2000)
	ctx := context.Background()
	specs := benchmarkSpecs()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.Engine.Query(ctx, models.CollectionProducts, specs[i%len(specs)]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngine_QueryUncached(b *testing.B) {
	env := setupLargeCatalog(b, 2000)
	ctx := context.Background()
	specs := benchmarkSpecs()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Distinct pages defeat the result cache but keep the snapshot.
		spec := specs[i%len(specs)].WithPage(i%50 + 1)
		env.Cache.Results().Clear()
		if _, err := env.Engine.Query(ctx, models.CollectionProducts, spec); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngine_QueryConcurrent(b *testing.B) {
	env := setupLargeCatalog(b, 2000)
	ctx := context.Background()
	specs := benchmarkSpecs()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := env.Engine.Query(ctx, models.CollectionProducts, specs[i%len(specs)]); err != nil {
				b.Fatal(err)
			}
			i++
		}
	})
}

func BenchmarkEngine_CreateThenQuery(b *testing.B) {
	env := setupLargeCatalog(b, 500)
	ctx := context.Background()
	spec := catalog.NewQuery(12).WithFilter("category", "채소")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := env.Engine.CreateDocument(ctx, models.CollectionProducts, map[string]interface{}{
			"name":     fmt.Sprintf("벤치 상품 %d", i),
			"price":    3000,
			"category": "채소",
			"status":   "active",
		})
		if err != nil {
			b.Fatal(err)
		}
		if _, err := env.Engine.Query(ctx, models.CollectionProducts, spec); err != nil {
			b.Fatal(err)
		}
	}
}
