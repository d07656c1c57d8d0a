package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumandas0/farmstore/internal/cache"
	"github.com/sumandas0/farmstore/internal/catalog"
	"github.com/sumandas0/farmstore/internal/integration"
	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/seed"
	"github.com/sumandas0/farmstore/internal/store/memory"
	"github.com/sumandas0/farmstore/pkg/utils"
)

type testEnv struct {
	Engine *Engine
	Store  *memory.MemoryStore
	Cache  *cache.CacheAwareManager
}

func setupEngine(t testing.TB, opts ...EngineOption) *testEnv {
	t.Helper()
	ctx := context.Background()

	st := memory.NewMemoryStore()
	set, err := seed.Default()
	require.NoError(t, err)
	_, err = seed.Apply(ctx, st, set, false)
	require.NoError(t, err)

	results, err := cache.NewQueryCache(64)
	require.NoError(t, err)
	cm := cache.NewCacheAwareManager(cache.NewManager(st, time.Minute), results)

	engine, err := NewEngine(st, cm, integration.NewNoopObservabilityManager(), opts...)
	require.NoError(t, err)

	return &testEnv{Engine: engine, Store: st, Cache: cm}
}

func ids(page *catalog.ResultPage) []string {
	out := make([]string, 0, len(page.Items))
	for _, r := range page.Items {
		out = append(out, r.ID)
	}
	return out
}

func appErrCode(err error) string {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func TestNewEngine_RequiresDependencies(t *testing.T) {
	_, err := NewEngine(nil, nil, nil)
	assert.Error(t, err)
}

func TestEngine_Query(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		collection string
		spec       catalog.QuerySpec
		wantIDs    []string
		wantTotal  int
		wantCode   string
	}{
		{
			name:       "category filter sorted by price",
			collection: models.CollectionProducts,
			spec: catalog.NewQuery(3).
				WithFilter("category", "채소").
				WithSort("price", catalog.SortAsc),
			wantIDs:   []string{"9", "4", "2"},
			wantTotal: 8,
		},
		{
			name:       "all is unconstrained",
			collection: models.CollectionProducts,
			spec:       catalog.NewQuery(20).WithFilter("category", catalog.All),
			wantIDs:    []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"},
			wantTotal:  10,
		},
		{
			name:       "orders by customer name",
			collection: models.CollectionOrders,
			spec:       catalog.NewQuery(10).WithTerm("김철수", "customer_name"),
			wantIDs:    []string{"1"},
			wantTotal:  1,
		},
		{
			name:       "unknown collection",
			collection: "farms",
			spec:       catalog.NewQuery(10),
			wantCode:   utils.CodeUnknownCollection,
		},
		{
			name:       "unknown sort field",
			collection: models.CollectionProducts,
			spec:       catalog.NewQuery(10).WithSort("weight", catalog.SortAsc),
			wantCode:   utils.CodeInvalidQuery,
		},
		{
			name:       "zero page size",
			collection: models.CollectionProducts,
			spec:       catalog.NewQuery(0),
			wantCode:   utils.CodeInvalidQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := env.Engine.Query(ctx, tt.collection, tt.spec)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, appErrCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(page))
			assert.Equal(t, tt.wantTotal, page.TotalMatched)
		})
	}
}

func TestEngine_QueryFacetsExcludeOwnFilter(t *testing.T) {
	env := setupEngine(t)

	page, err := env.Engine.Query(context.Background(), models.CollectionProducts,
		catalog.NewQuery(12).WithFilter("category", "채소"))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"채소": 8, "과일": 2}, page.FacetCounts["category"])
	assert.Equal(t, map[string]int{"active": 6, "out_of_stock": 1, "inactive": 1}, page.FacetCounts["status"])
	assert.Equal(t, 1, page.TotalPages)
}

func TestEngine_QueryUsesResultCache(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	spec := catalog.NewQuery(5).WithSort("rating", catalog.SortDesc)

	first, err := env.Engine.Query(ctx, models.CollectionProducts, spec)
	require.NoError(t, err)
	second, err := env.Engine.Query(ctx, models.CollectionProducts, spec)
	require.NoError(t, err)

	assert.Same(t, first, second)
	stats := env.Cache.Results().Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, 1, stats.Entries)
}

func TestEngine_ReadAfterWrite(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	spec := catalog.NewQuery(20).WithFilter("category", "곡물")

	before, err := env.Engine.Query(ctx, models.CollectionProducts, spec)
	require.NoError(t, err)
	assert.Equal(t, 0, before.TotalMatched)

	doc, err := env.Engine.CreateDocument(ctx, models.CollectionProducts, map[string]interface{}{
		"name":     "햅쌀",
		"price":    25000,
		"category": "곡물",
		"status":   "active",
		"stock":    40,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)

	after, err := env.Engine.Query(ctx, models.CollectionProducts, spec)
	require.NoError(t, err)
	assert.Equal(t, []string{doc.ID}, ids(after))

	require.NoError(t, env.Engine.DeleteDocument(ctx, models.CollectionProducts, doc.ID))
	gone, err := env.Engine.Query(ctx, models.CollectionProducts, spec)
	require.NoError(t, err)
	assert.Equal(t, 0, gone.TotalMatched)
}

func TestEngine_CreateDocument(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		fields   map[string]interface{}
		wantCode string
	}{
		{
			name: "valid product with explicit id",
			fields: map[string]interface{}{
				"id": "p-100", "name": "호두", "price": 15000, "category": "견과류", "status": "active",
			},
		},
		{
			name: "duplicate id",
			fields: map[string]interface{}{
				"id": "1", "name": "토마토", "price": 3500, "category": "채소", "status": "active",
			},
			wantCode: utils.CodeAlreadyExists,
		},
		{
			name: "unknown category",
			fields: map[string]interface{}{
				"name": "소고기", "price": 30000, "category": "육류", "status": "active",
			},
			wantCode: utils.CodeValidation,
		},
		{
			name: "missing name",
			fields: map[string]interface{}{
				"price": 1000, "category": "채소", "status": "active",
			},
			wantCode: utils.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := env.Engine.CreateDocument(ctx, models.CollectionProducts, tt.fields)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, appErrCode(err))
				return
			}
			require.NoError(t, err)

			stored, err := env.Engine.GetDocument(ctx, models.CollectionProducts, doc.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.fields["name"], stored.Fields["name"])
			assert.Equal(t, 1, stored.Version)
		})
	}
}

func TestEngine_UpdateDocument(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	fields := map[string]interface{}{
		"name": "신선한 토마토", "price": 3000, "original_price": 4000,
		"category": "채소", "status": "active", "stock": 150,
	}

	updated, err := env.Engine.UpdateDocument(ctx, models.CollectionProducts, "1", fields, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	page, err := env.Engine.Query(ctx, models.CollectionProducts,
		catalog.NewQuery(1).WithRange("discount_percent", 25, 25))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(page))

	_, err = env.Engine.UpdateDocument(ctx, models.CollectionProducts, "1", fields, 1)
	assert.Equal(t, utils.CodeConcurrentModification, appErrCode(err))

	_, err = env.Engine.UpdateDocument(ctx, models.CollectionProducts, "missing", fields, 0)
	assert.True(t, utils.IsNotFound(err))
}

func TestEngine_DeleteMissing(t *testing.T) {
	env := setupEngine(t)
	err := env.Engine.DeleteDocument(context.Background(), models.CollectionNews, "404")
	assert.True(t, utils.IsNotFound(err))
}

func TestEngine_SearchAndSuggest(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	page, err := env.Engine.Search(ctx, "토마토", 1, 12)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids(page))
	assert.NotEmpty(t, page.Highlights["1"]["name"])

	suggestions, err := env.Engine.Suggest(ctx, "유기")
	require.NoError(t, err)
	assert.Equal(t, []string{"유기농 상추", "유기농 시금치", "유기농 오이", "유기농"}, suggestions)

	empty, err := env.Engine.Suggest(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEngine_ImportDocuments(t *testing.T) {
	env := setupEngine(t, WithBatchSize(2))
	ctx := context.Background()

	items := []map[string]interface{}{
		{"title": "가을 수확 축제", "category": "event", "author": "김농부"},
		{"title": "토양 관리", "category": "cultivation", "author": "박농부"},
		{"title": "제철 채소 효능", "category": "health", "author": "이영양"},
	}
	n, err := env.Engine.ImportDocuments(ctx, models.CollectionNews, items)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	page, err := env.Engine.Query(ctx, models.CollectionNews, catalog.NewQuery(20))
	require.NoError(t, err)
	assert.Equal(t, 9, page.TotalMatched)

	_, err = env.Engine.ImportDocuments(ctx, models.CollectionNews, []map[string]interface{}{
		{"title": "잘못된 분류", "category": "sports", "author": "x"},
	})
	assert.True(t, utils.IsValidation(err))
}

func TestEngine_ImportDocumentsIsAllOrNothing(t *testing.T) {
	env := setupEngine(t, WithBatchSize(10))
	ctx := context.Background()

	before, err := env.Engine.Query(ctx, models.CollectionNews, catalog.NewQuery(1))
	require.NoError(t, err)

	items := make([]map[string]interface{}, 0, 26)
	for i := 0; i < 25; i++ {
		items = append(items, map[string]interface{}{
			"id":       fmt.Sprintf("bulk-%d", i),
			"title":    fmt.Sprintf("농가 소식 %d", i),
			"category": "farm",
			"author":   "김농부",
		})
	}
	// The last item reuses an id from earlier in the same import.
	items = append(items, map[string]interface{}{
		"id": "bulk-3", "title": "중복", "category": "farm", "author": "김농부",
	})

	n, err := env.Engine.ImportDocuments(ctx, models.CollectionNews, items)
	require.Error(t, err)
	assert.True(t, utils.IsAlreadyExists(err))
	assert.Equal(t, 0, n)

	after, err := env.Engine.Query(ctx, models.CollectionNews, catalog.NewQuery(1))
	require.NoError(t, err)
	assert.Equal(t, before.TotalMatched, after.TotalMatched)

	_, err = env.Engine.GetDocument(ctx, models.CollectionNews, "bulk-0")
	assert.True(t, utils.IsNotFound(err))

	n, err = env.Engine.ImportDocuments(ctx, models.CollectionNews, items[:25])
	require.NoError(t, err)
	assert.Equal(t, 25, n)
}

func TestEngine_DashboardStats(t *testing.T) {
	now := time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC)
	env := setupEngine(t, withClock(func() time.Time { return now }))

	stats, err := env.Engine.DashboardStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, stats.TotalProducts)
	assert.Equal(t, 4, stats.TotalOrders)
	assert.Equal(t, 5, stats.TotalCustomers)
	assert.Equal(t, int64(52900), stats.TotalRevenue)
	assert.Equal(t, 2, stats.LowStockProducts)
	assert.Equal(t, 80.0, stats.ActiveProductsPercent)
	assert.Equal(t, int64(19018), stats.Customers.AverageOrderValue)
}

func TestEngine_Analytics(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	a, err := env.Engine.Analytics(ctx, time.Date(2024, 2, 13, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, a.Daily, 3)
	assert.Equal(t, DailySales{Date: "2024-02-15", Sales: 27300, Orders: 2, Customers: 2, AverageOrderValue: 13650}, a.Daily[2])
	assert.Equal(t, AnalyticsTotals{Sales: 52900, Orders: 4, Customers: 4, AverageOrderValue: 13225}, a.Totals)

	require.Len(t, a.Products, 10)
	top := a.Products[0]
	assert.Equal(t, "1", top.ID)
	assert.Equal(t, int64(245*3500), top.Revenue)
	assert.Equal(t, TrendUp, top.Trend)

	_, err = env.Engine.Analytics(ctx, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 13, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, utils.CodeValidation, appErrCode(err))
}

func TestEngine_QuoteCart(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	tests := []struct {
		name         string
		lines        []CartLine
		wantSubtotal int64
		wantFee      int64
		wantCode     string
	}{
		{
			name: "below threshold",
			lines: []CartLine{
				{ProductID: "1", Quantity: 2, Selected: true},
				{ProductID: "5", Quantity: 1, Selected: true},
				{ProductID: "8", Quantity: 5, Selected: false},
			},
			wantSubtotal: 15000,
			wantFee:      3000,
		},
		{
			name: "exactly at threshold",
			lines: []CartLine{
				{ProductID: "8", Quantity: 2, Selected: true},
				{ProductID: "2", Quantity: 1, Selected: true},
				{ProductID: "6", Quantity: 1, Selected: true},
			},
			wantSubtotal: 30000,
			wantFee:      0,
		},
		{
			name:     "nothing selected",
			lines:    []CartLine{{ProductID: "1", Quantity: 1}},
			wantCode: utils.CodeValidation,
		},
		{
			name:     "unknown product",
			lines:    []CartLine{{ProductID: "999", Quantity: 1, Selected: true}},
			wantCode: utils.CodeNotFound,
		},
		{
			name:     "zero quantity",
			lines:    []CartLine{{ProductID: "1", Quantity: 0, Selected: true}},
			wantCode: utils.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := env.Engine.QuoteCart(ctx, tt.lines)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, appErrCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubtotal, totals.Subtotal)
			assert.Equal(t, tt.wantFee, totals.ShippingFee)
			assert.Equal(t, tt.wantSubtotal+tt.wantFee, totals.Total)
		})
	}
}

func TestEngine_Stats(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	_, err := env.Engine.Query(ctx, models.CollectionProducts, catalog.NewQuery(10))
	require.NoError(t, err)
	_, err = env.Engine.CreateDocument(ctx, models.CollectionNews, map[string]interface{}{
		"title": "새 소식", "category": "farm", "author": "김농부",
	})
	require.NoError(t, err)

	stats := env.Engine.Stats(ctx)
	assert.Equal(t, uint64(1), stats.Transactions.TotalCommitted)
	assert.Equal(t, int64(7), stats.Collections[models.CollectionNews])
	assert.Equal(t, uint64(1), stats.Snapshots.Loads)
}

func TestEngine_CollectionSizes(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	sizes, err := env.Engine.CollectionSizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, sizes[models.CollectionProducts])
	assert.Equal(t, 4, sizes[models.CollectionOrders])

	_, err = env.Engine.CreateDocument(ctx, models.CollectionProducts, map[string]interface{}{
		"name":     "햇밤",
		"price":    12000,
		"category": "견과류",
		"status":   "active",
	})
	require.NoError(t, err)

	sizes, err = env.Engine.CollectionSizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, sizes[models.CollectionProducts])
}
