package catalog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var produceSchema = Schema{
	Name: "produce",
	Fields: map[string]FieldKind{
		"name":       KindText,
		"tags":       KindCategorical,
		"category":   KindCategorical,
		"status":     KindCategorical,
		"price":      KindNumeric,
		"created_at": KindDate,
	},
	Facets: []string{"category"},
}

func seedRecords() []Record {
	return []Record{
		NewRecord("1", map[string]interface{}{"name": "신선한 토마토", "category": "채소", "price": 3500}),
		NewRecord("2", map[string]interface{}{"name": "유기농 상추", "category": "채소", "price": 2800}),
		NewRecord("3", map[string]interface{}{"name": "방울토마토", "category": "채소", "price": 4200}),
		NewRecord("4", map[string]interface{}{"name": "친환경 당근", "category": "채소", "price": 2500}),
		NewRecord("5", map[string]interface{}{"name": "국산 사과", "category": "과일", "price": 8000}),
	}
}

func ids(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestExecute_SeedScenarios(t *testing.T) {
	tests := []struct {
		name           string
		spec           QuerySpec
		wantIDs        []string
		wantTotal      int
		wantTotalPages int
		wantFacets     map[string]int
	}{
		{
			name:           "term matches substring in original order",
			spec:           NewQuery(10).WithTerm("토마토", "name"),
			wantIDs:        []string{"1", "3"},
			wantTotal:      2,
			wantTotalPages: 1,
		},
		{
			name:           "category filter sorted by price first page",
			spec:           NewQuery(2).WithFilter("category", "채소").WithSort("price", SortAsc),
			wantIDs:        []string{"4", "2"},
			wantTotal:      4,
			wantTotalPages: 2,
		},
		{
			name:           "category filter sorted by price second page",
			spec:           NewQuery(2).WithFilter("category", "채소").WithSort("price", SortAsc).WithPage(2),
			wantIDs:        []string{"1", "3"},
			wantTotal:      4,
			wantTotalPages: 2,
		},
		{
			name:           "price range is inclusive at both ends",
			spec:           NewQuery(10).WithRange("price", 2500, 3500),
			wantIDs:        []string{"1", "2", "4"},
			wantTotal:      3,
			wantTotalPages: 1,
		},
		{
			name:           "facet ignores its own filter",
			spec:           NewQuery(10).WithFilter("category", "과일").WithFacets("category"),
			wantIDs:        []string{"5"},
			wantTotal:      1,
			wantTotalPages: 1,
			wantFacets:     map[string]int{"채소": 4, "과일": 1},
		},
		{
			name:           "page past the end is empty",
			spec:           NewQuery(2).WithPage(5),
			wantIDs:        []string{},
			wantTotal:      5,
			wantTotalPages: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := Execute(seedRecords(), produceSchema, tt.spec)
			require.NoError(t, err)

			assert.Equal(t, tt.wantIDs, ids(page.Items))
			assert.Equal(t, tt.wantTotal, page.TotalMatched)
			assert.Equal(t, tt.wantTotalPages, page.TotalPages)
			assert.Equal(t, tt.spec.Page, page.Page)
			assert.Equal(t, tt.spec.PageSize, page.PageSize)
			if tt.wantFacets != nil {
				assert.Equal(t, tt.wantFacets, page.FacetCounts["category"])
			}
		})
	}
}

func TestExecute_InvalidQuery(t *testing.T) {
	tests := []struct {
		name string
		spec QuerySpec
	}{
		{"zero page size", QuerySpec{Page: 1, PageSize: 0}},
		{"negative page size", QuerySpec{Page: 1, PageSize: -3}},
		{"zero page", QuerySpec{Page: 0, PageSize: 10}},
		{"unknown sort field", NewQuery(10).WithSort("weight", SortAsc)},
		{"unknown sort order", NewQuery(10).WithSort("price", SortOrder("sideways"))},
		{"unknown filter field", NewQuery(10).WithFilter("color", "red")},
		{"exact filter on numeric field", NewQuery(10).WithFilter("price", "3500")},
		{"unknown range field", NewQuery(10).WithRange("weight", 1, 2)},
		{"range on text field", NewQuery(10).WithRange("name", "a", "b")},
		{"unparseable range bound", NewQuery(10).WithRange("price", "cheap", nil)},
		{"unknown term field", NewQuery(10).WithTerm("x", "title")},
		{"term on numeric field", NewQuery(10).WithTerm("35", "price")},
		{"term without fields", NewQuery(10).WithTerm("토마토")},
		{"facet on numeric field", NewQuery(10).WithFacets("price")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := Execute(seedRecords(), produceSchema, tt.spec)
			require.Error(t, err)
			assert.Nil(t, page)
			assert.True(t, errors.Is(err, ErrInvalidQuery))

			var qerr *QueryError
			assert.True(t, errors.As(err, &qerr))
		})
	}
}

func TestExecute_EmptyDataset(t *testing.T) {
	page, err := Execute(nil, produceSchema, NewQuery(10).WithTerm("토마토", "name"))
	require.NoError(t, err)

	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 0, page.TotalMatched)
	assert.Equal(t, 1, page.TotalPages)
}

func TestExecute_NoConstraintsMatchesEverything(t *testing.T) {
	for size := 1; size <= 6; size++ {
		page, err := Execute(seedRecords(), produceSchema, NewQuery(size))
		require.NoError(t, err)
		assert.Equal(t, 5, page.TotalMatched)
	}
}

func TestExecute_PagesPartitionMatches(t *testing.T) {
	dataset := make([]Record, 0, 23)
	for i := 0; i < 23; i++ {
		dataset = append(dataset, NewRecord(fmt.Sprintf("r%02d", i), map[string]interface{}{
			"name":     fmt.Sprintf("item %d", i),
			"category": []string{"a", "b", "c"}[i%3],
			"price":    (i * 7) % 10,
		}))
	}

	for _, size := range []int{1, 2, 5, 7, 23, 50} {
		t.Run(fmt.Sprintf("page size %d", size), func(t *testing.T) {
			spec := NewQuery(size).WithSort("price", SortDesc).WithFilter("category", "all")
			first, err := Execute(dataset, produceSchema, spec)
			require.NoError(t, err)

			seen := make(map[string]int)
			collected := 0
			for p := 1; p <= first.TotalPages; p++ {
				page, err := Execute(dataset, produceSchema, spec.WithPage(p))
				require.NoError(t, err)
				assert.LessOrEqual(t, len(page.Items), size)
				for _, r := range page.Items {
					seen[r.ID]++
				}
				collected += len(page.Items)
			}

			assert.Equal(t, first.TotalMatched, collected)
			assert.Len(t, seen, collected)
		})
	}
}

func TestExecute_Idempotent(t *testing.T) {
	spec := NewQuery(2).WithTerm("토", "name").WithSort("price", SortDesc).WithFacets("category")

	a, err := Execute(seedRecords(), produceSchema, spec)
	require.NoError(t, err)
	b, err := Execute(seedRecords(), produceSchema, spec)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestExecute_DoesNotMutateDataset(t *testing.T) {
	dataset := seedRecords()
	before := ids(dataset)

	_, err := Execute(dataset, produceSchema, NewQuery(10).WithSort("price", SortDesc))
	require.NoError(t, err)

	assert.Equal(t, before, ids(dataset))
}

func TestExecute_StableSort(t *testing.T) {
	dataset := []Record{
		NewRecord("a", map[string]interface{}{"price": 10}),
		NewRecord("b", map[string]interface{}{"price": 5}),
		NewRecord("c", map[string]interface{}{"price": 10}),
		NewRecord("d", map[string]interface{}{"price": 5}),
		NewRecord("e", map[string]interface{}{"price": 10}),
	}

	asc, err := Execute(dataset, produceSchema, NewQuery(10).WithSort("price", SortAsc))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d", "a", "c", "e"}, ids(asc.Items))

	desc, err := Execute(dataset, produceSchema, NewQuery(10).WithSort("price", SortDesc))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "e", "b", "d"}, ids(desc.Items))
}

func TestExecute_MissingSortValuesGoLast(t *testing.T) {
	dataset := []Record{
		NewRecord("none", map[string]interface{}{"name": "x"}),
		NewRecord("cheap", map[string]interface{}{"price": 1}),
		NewRecord("dear", map[string]interface{}{"price": 9}),
	}

	for _, order := range []SortOrder{SortAsc, SortDesc} {
		page, err := Execute(dataset, produceSchema, NewQuery(10).WithSort("price", order))
		require.NoError(t, err)
		assert.Equal(t, "none", page.Items[2].ID, "order %s", order)
	}
}

func TestExecute_SortByDateAndText(t *testing.T) {
	dataset := []Record{
		NewRecord("mid", map[string]interface{}{"name": "b", "created_at": "2024-02-10"}),
		NewRecord("old", map[string]interface{}{"name": "c", "created_at": "2023-12-31"}),
		NewRecord("new", map[string]interface{}{"name": "a", "created_at": "2024-03-01T09:00:00Z"}),
	}

	byDate, err := Execute(dataset, produceSchema, NewQuery(10).WithSort("created_at", SortDesc))
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "mid", "old"}, ids(byDate.Items))

	byName, err := Execute(dataset, produceSchema, NewQuery(10).WithSort("name", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "mid", "old"}, ids(byName.Items))
}

func TestExecute_KoreanCollation(t *testing.T) {
	dataset := []Record{
		NewRecord("3", map[string]interface{}{"name": "하우스 딸기"}),
		NewRecord("1", map[string]interface{}{"name": "감자"}),
		NewRecord("2", map[string]interface{}{"name": "나물"}),
	}

	engine := NewEngine(WithCollation(language.Korean))
	page, err := engine.Execute(dataset, produceSchema, NewQuery(10).WithSort("name", SortAsc))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, ids(page.Items))
}

func TestExecute_DateRange(t *testing.T) {
	dataset := []Record{
		NewRecord("jan", map[string]interface{}{"created_at": "2024-01-15"}),
		NewRecord("feb", map[string]interface{}{"created_at": "2024-02-01"}),
		NewRecord("mar", map[string]interface{}{"created_at": "2024-03-20"}),
		NewRecord("undated", map[string]interface{}{}),
	}

	page, err := Execute(dataset, produceSchema, NewQuery(10).WithRange("created_at", "2024-02-01", nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"feb", "mar"}, ids(page.Items))

	page, err = Execute(dataset, produceSchema, NewQuery(10).WithRange("created_at", nil, "2024-02-01"))
	require.NoError(t, err)
	assert.Equal(t, []string{"jan", "feb"}, ids(page.Items))
}

func TestExecute_TermMatchesListValuesCaseInsensitively(t *testing.T) {
	dataset := []Record{
		NewRecord("1", map[string]interface{}{"name": "Organic Kale", "tags": []string{"GREENS", "local"}}),
		NewRecord("2", map[string]interface{}{"name": "Apple", "tags": []interface{}{"fruit", "Local"}}),
		NewRecord("3", map[string]interface{}{"name": "Rice"}),
	}

	page, err := Execute(dataset, produceSchema, NewQuery(10).WithTerm("LOCAL", "tags"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(page.Items))

	page, err = Execute(dataset, produceSchema, NewQuery(10).WithTerm("kale", "name", "tags"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(page.Items))
}

func TestExecute_FacetsCombineOtherFilters(t *testing.T) {
	dataset := []Record{
		NewRecord("1", map[string]interface{}{"category": "채소", "status": "active"}),
		NewRecord("2", map[string]interface{}{"category": "채소", "status": "inactive"}),
		NewRecord("3", map[string]interface{}{"category": "과일", "status": "active"}),
		NewRecord("4", map[string]interface{}{"category": "과일", "status": "inactive"}),
		NewRecord("5", map[string]interface{}{"category": "곡물", "status": "active"}),
	}

	spec := NewQuery(10).
		WithFilter("category", "과일").
		WithFilter("status", "active").
		WithFacets("category", "status")
	page, err := Execute(dataset, produceSchema, spec)
	require.NoError(t, err)

	assert.Equal(t, []string{"3"}, ids(page.Items))
	assert.Equal(t, map[string]int{"채소": 1, "과일": 1, "곡물": 1}, page.FacetCounts["category"])
	assert.Equal(t, map[string]int{"active": 1, "inactive": 1}, page.FacetCounts["status"])
}

func TestExecute_UnconstrainedFacetSumsToTotal(t *testing.T) {
	page, err := Execute(seedRecords(), produceSchema, NewQuery(3).WithTerm("토마토", "name"))
	require.NoError(t, err)

	assert.Equal(t, page.TotalMatched, page.FacetCounts.Sum("category"))
}

func TestExecute_DisabledFacets(t *testing.T) {
	page, err := Execute(seedRecords(), produceSchema, NewQuery(3).WithFacets())
	require.NoError(t, err)
	assert.Empty(t, page.FacetCounts)
}

func TestExecute_Highlights(t *testing.T) {
	page, err := Execute(seedRecords(), produceSchema, NewQuery(10).WithTerm("토마토", "name"))
	require.NoError(t, err)

	require.Contains(t, page.Highlights, "1")
	span := page.Highlights["1"]["name"][0]
	assert.Equal(t, "토마토", "신선한 토마토"[span.Start:span.End])

	off, err := NewEngine(WithHighlights(false)).Execute(seedRecords(), produceSchema, NewQuery(10).WithTerm("토마토", "name"))
	require.NoError(t, err)
	assert.Nil(t, off.Highlights)
}

func TestHighlight_FullCaseFolding(t *testing.T) {
	r := NewRecord("1", map[string]interface{}{
		"name": "Straße",
		"tags": []interface{}{"Grüne STRASSE", "none"},
	})

	tests := []struct {
		name  string
		term  string
		field string
		want  []Span
	}{
		{name: "expansion matched as a whole", term: "SS", field: "name", want: []Span{{Start: 4, End: 6}}},
		{name: "partial expansion widened", term: "s", field: "name", want: []Span{{Start: 0, End: 1}, {Start: 4, End: 6}}},
		{name: "folded term against plain text", term: "straße", field: "tags", want: []Span{{Index: 0, Start: 7, End: 14}}},
		{name: "multi-byte prefix", term: "grüne", field: "tags", want: []Span{{Index: 0, Start: 0, End: 6}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Highlight(r, tt.term, []string{tt.field})[tt.field])
		})
	}
}

func TestExecute_EveryMatchIsHighlighted(t *testing.T) {
	schema := Schema{Fields: map[string]FieldKind{"name": KindText}}
	dataset := []Record{
		NewRecord("1", map[string]interface{}{"name": "Straße"}),
		NewRecord("2", map[string]interface{}{"name": "Weg"}),
	}

	page, err := Execute(dataset, schema, NewQuery(10).WithTerm("SS", "name"))
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalMatched)
	for _, item := range page.Items {
		assert.NotEmpty(t, page.Highlights[item.ID], "record %s", item.ID)
	}
}

func TestResultPage_OutOfRange(t *testing.T) {
	page, err := Execute(seedRecords(), produceSchema, NewQuery(10).WithPage(999))
	require.NoError(t, err)

	assert.True(t, page.OutOfRange())
	assert.Equal(t, 999, page.Page)
	assert.Equal(t, 5, page.TotalMatched)
	assert.Empty(t, page.Items)
}
