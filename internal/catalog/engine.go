package catalog

import (
	"sort"

	"golang.org/x/text/language"
)

type ResultPage struct {
	Items        []Record                     `json:"items"`
	TotalMatched int                          `json:"total_matched"`
	FacetCounts  FacetCounts                  `json:"facet_counts"`
	Page         int                          `json:"page"`
	PageSize     int                          `json:"page_size"`
	TotalPages   int                          `json:"total_pages"`
	Highlights   map[string]map[string][]Span `json:"highlights,omitempty"`
}

// OutOfRange reports whether the requested page lies past the last page.
func (p *ResultPage) OutOfRange() bool {
	return p.Page > p.TotalPages
}

type Engine struct {
	collation *language.Tag
	highlight bool
}

type Option func(*Engine)

// WithCollation orders text sort keys by the given locale instead of
// code-point order.
func WithCollation(tag language.Tag) Option {
	return func(e *Engine) {
		t := tag
		e.collation = &t
	}
}

func WithHighlights(enabled bool) Option {
	return func(e *Engine) {
		e.highlight = enabled
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{highlight: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine()

// Execute runs spec over dataset with the default engine.
func Execute(dataset []Record, schema Schema, spec QuerySpec) (*ResultPage, error) {
	return defaultEngine.Execute(dataset, schema, spec)
}

// Execute filters, sorts, counts and paginates dataset. The returned page
// never aliases the dataset slice. It fails only with a *QueryError.
func (e *Engine) Execute(dataset []Record, schema Schema, spec QuerySpec) (*ResultPage, error) {
	if err := spec.Validate(schema); err != nil {
		return nil, err
	}

	term := newTermMatcher(spec.Term, spec.TermFields)
	ranges := make([]rangeCheck, 0, len(spec.RangeFilters))
	for _, f := range sortedKeys(spec.RangeFilters) {
		kind, _ := schema.Kind(f)
		ranges = append(ranges, newRangeCheck(f, kind, spec.RangeFilters[f]))
	}
	exactFields := make([]string, 0, len(spec.ExactFilters))
	for _, f := range sortedKeys(spec.ExactFilters) {
		if v := spec.ExactFilters[f]; v != All && v != "" {
			exactFields = append(exactFields, f)
		}
	}
	facetFields := spec.facetFields(schema)

	var cands []candidate
	matched := make([]Record, 0)
	for _, r := range dataset {
		if !term.match(r) || !inRanges(r, ranges) {
			continue
		}
		var failing []string
		for _, f := range exactFields {
			if !exactMatch(r, f, spec.ExactFilters[f]) {
				failing = append(failing, f)
			}
		}
		if len(failing) == 0 {
			matched = append(matched, r)
		}
		if len(facetFields) > 0 && len(failing) <= 1 {
			cands = append(cands, candidate{record: r, failing: failing})
		}
	}

	if spec.Sort != nil {
		kind, _ := schema.Kind(spec.Sort.Field)
		sortRecords(matched, spec.Sort.Field, kind, spec.Sort.Order, e.collation)
	}

	page := &ResultPage{
		Items:        []Record{},
		TotalMatched: len(matched),
		FacetCounts:  countFacets(cands, facetFields),
		Page:         spec.Page,
		PageSize:     spec.PageSize,
		TotalPages:   totalPages(len(matched), spec.PageSize),
	}
	if spec.Page <= page.TotalPages {
		start := (spec.Page - 1) * spec.PageSize
		end := start + spec.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		if start < end {
			page.Items = append(page.Items, matched[start:end]...)
		}
	}

	if e.highlight && spec.Term != "" && len(page.Items) > 0 {
		page.Highlights = make(map[string]map[string][]Span)
		for _, r := range page.Items {
			if h := Highlight(r, spec.Term, spec.TermFields); h != nil {
				page.Highlights[r.ID] = h
			}
		}
	}
	return page, nil
}

func inRanges(r Record, ranges []rangeCheck) bool {
	for _, rc := range ranges {
		if !rc.match(r) {
			return false
		}
	}
	return true
}

func totalPages(total, pageSize int) int {
	if total == 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
