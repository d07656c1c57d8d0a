package handlers

import (
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/sumandas0/farmstore/internal/catalog"
	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/security"
)

const DefaultMaxPageSize = 100

// ListingParser turns storefront query strings into QuerySpecs. It never
// rejects a request: malformed or unknown parameters fall back to their
// defaults so the engine only sees well-formed specs.
type ListingParser struct {
	sanitizer   *security.InputSanitizer
	maxPageSize int
}

func NewListingParser(sanitizer *security.InputSanitizer, maxPageSize int) *ListingParser {
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	return &ListingParser{sanitizer: sanitizer, maxPageSize: maxPageSize}
}

func (p *ListingParser) Parse(def *models.Collection, values url.Values) catalog.QuerySpec {
	spec := catalog.NewQuery(p.pageSize(values.Get("page_size"), def.DefaultPageSize))
	spec.Page = p.page(values.Get("page"))

	if term := p.term(values.Get("q")); term != "" {
		spec = spec.WithTerm(term, def.TermFields...)
	}

	for _, field := range def.Schema.FieldsOfKind(catalog.KindCategorical) {
		value := strings.TrimSpace(values.Get(field))
		if value == "" || value == catalog.All || !def.KnownValue(field, value) {
			continue
		}
		spec = spec.WithFilter(field, value)
	}

	for _, field := range def.Schema.FieldsOfKind(catalog.KindNumeric, catalog.KindDate) {
		kind, _ := def.Schema.Kind(field)
		lo := rangeBound(kind, values.Get(field+"_min"), false)
		hi := rangeBound(kind, values.Get(field+"_max"), true)
		if lo == nil && hi == nil {
			continue
		}
		spec = spec.WithRange(field, lo, hi)
	}

	spec.Sort = sortOption(def, values.Get("sort"))
	return spec
}

func (p *ListingParser) page(raw string) int {
	page, err := cast.ToIntE(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func (p *ListingParser) pageSize(raw string, def int) int {
	size, err := cast.ToIntE(strings.TrimSpace(raw))
	if err != nil || raw == "" {
		size = def
	}
	return min(max(size, 1), p.maxPageSize)
}

func (p *ListingParser) term(raw string) string {
	term, err := p.sanitizer.SanitizeTerm(raw)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(term)
}

// rangeBound returns nil for absent or unparseable bounds, which leaves that
// side of the range open. A date-only upper bound covers its whole day.
func rangeBound(kind catalog.FieldKind, raw string, upper bool) interface{} {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	switch kind {
	case catalog.KindNumeric:
		if f, err := cast.ToFloat64E(raw); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	case catalog.KindDate:
		if t, err := cast.ToTimeE(raw); err == nil && !t.IsZero() {
			if day, err := time.Parse(time.DateOnly, raw); upper && err == nil {
				return day.AddDate(0, 0, 1).Add(-time.Nanosecond).Format(time.RFC3339Nano)
			}
			return raw
		}
	}
	return nil
}

// sortOption resolves a preset name, "field" or "field:asc|desc". Anything
// else falls back to the collection's "latest" preset.
func sortOption(def *models.Collection, raw string) *catalog.SortOption {
	raw = strings.TrimSpace(raw)
	if preset, ok := def.SortPresets[raw]; ok {
		return preset
	}

	field, order, hasOrder := strings.Cut(raw, ":")
	if _, ok := def.Schema.Kind(field); ok && field != "" {
		switch catalog.SortOrder(order) {
		case catalog.SortAsc, catalog.SortDesc:
			return &catalog.SortOption{Field: field, Order: catalog.SortOrder(order)}
		default:
			if !hasOrder {
				return &catalog.SortOption{Field: field, Order: catalog.SortAsc}
			}
		}
	}
	return def.SortPresets["latest"]
}
