package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
)

// All is the exact-filter value that leaves a field unconstrained.
const All = "all"

var ErrInvalidQuery = errors.New("invalid query")

// QueryError describes a structurally invalid QuerySpec. It unwraps to
// ErrInvalidQuery.
type QueryError struct {
	Field  string
	Reason string
}

func (e *QueryError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid query: %s", e.Reason)
	}
	return fmt.Sprintf("invalid query: field %q: %s", e.Field, e.Reason)
}

func (e *QueryError) Unwrap() error {
	return ErrInvalidQuery
}

func invalid(field, format string, args ...interface{}) error {
	return &QueryError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type SortOption struct {
	Field string    `json:"field" validate:"required"`
	Order SortOrder `json:"order,omitempty" validate:"omitempty,oneof=asc desc"`
}

// Range is an inclusive bound pair. A nil side is unconstrained.
type Range struct {
	Min interface{} `json:"min,omitempty"`
	Max interface{} `json:"max,omitempty"`
}

type QuerySpec struct {
	Term         string            `json:"term,omitempty"`
	TermFields   []string          `json:"term_fields,omitempty"`
	ExactFilters map[string]string `json:"exact_filters,omitempty"`
	RangeFilters map[string]Range  `json:"range_filters,omitempty"`
	Sort         *SortOption       `json:"sort,omitempty"`
	Page         int               `json:"page"`
	PageSize     int               `json:"page_size"`
	// Facets lists the categorical fields to count. Nil falls back to the
	// schema's declared facets; an empty non-nil slice disables counting.
	Facets []string `json:"facets,omitempty"`
}

func NewQuery(pageSize int) QuerySpec {
	return QuerySpec{Page: 1, PageSize: pageSize}
}

func (q QuerySpec) WithTerm(term string, fields ...string) QuerySpec {
	q.Term = term
	q.TermFields = append([]string(nil), fields...)
	return q
}

func (q QuerySpec) WithFilter(field, value string) QuerySpec {
	filters := make(map[string]string, len(q.ExactFilters)+1)
	for k, v := range q.ExactFilters {
		filters[k] = v
	}
	filters[field] = value
	q.ExactFilters = filters
	return q
}

func (q QuerySpec) WithRange(field string, min, max interface{}) QuerySpec {
	ranges := make(map[string]Range, len(q.RangeFilters)+1)
	for k, v := range q.RangeFilters {
		ranges[k] = v
	}
	ranges[field] = Range{Min: min, Max: max}
	q.RangeFilters = ranges
	return q
}

func (q QuerySpec) WithSort(field string, order SortOrder) QuerySpec {
	q.Sort = &SortOption{Field: field, Order: order}
	return q
}

func (q QuerySpec) WithPage(page int) QuerySpec {
	q.Page = page
	return q
}

func (q QuerySpec) WithFacets(fields ...string) QuerySpec {
	q.Facets = append([]string{}, fields...)
	return q
}

// Key returns a canonical string for the spec, suitable as a cache key.
// Map fields are emitted in sorted key order.
func (q QuerySpec) Key() string {
	b, err := json.Marshal(q)
	if err != nil {
		return fmt.Sprintf("%+v", q)
	}
	// omitempty hides the difference between nil and empty Facets.
	if q.Facets != nil && len(q.Facets) == 0 {
		return string(b) + "|nofacets"
	}
	return string(b)
}

func (q QuerySpec) facetFields(schema Schema) []string {
	if q.Facets != nil {
		return q.Facets
	}
	return schema.Facets
}

// Validate checks the spec against the schema without touching any data.
func (q QuerySpec) Validate(schema Schema) error {
	if q.PageSize <= 0 {
		return invalid("", "page size must be positive, got %d", q.PageSize)
	}
	if q.Page <= 0 {
		return invalid("", "page must be positive, got %d", q.Page)
	}

	if q.Term != "" && len(q.TermFields) == 0 {
		return invalid("", "term %q needs at least one term field", q.Term)
	}
	for _, f := range q.TermFields {
		kind, ok := schema.Kind(f)
		if !ok {
			return invalid(f, "unknown term field")
		}
		if kind != KindText && kind != KindCategorical {
			return invalid(f, "term field must be text or categorical, is %s", kind)
		}
	}
	for f := range q.ExactFilters {
		kind, ok := schema.Kind(f)
		if !ok {
			return invalid(f, "unknown filter field")
		}
		if kind != KindCategorical {
			return invalid(f, "exact filter requires a categorical field, is %s", kind)
		}
	}

	for f, r := range q.RangeFilters {
		kind, ok := schema.Kind(f)
		if !ok {
			return invalid(f, "unknown range field")
		}
		if err := validateRange(f, kind, r); err != nil {
			return err
		}
	}

	if q.Sort != nil {
		if _, ok := schema.Kind(q.Sort.Field); !ok {
			return invalid(q.Sort.Field, "unknown sort field")
		}
		switch q.Sort.Order {
		case "", SortAsc, SortDesc:
		default:
			return invalid(q.Sort.Field, "unknown sort order %q", q.Sort.Order)
		}
	}

	for _, f := range q.facetFields(schema) {
		kind, ok := schema.Kind(f)
		if !ok {
			return invalid(f, "unknown facet field")
		}
		if kind != KindCategorical {
			return invalid(f, "facet requires a categorical field, is %s", kind)
		}
	}
	return nil
}

func validateRange(field string, kind FieldKind, r Range) error {
	var check func(interface{}) bool
	switch kind {
	case KindNumeric:
		check = func(v interface{}) bool { _, ok := numberValue(v); return ok }
	case KindDate:
		check = func(v interface{}) bool { _, ok := dateValue(v); return ok }
	default:
		return invalid(field, "range filter requires a numeric or date field, is %s", kind)
	}
	if r.Min != nil && !check(r.Min) {
		return invalid(field, "range min %v is not a %s value", r.Min, kind)
	}
	if r.Max != nil && !check(r.Max) {
		return invalid(field, "range max %v is not a %s value", r.Max, kind)
	}
	return nil
}
