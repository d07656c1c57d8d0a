// Package catalog implements the listing query pipeline shared by every
// catalog surface: term match, filter, stable sort, facet counts and
// pagination over an in-memory snapshot of uniform records.
//
// The engine is a pure transform. It never mutates the dataset it is given
// and keeps no state between calls, so a single Engine may be used from many
// goroutines at once.
package catalog

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cast"
)

type FieldKind string

const (
	KindText        FieldKind = "text"
	KindCategorical FieldKind = "categorical"
	KindNumeric     FieldKind = "numeric"
	KindDate        FieldKind = "date"
)

func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindCategorical, KindNumeric, KindDate:
		return true
	}
	return false
}

// Record is one listing entry. Text and categorical fields hold a string or
// a list of strings; numeric fields anything cast can turn into a float64;
// date fields a time.Time or a parseable date string.
type Record struct {
	ID     string                 `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

func NewRecord(id string, fields map[string]interface{}) Record {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	return Record{ID: id, Fields: fields}
}

func (r Record) Get(field string) (interface{}, bool) {
	if field == "id" {
		return r.ID, true
	}
	v, ok := r.Fields[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Schema declares the kind of every queryable field of a collection and
// which categorical fields get facet counts by default.
type Schema struct {
	Name   string               `json:"name"`
	Fields map[string]FieldKind `json:"fields"`
	Facets []string             `json:"facets,omitempty"`
}

func (s Schema) Kind(field string) (FieldKind, bool) {
	k, ok := s.Fields[field]
	return k, ok
}

func (s Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Schema) FieldsOfKind(kinds ...FieldKind) []string {
	var names []string
	for _, name := range s.FieldNames() {
		k := s.Fields[name]
		for _, want := range kinds {
			if k == want {
				names = append(names, name)
				break
			}
		}
	}
	return names
}

func (s Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema name is required")
	}
	for name, kind := range s.Fields {
		if !kind.Valid() {
			return fmt.Errorf("schema %s: field %s has unknown kind %q", s.Name, name, kind)
		}
	}
	for _, f := range s.Facets {
		if k, ok := s.Fields[f]; !ok || k != KindCategorical {
			return fmt.Errorf("schema %s: facet %s is not a categorical field", s.Name, f)
		}
	}
	return nil
}

func stringValues(v interface{}) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, cast.ToString(item))
		}
		return out
	default:
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil
		}
		return []string{s}
	}
}

func numberValue(v interface{}) (float64, bool) {
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

func dateValue(v interface{}) (time.Time, bool) {
	t, err := cast.ToTimeE(v)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}
