package catalog

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type sortKey struct {
	present bool
	num     float64
	date    time.Time
	text    string
}

func extractKey(r Record, field string, kind FieldKind) sortKey {
	v, ok := r.Get(field)
	if !ok {
		return sortKey{}
	}
	switch kind {
	case KindNumeric:
		n, ok := numberValue(v)
		return sortKey{present: ok, num: n}
	case KindDate:
		t, ok := dateValue(v)
		return sortKey{present: ok, date: t}
	default:
		// List values sort by their first element.
		vals := stringValues(v)
		if len(vals) == 0 {
			return sortKey{}
		}
		return sortKey{present: true, text: vals[0]}
	}
}

// textComparer orders text keys. Without a collation tag it is plain
// code-point order. A collate.Collator is not safe for concurrent use, so
// one is built per call.
func textComparer(tag *language.Tag) func(a, b string) int {
	if tag == nil {
		return strings.Compare
	}
	c := collate.New(*tag)
	return c.CompareString
}

// sortRecords stable-sorts rows in place by field. Records lacking the field
// go last in both orders.
func sortRecords(rows []Record, field string, kind FieldKind, order SortOrder, tag *language.Tag) {
	keys := make([]sortKey, len(rows))
	for i, r := range rows {
		keys[i] = extractKey(r, field, kind)
	}
	compareText := textComparer(tag)

	cmp := func(a, b sortKey) int {
		switch kind {
		case KindNumeric:
			switch {
			case a.num < b.num:
				return -1
			case a.num > b.num:
				return 1
			}
			return 0
		case KindDate:
			return a.date.Compare(b.date)
		default:
			return compareText(a.text, b.text)
		}
	}

	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := keys[idx[i]], keys[idx[j]]
		if a.present != b.present {
			return a.present
		}
		if !a.present {
			return false
		}
		c := cmp(a, b)
		if order == SortDesc {
			return c > 0
		}
		return c < 0
	})

	sorted := make([]Record, len(rows))
	for i, k := range idx {
		sorted[i] = rows[k]
	}
	copy(rows, sorted)
}
