package catalog

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// termMatcher tests the substring condition. A cases.Caser is not safe for
// concurrent use, so one is built per Execute call.
type termMatcher struct {
	folded string
	fields []string
	caser  cases.Caser
}

func newTermMatcher(term string, fields []string) *termMatcher {
	if term == "" {
		return nil
	}
	c := cases.Fold()
	return &termMatcher{
		folded: c.String(term),
		fields: fields,
		caser:  c,
	}
}

func (m *termMatcher) match(r Record) bool {
	if m == nil {
		return true
	}
	for _, f := range m.fields {
		v, ok := r.Get(f)
		if !ok {
			continue
		}
		for _, s := range stringValues(v) {
			if strings.Contains(m.caser.String(s), m.folded) {
				return true
			}
		}
	}
	return false
}

func exactMatch(r Record, field, want string) bool {
	if want == All || want == "" {
		return true
	}
	v, ok := r.Get(field)
	if !ok {
		return false
	}
	for _, s := range stringValues(v) {
		if s == want {
			return true
		}
	}
	return false
}

type rangeCheck struct {
	field    string
	kind     FieldKind
	min, max float64
	hasMin   bool
	hasMax   bool
	tmin     time.Time
	tmax     time.Time
}

func newRangeCheck(field string, kind FieldKind, r Range) rangeCheck {
	rc := rangeCheck{field: field, kind: kind}
	switch kind {
	case KindNumeric:
		if r.Min != nil {
			rc.min, rc.hasMin = numberValue(r.Min)
		}
		if r.Max != nil {
			rc.max, rc.hasMax = numberValue(r.Max)
		}
	case KindDate:
		if r.Min != nil {
			rc.tmin, rc.hasMin = dateValue(r.Min)
		}
		if r.Max != nil {
			rc.tmax, rc.hasMax = dateValue(r.Max)
		}
	}
	return rc
}

// match reports whether the record's value lies inside the range, both ends
// inclusive. A record without a usable value never matches.
func (rc rangeCheck) match(r Record) bool {
	v, ok := r.Get(rc.field)
	if !ok {
		return false
	}
	switch rc.kind {
	case KindNumeric:
		n, ok := numberValue(v)
		if !ok {
			return false
		}
		if rc.hasMin && n < rc.min {
			return false
		}
		if rc.hasMax && n > rc.max {
			return false
		}
		return true
	case KindDate:
		t, ok := dateValue(v)
		if !ok {
			return false
		}
		if rc.hasMin && t.Before(rc.tmin) {
			return false
		}
		if rc.hasMax && t.After(rc.tmax) {
			return false
		}
		return true
	}
	return false
}

// Span marks one occurrence of the search term inside a text value. Index
// is the element position for list fields and 0 for plain strings. Start and
// End are byte offsets into that element.
type Span struct {
	Index int `json:"index"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Highlight returns the non-overlapping case-insensitive occurrences of term
// in each of the given fields of r. Fields without an occurrence are omitted.
// Folding is the same full Unicode folding the term matcher uses, so every
// matching record gets at least one span.
func Highlight(r Record, term string, fields []string) map[string][]Span {
	if term == "" {
		return nil
	}
	c := cases.Fold()
	folded := c.String(term)
	out := make(map[string][]Span)
	for _, f := range fields {
		v, ok := r.Get(f)
		if !ok {
			continue
		}
		for i, s := range stringValues(v) {
			for _, sp := range findFold(c, s, folded) {
				sp.Index = i
				out[f] = append(out[f], sp)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// findFold locates folded term in the folded form of s and maps each hit
// back to byte offsets of s. A hit that starts or ends inside the expansion
// of one rune (ß folds to ss) is widened to cover the whole rune.
func findFold(c cases.Caser, s, term string) []Span {
	var (
		fb       strings.Builder
		runeFrom []int
		runeTo   []int
	)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		f := c.String(string(r))
		fb.WriteString(f)
		for k := 0; k < len(f); k++ {
			runeFrom = append(runeFrom, i)
			runeTo = append(runeTo, i+size)
		}
		i += size
	}
	fs := fb.String()

	var spans []Span
	lastEnd := 0
	for off := 0; off < len(fs); {
		idx := strings.Index(fs[off:], term)
		if idx < 0 {
			break
		}
		a := off + idx
		b := a + len(term)
		start, end := runeFrom[a], runeTo[b-1]
		if start >= lastEnd {
			spans = append(spans, Span{Start: start, End: end})
			lastEnd = end
		}
		off = b
	}
	return spans
}
