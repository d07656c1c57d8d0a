package catalog

// FacetCounts maps a facet field to per-value record counts.
type FacetCounts map[string]map[string]int

// Sum returns the total over all values of field.
func (fc FacetCounts) Sum(field string) int {
	total := 0
	for _, n := range fc[field] {
		total += n
	}
	return total
}

// candidate is a record that passed the term and range stages, together with
// the exact filters it fails.
type candidate struct {
	record  Record
	failing []string
}

// countFacets counts, per facet field, the candidates that pass every exact
// filter except possibly that field's own. A record carrying a list value
// contributes once to each distinct element.
func countFacets(cands []candidate, fields []string) FacetCounts {
	counts := make(FacetCounts, len(fields))
	for _, f := range fields {
		counts[f] = make(map[string]int)
	}
	for _, c := range cands {
		if len(c.failing) > 1 {
			continue
		}
		for _, f := range fields {
			if len(c.failing) == 1 && c.failing[0] != f {
				continue
			}
			v, ok := c.record.Get(f)
			if !ok {
				continue
			}
			seen := make(map[string]struct{}, 1)
			for _, s := range stringValues(v) {
				if _, dup := seen[s]; dup {
					continue
				}
				seen[s] = struct{}{}
				counts[f][s]++
			}
		}
	}
	return counts
}
