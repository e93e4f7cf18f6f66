package aggregate

import (
	"sort"

	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// Distribution maps a normalized query to observation counts per catalog id.
// Missing queries and ids read as zero; Add creates them on first use.
// All stored counts are positive.
type Distribution map[string]map[int]uint32

// Add increments the count of id for query.
func (d Distribution) Add(query string, id int) {
	counts := d[query]
	if counts == nil {
		counts = make(map[int]uint32)
		d[query] = counts
	}
	counts[id]++
}

// Count returns the count of id for query, zero if unseen.
func (d Distribution) Count(query string, id int) uint32 {
	return d[query][id]
}

// Merge adds every count of other into d.
func (d Distribution) Merge(other Distribution) {
	for q, counts := range other {
		dst := d[q]
		if dst == nil {
			dst = make(map[int]uint32, len(counts))
			d[q] = dst
		}
		for id, n := range counts {
			dst[id] += n
		}
	}
}

// Queries returns the distinct queries, sorted.
func (d Distribution) Queries() []string {
	qs := make([]string, 0, len(d))
	for q := range d {
		qs = append(qs, q)
	}
	sort.Strings(qs)
	return qs
}

// Len returns the number of distinct queries.
func (d Distribution) Len() int { return len(d) }

// Total returns the number of observations counted.
func (d Distribution) Total() int {
	total := 0
	for _, counts := range d {
		for _, n := range counts {
			total += int(n)
		}
	}
	return total
}

// EvaluationPairs expands d into one labeled query per distinct (query, id):
// queries sorted, ids ascending within a query.
func (d Distribution) EvaluationPairs() []ports.LabeledQuery {
	var out []ports.LabeledQuery
	for _, q := range d.Queries() {
		ids := sortedIDs(d[q])
		for _, id := range ids {
			out = append(out, ports.LabeledQuery{Query: q, Result: id})
		}
	}
	return out
}

func sortedIDs(counts map[int]uint32) []int {
	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
