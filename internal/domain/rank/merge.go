package rank

import "sort"

// mergeEpsilon floors the fuzzy confidence sum so an all-zero fuzzy result
// does not divide by zero.
const mergeEpsilon = 0.001

// Merge combines fuzzy and scorer candidates. Fuzzy confidences are divided
// by their sum to bring them to a probability-like scale; scorer
// confidences are kept. The concatenation (fuzzy first) is stable-sorted by
// confidence and each name keeps its first, highest-confidence occurrence.
func Merge(fuzzy, scored []Candidate) []Candidate {
	var sum float64
	for _, c := range fuzzy {
		sum += c.Confidence
	}
	sum = max(sum, mergeEpsilon)

	all := make([]Candidate, 0, len(fuzzy)+len(scored))
	for _, c := range fuzzy {
		all = append(all, Candidate{Name: c.Name, Confidence: c.Confidence / sum})
	}
	all = append(all, scored...)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Confidence > all[j].Confidence
	})
	return dedupe(all)
}
