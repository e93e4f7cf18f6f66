// Package rank turns a query into an ordered, deduplicated list of catalog
// names. Four strategies are available: substring, fuzzy (edit distance),
// learned (an external scorer) and an ensemble merging fuzzy with learned.
//
// Confidences are strategy-specific. They are only compared across
// strategies inside Merge.
package rank

// Candidate is one ranked catalog name.
type Candidate struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Names projects candidates to their names, preserving order.
func Names(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

// Position returns the index of name in cs, or -1.
func Position(cs []Candidate, name string) int {
	for i, c := range cs {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// dedupe keeps the first occurrence of every name.
func dedupe(cs []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(cs))
	out := cs[:0:0]
	for _, c := range cs {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}

func truncate(cs []Candidate, limit int) []Candidate {
	if limit > 0 && len(cs) > limit {
		return cs[:limit]
	}
	return cs
}
