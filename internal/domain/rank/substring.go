package rank

import (
	"strings"
	"unicode/utf8"

	"github.com/mommothazaz123/avrae-search-nn/internal/domain/catalog"
)

// Substring ranks case-insensitive exact matches first, then names that
// contain the query, each group in catalog order. Confidence is the query
// length over the name length.
func Substring(u *catalog.Universe, query string) []Candidate {
	lower := strings.ToLower(query)
	qlen := float64(utf8.RuneCountInString(query))

	exact := u.Exact(lower)
	seen := make(map[int]struct{}, len(exact))
	out := make([]Candidate, 0, len(exact))
	for _, id := range exact {
		seen[id] = struct{}{}
		out = append(out, substringCandidate(u.Names()[id], qlen))
	}

	for _, id := range u.Containing(lower) {
		if _, ok := seen[id]; ok {
			continue
		}
		out = append(out, substringCandidate(u.Names()[id], qlen))
	}
	return dedupe(out)
}

func substringCandidate(name string, qlen float64) Candidate {
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return Candidate{Name: name}
	}
	return Candidate{Name: name, Confidence: qlen / float64(n)}
}

// Complete returns catalog names whose lower-cased form starts with prefix,
// in catalog order.
func Complete(u *catalog.Universe, prefix string, limit int) []string {
	ids := u.WithPrefix(strings.ToLower(prefix))
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = u.Names()[id]
	}
	return out
}
