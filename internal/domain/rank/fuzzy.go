package rank

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"

	"github.com/mommothazaz123/avrae-search-nn/internal/domain/catalog"
)

// Fuzzy metric names.
const (
	MetricRatio       = "ratio"
	MetricLevenshtein = "levenshtein"
	MetricJaroWinkler = "jaro-winkler"
)

// DefaultFuzzyLimit matches the extractor the learned models were compared
// against.
const DefaultFuzzyLimit = 5

// FuzzyOptions configures Fuzzy. The zero value uses the ratio metric and
// no limit.
type FuzzyOptions struct {
	Metric string
	// Limit caps the result; <= 0 returns every name.
	Limit int
}

// Similarity scores two pre-processed strings in [0, 100].
type Similarity func(a, b string) int

// SimilarityFor resolves a metric name.
func SimilarityFor(metric string) (Similarity, error) {
	switch metric {
	case "", MetricRatio:
		return ratio, nil
	case MetricLevenshtein:
		return levenshtein, nil
	case MetricJaroWinkler:
		return jaroWinkler, nil
	default:
		return nil, fmt.Errorf("unknown fuzzy metric %q", metric)
	}
}

// Fuzzy scores every name against query and returns them best first. Ties
// keep catalog order. Confidence is the raw 0-100 score.
func Fuzzy(u *catalog.Universe, query string, opts FuzzyOptions) ([]Candidate, error) {
	sim, err := SimilarityFor(opts.Metric)
	if err != nil {
		return nil, err
	}
	q := process(query)

	out := make([]Candidate, 0, u.Size())
	for _, name := range u.Names() {
		score := 0
		if q != "" {
			score = sim(q, process(name))
		}
		out = append(out, Candidate{Name: name, Confidence: float64(score)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return truncate(dedupe(out), opts.Limit), nil
}

// process lower-cases s, replaces anything that is not a letter or digit
// with a space and trims the result.
func process(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

// ratio is the InDel similarity: 2*LCS / (len(a)+len(b)), rounded half to
// even.
func ratio(a, b string) int {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	lcs := edlib.LCS(a, b)
	return int(math.RoundToEven(100 * 2 * float64(lcs) / float64(total)))
}

func levenshtein(a, b string) int {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 100
	}
	d := edlib.LevenshteinDistance(a, b)
	return int(math.RoundToEven(100 * (1 - float64(d)/float64(longest))))
}

func jaroWinkler(a, b string) int {
	return int(math.RoundToEven(100 * float64(edlib.JaroWinklerSimilarity(a, b))))
}
