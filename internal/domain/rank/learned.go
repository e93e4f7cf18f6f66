package rank

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mommothazaz123/avrae-search-nn/internal/domain/canon"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/catalog"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// DefaultLearnedLimit is how many candidates the pure learned strategy keeps.
const DefaultLearnedLimit = 10

// CatalogMismatchError reports a scorer trained against a catalog of a
// different size than the one it is asked to rank.
type CatalogMismatchError struct {
	Scorer   string
	Expected int
	Got      int
}

func (e *CatalogMismatchError) Error() string {
	return fmt.Sprintf("scorer %q: catalog size %d, scorer emits %d", e.Scorer, e.Expected, e.Got)
}

// Learned encodes query the way scorer was trained, predicts one weight per
// catalog id and returns names by weight descending, ties by id ascending.
// limit <= 0 keeps every id.
func Learned(u *catalog.Universe, c *canon.Canonicalizer, query string, scorer ports.Scorer, limit int) ([]Candidate, error) {
	d := scorer.Descriptor()
	if d.CatalogSize > 0 && d.CatalogSize != u.Size() {
		return nil, &CatalogMismatchError{Scorer: d.Name, Expected: u.Size(), Got: d.CatalogSize}
	}

	x, err := EncodeFor(c, d, query)
	if err != nil {
		return nil, err
	}
	weights, err := scorer.Predict(x)
	if err != nil {
		return nil, fmt.Errorf("predict %q: %w", d.Name, err)
	}
	if len(weights) != u.Size() {
		return nil, &CatalogMismatchError{Scorer: d.Name, Expected: u.Size(), Got: len(weights)}
	}

	ids := make([]int, len(weights))
	for i := range ids {
		ids[i] = i
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return weights[ids[i]] > weights[ids[j]]
	})
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	out := make([]Candidate, len(ids))
	names := u.Names()
	for i, id := range ids {
		out[i] = Candidate{Name: names[id], Confidence: weights[id]}
	}
	return out, nil
}

// EncodeFor normalizes query and encodes it with the alphabet, mode and
// width recorded in d.
func EncodeFor(c *canon.Canonicalizer, d ports.ScorerDescriptor, query string) ([]float64, error) {
	a, err := canon.ByName(d.Alphabet)
	if err != nil {
		return nil, fmt.Errorf("scorer %q: %w", d.Name, err)
	}
	mode, err := canon.ParseMode(d.Mode)
	if err != nil {
		return nil, fmt.Errorf("scorer %q: %w", d.Name, err)
	}
	width := c.Length()
	if d.InputLength > 0 {
		width = d.InputLength
	}
	return canon.Encode(c.Normalize(query), a, mode, width)
}

type serialized struct {
	mu    sync.Mutex
	inner ports.Scorer
}

// Serialized wraps a scorer that is not safe for concurrent Predict calls.
func Serialized(s ports.Scorer) ports.Scorer {
	return &serialized{inner: s}
}

func (s *serialized) Descriptor() ports.ScorerDescriptor { return s.inner.Descriptor() }

func (s *serialized) Predict(x []float64) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Predict(x)
}
