// Package memo provides a lookup-table scorer: it memorizes the label vector
// of every query seen during aggregation and answers with it verbatim. It
// needs no runtime and serves as a reference point for learned models: a
// model that cannot beat memorization on its own training queries is broken.
package memo

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mommothazaz123/avrae-search-nn/internal/domain/canon"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/label"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// Scorer maps an encoded query to its memorized label vector. Unseen
// queries score zero everywhere. Read-only after construction.
type Scorer struct {
	desc  ports.ScorerDescriptor
	table map[string][]float64
	size  int
}

var _ ports.Scorer = (*Scorer)(nil)

// New builds the table from a distribution over a universe of size ids,
// encoding each query as d describes. d.CatalogSize is set to size.
func New(d ports.ScorerDescriptor, c *canon.Canonicalizer, dist map[string]map[int]uint32, size int) (*Scorer, error) {
	a, err := canon.ByName(d.Alphabet)
	if err != nil {
		return nil, err
	}
	mode, err := canon.ParseMode(d.Mode)
	if err != nil {
		return nil, err
	}
	if d.InputLength == 0 {
		d.InputLength = c.Length()
	}
	d.CatalogSize = size

	table := make(map[string][]float64, len(dist))
	for q, counts := range dist {
		x, err := canon.Encode(q, a, mode, d.InputLength)
		if err != nil {
			return nil, fmt.Errorf("memo %q: %w", q, err)
		}
		y, err := label.Vectorize(counts, size)
		if err != nil {
			return nil, fmt.Errorf("memo %q: %w", q, err)
		}
		table[key(x)] = y
	}
	return &Scorer{desc: d, table: table, size: size}, nil
}

// Descriptor returns the descriptor the table was built with.
func (s *Scorer) Descriptor() ports.ScorerDescriptor { return s.desc }

// Len is the number of memorized queries.
func (s *Scorer) Len() int { return len(s.table) }

// Predict returns a copy of the memorized vector, or zeros.
func (s *Scorer) Predict(x []float64) ([]float64, error) {
	out := make([]float64, s.size)
	if y, ok := s.table[key(x)]; ok {
		copy(out, y)
	}
	return out, nil
}

func key(x []float64) string {
	b := make([]byte, 8*len(x))
	for i, v := range x {
		binary.LittleEndian.PutUint64(b[8*i:], math.Float64bits(v))
	}
	return string(b)
}
