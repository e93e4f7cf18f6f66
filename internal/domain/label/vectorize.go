// Package label turns an id-count distribution into the normalized
// probability vector used as a training target.
package label

import (
	"errors"
	"fmt"
)

// ErrEmptyDistribution is returned for a distribution whose counts sum to
// zero. Callers filter such queries out before vectorizing.
var ErrEmptyDistribution = errors.New("empty distribution")

// RangeError reports an id outside the universe.
type RangeError struct {
	ID   int
	Size int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("id %d outside universe of size %d", e.ID, e.Size)
}

// Vectorize returns a vector of length size where entry id is
// counts[id]/total. The entries sum to 1.
func Vectorize(counts map[int]uint32, size int) ([]float64, error) {
	vec := make([]float64, size)
	var total float64
	for id, n := range counts {
		if id < 0 || id >= size {
			return nil, &RangeError{ID: id, Size: size}
		}
		vec[id] = float64(n)
		total += float64(n)
	}
	if total == 0 {
		return nil, ErrEmptyDistribution
	}
	for i := range vec {
		vec[i] /= total
	}
	return vec, nil
}
