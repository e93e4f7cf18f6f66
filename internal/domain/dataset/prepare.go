// Package dataset prepares scorer training data and evaluation replay pairs
// from one batch of raw observations.
//
// Every distinct normalized query yields one record per published encoding,
// all sharing the same label vector, so a scorer can be trained on either
// alphabet ordering or on index (embedding) input.
package dataset

import (
	"context"
	"fmt"

	"github.com/mommothazaz123/avrae-search-nn/internal/domain/aggregate"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/canon"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/catalog"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/label"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// Example set names.
const (
	SetAlphaDense      = "alpha-dense"
	SetQwertyDense     = "qwerty-dense"
	SetAlphaIndex      = "alpha-index"
	SetRestrictedIndex = "restricted-index"
	SetNaive           = "naive"
)

// Options tunes preparation.
type Options struct {
	// Workers parallelizes aggregation; <= 1 runs single-threaded.
	Workers int
	// SeedCatalog adds one (name, name) observation per catalog entry.
	SeedCatalog bool
}

// Batch is everything prepared from one observation batch.
type Batch struct {
	Observations         int
	Full                 aggregate.Distribution
	Restricted           aggregate.Distribution
	Evaluation           []ports.LabeledQuery
	RestrictedEvaluation []ports.LabeledQuery
	Sets                 []ports.ExampleSet
}

// Set returns the example set with the given name.
func (b *Batch) Set(name string) (ports.ExampleSet, bool) {
	for _, s := range b.Sets {
		if s.Name == name {
			return s, true
		}
	}
	return ports.ExampleSet{}, false
}

// Prepare aggregates obs over both universes and encodes the training sets.
func Prepare(ctx context.Context, obs []ports.Observation, idx *catalog.Index, c *canon.Canonicalizer, opts Options) (*Batch, error) {
	if opts.SeedCatalog {
		obs = aggregate.SeedCatalog(obs, idx.Full())
	}

	full, err := aggregate.AggregateParallel(ctx, obs, idx, c, false, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("aggregate full: %w", err)
	}
	restricted, err := aggregate.AggregateParallel(ctx, obs, idx, c, true, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("aggregate restricted: %w", err)
	}

	b := &Batch{
		Observations:         len(obs),
		Full:                 full,
		Restricted:           restricted,
		Evaluation:           full.EvaluationPairs(),
		RestrictedEvaluation: restricted.EvaluationPairs(),
	}

	alpha, qwerty := canon.Alpha(), canon.Qwerty()

	dense1 := ports.ExampleSet{Name: SetAlphaDense}
	dense2 := ports.ExampleSet{Name: SetQwertyDense}
	embed := ports.ExampleSet{Name: SetAlphaIndex}
	for _, q := range full.Queries() {
		y, err := label.Vectorize(full[q], idx.Full().Size())
		if err != nil {
			return nil, fmt.Errorf("label %q: %w", q, err)
		}
		x1, err := c.Encode(q, alpha, canon.Dense)
		if err != nil {
			return nil, err
		}
		x2, err := c.Encode(q, qwerty, canon.Dense)
		if err != nil {
			return nil, err
		}
		xe, err := c.Encode(q, alpha, canon.Index)
		if err != nil {
			return nil, err
		}
		dense1.Records = append(dense1.Records, ports.Example{X: x1, Y: y})
		dense2.Records = append(dense2.Records, ports.Example{X: x2, Y: y})
		embed.Records = append(embed.Records, ports.Example{X: xe, Y: y})
	}

	restrictedEmbed := ports.ExampleSet{Name: SetRestrictedIndex}
	for _, q := range restricted.Queries() {
		y, err := label.Vectorize(restricted[q], idx.Restricted().Size())
		if err != nil {
			return nil, fmt.Errorf("restricted label %q: %w", q, err)
		}
		x, err := c.Encode(q, alpha, canon.Index)
		if err != nil {
			return nil, err
		}
		restrictedEmbed.Records = append(restrictedEmbed.Records, ports.Example{X: x, Y: y})
	}

	naive, err := naiveSet(obs, idx, c, qwerty)
	if err != nil {
		return nil, err
	}

	b.Sets = []ports.ExampleSet{dense1, dense2, embed, restrictedEmbed, naive}
	return b, nil
}

// naiveSet keeps one record per observation with the scalar id as target,
// duplicates included.
func naiveSet(obs []ports.Observation, idx *catalog.Index, c *canon.Canonicalizer, a canon.Alphabet) (ports.ExampleSet, error) {
	set := ports.ExampleSet{Name: SetNaive, Records: make([]ports.Example, 0, len(obs))}
	for _, o := range obs {
		id, err := idx.ID(o.Result)
		if err != nil {
			return set, err
		}
		x, err := c.Encode(c.Normalize(o.Query), a, canon.Dense)
		if err != nil {
			return set, err
		}
		set.Records = append(set.Records, ports.Example{X: x, Label: id})
	}
	return set, nil
}
