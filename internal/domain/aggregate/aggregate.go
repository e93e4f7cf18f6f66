// Package aggregate collapses raw (query, true name) observations into one
// id-count distribution per normalized query.
//
// Accumulation is commutative and associative: processing order never
// changes the result, so the parallel pass shards observations and merges
// partial distributions by addition.
package aggregate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mommothazaz123/avrae-search-nn/internal/domain/canon"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/catalog"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// minShard keeps tiny inputs on one goroutine.
const minShard = 1024

// Aggregate builds the distribution for the full catalog, or for the
// restricted subset when restricted is true.
//
// Every result name must exist in the full catalog; a miss is returned as a
// *catalog.UnknownNameError. In restricted mode, names outside the subset
// are skipped silently.
func Aggregate(obs []ports.Observation, idx *catalog.Index, c *canon.Canonicalizer, restricted bool) (Distribution, error) {
	d := make(Distribution)
	if err := accumulate(d, obs, idx, c, restricted); err != nil {
		return nil, err
	}
	return d, nil
}

// AggregateParallel is Aggregate split across up to workers goroutines.
// The result is identical to Aggregate for the same input.
func AggregateParallel(ctx context.Context, obs []ports.Observation, idx *catalog.Index, c *canon.Canonicalizer, restricted bool, workers int) (Distribution, error) {
	if workers <= 1 || len(obs) < 2*minShard {
		return Aggregate(obs, idx, c, restricted)
	}

	shardSize := (len(obs) + workers - 1) / workers
	if shardSize < minShard {
		shardSize = minShard
	}
	var shards [][]ports.Observation
	for start := 0; start < len(obs); start += shardSize {
		end := min(start+shardSize, len(obs))
		shards = append(shards, obs[start:end])
	}

	partials := make([]Distribution, len(shards))
	g, ctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			part := make(Distribution)
			if err := accumulate(part, shard, idx, c, restricted); err != nil {
				return err
			}
			partials[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := make(Distribution)
	for _, part := range partials {
		d.Merge(part)
	}
	return d, nil
}

func accumulate(d Distribution, obs []ports.Observation, idx *catalog.Index, c *canon.Canonicalizer, restricted bool) error {
	for i, o := range obs {
		id, err := idx.ID(o.Result)
		if err != nil {
			return fmt.Errorf("observation %d (%q): %w", i, o.Query, err)
		}
		if restricted {
			rid, ok := idx.RestrictedID(o.Result)
			if !ok {
				continue
			}
			id = rid
		}
		d.Add(c.Normalize(o.Query), id)
	}
	return nil
}

// SeedCatalog returns obs followed by one (name, name) observation per
// entry of u, so every catalog entry is seen at least once.
func SeedCatalog(obs []ports.Observation, u *catalog.Universe) []ports.Observation {
	out := make([]ports.Observation, 0, len(obs)+u.Size())
	out = append(out, obs...)
	for _, name := range u.Names() {
		out = append(out, ports.Observation{Query: name, Result: name})
	}
	return out
}
