// Package eval replays labeled queries through a ranking strategy and
// tallies where the expected name lands.
package eval

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mommothazaz123/avrae-search-nn/internal/domain/catalog"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/rank"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// Failure is a labeled query whose expected name was not in the top 10.
type Failure struct {
	Query    string `json:"query"`
	Expected string `json:"expected"`
}

// Report is the outcome of one evaluation run. Every pair lands in exactly
// one of Top1, Top2, Top3, Top10 or Failures.
type Report struct {
	Top1     int
	Top2     int
	Top3     int
	Top10    int
	Failures []Failure
	Elapsed  time.Duration
}

// Total is the number of pairs evaluated.
func (r *Report) Total() int {
	return r.Top1 + r.Top2 + r.Top3 + r.Top10 + len(r.Failures)
}

// Cutoffs are the k values HitRate accepts, one per bucket boundary.
var Cutoffs = []int{1, 2, 3, 10}

// HitRate is the fraction of pairs whose expected name ranked within the
// first k positions. k must be one of Cutoffs.
func (r *Report) HitRate(k int) (float64, error) {
	var hits int
	switch k {
	case 1:
		hits = r.Top1
	case 2:
		hits = r.Top1 + r.Top2
	case 3:
		hits = r.Top1 + r.Top2 + r.Top3
	case 10:
		hits = r.Top1 + r.Top2 + r.Top3 + r.Top10
	default:
		return 0, fmt.Errorf("hit rate: unsupported cutoff %d", k)
	}
	total := r.Total()
	if total == 0 {
		return 0, nil
	}
	return float64(hits) / float64(total), nil
}

func (r *Report) String() string {
	return fmt.Sprintf("t1=%d t2=%d t3=%d t10=%d f=%d t=%s",
		r.Top1, r.Top2, r.Top3, r.Top10, len(r.Failures), r.Elapsed)
}

// Options tunes Evaluate.
type Options struct {
	// Workers bounds concurrent rank calls; <= 1 runs sequentially.
	Workers int
}

// bucket positions
const (
	bucketFailed = iota
	bucketTop1
	bucketTop2
	bucketTop3
	bucketTop10
)

// Evaluate ranks every pair's query with fn and classifies the position of
// the expected name. Expected ids resolve through u; an unknown id or a
// rank error aborts the run.
func Evaluate(ctx context.Context, fn rank.RankFunc, pairs []ports.LabeledQuery, u *catalog.Universe, opts Options) (*Report, error) {
	expected := make([]string, len(pairs))
	for i, p := range pairs {
		name, err := u.Name(p.Result)
		if err != nil {
			return nil, fmt.Errorf("pair %d (%q): %w", i, p.Query, err)
		}
		expected[i] = name
	}

	start := time.Now()
	buckets := make([]int, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, p := range pairs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			got, err := fn(p.Query)
			if err != nil {
				return fmt.Errorf("rank %q: %w", p.Query, err)
			}
			buckets[i] = classify(rank.Position(got, expected[i]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := &Report{Elapsed: time.Since(start)}
	for i, b := range buckets {
		switch b {
		case bucketTop1:
			r.Top1++
		case bucketTop2:
			r.Top2++
		case bucketTop3:
			r.Top3++
		case bucketTop10:
			r.Top10++
		default:
			r.Failures = append(r.Failures, Failure{Query: pairs[i].Query, Expected: expected[i]})
		}
	}
	return r, nil
}

func classify(pos int) int {
	switch {
	case pos == 0:
		return bucketTop1
	case pos == 1:
		return bucketTop2
	case pos == 2:
		return bucketTop3
	case pos >= 0 && pos < 10:
		return bucketTop10
	default:
		return bucketFailed
	}
}
